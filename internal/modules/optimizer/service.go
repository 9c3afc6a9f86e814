package optimizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
)

// Service owns optimization sessions: one search runs at a time, its
// progress streams to the hub, and every state change lands in the
// session store.
type Service struct {
	space    *params.Space
	eval     *Evaluator
	best     *BestConfigStore
	sessions *SessionRepository
	hub      *Hub
	log      zerolog.Logger

	mu      sync.Mutex
	current *Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewService wires the optimizer service.
func NewService(space *params.Space, eval *Evaluator, best *BestConfigStore, sessions *SessionRepository, hub *Hub, logger zerolog.Logger) *Service {
	return &Service{
		space:    space,
		eval:     eval,
		best:     best,
		sessions: sessions,
		hub:      hub,
		log:      logger.With().Str("component", "optimizer").Logger(),
	}
}

// Start launches a search session in the background. Only one session
// runs at a time.
func (s *Service) Start(strategyName string, opts Options) (*Session, error) {
	strategy, err := NewStrategy(strategyName, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.Status == StatusRunning {
		return nil, fmt.Errorf("session %s is already running", s.current.ID)
	}

	session := NewSession(strategyName)
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.current = session
	s.cancel = cancel
	s.done = make(chan struct{})

	s.log.Info().Str("session_id", session.ID).Str("strategy", strategyName).Msg("optimization session started")

	go s.run(ctx, session, strategy)

	snapshot := *session
	return &snapshot, nil
}

func (s *Service) run(ctx context.Context, session *Session, strategy SearchStrategy) {
	defer close(s.done)

	env := &Env{
		Space:     s.space,
		Eval:      s.eval,
		Best:      s.best,
		SessionID: session.ID,
		Log:       s.log,
	}
	env.report = func(p Progress) {
		s.recordProgress(session, p)
	}

	err := strategy.Run(ctx, env)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	session.FinishedAt = &now
	switch {
	case ctx.Err() == context.Canceled:
		session.Status = StatusCancelled
	case err != nil:
		session.Status = StatusFailed
		session.Error = err.Error()
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("optimization session failed")
	default:
		session.Status = StatusCompleted
	}

	s.finalizeSession(session, env)
	if err := s.sessions.Save(session); err != nil {
		s.log.Error().Err(err).Msg("failed to persist session state")
	}

	s.hub.Publish(s.eventFor(session, Progress{
		Iteration:   session.Iterations,
		Evaluations: session.Evaluations,
		BestPnL:     env.bestPnL,
		BestConfig:  env.bestCfg,
		Message:     "session " + session.Status,
	}))

	s.log.Info().
		Str("session_id", session.ID).
		Str("status", session.Status).
		Int("evaluations", session.Evaluations).
		Msg("optimization session finished")
}

func (s *Service) recordProgress(session *Session, p Progress) {
	s.mu.Lock()
	session.Iterations = p.Iteration
	session.Evaluations = p.Evaluations
	if p.BestConfig != nil {
		pnl := p.BestPnL
		session.BestPnL = &pnl
		session.BestConfig = p.BestConfig.FileForm(s.space)
	}
	s.mu.Unlock()

	if err := s.sessions.Save(session); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist session progress")
	}
	s.hub.Publish(s.eventFor(session, p))
}

func (s *Service) finalizeSession(session *Session, env *Env) {
	session.Iterations = env.iteration
	session.Evaluations = env.evaluations
	if env.bestCfg != nil {
		pnl := env.bestPnL
		session.BestPnL = &pnl
		session.BestConfig = env.bestCfg.FileForm(s.space)
	}
}

func (s *Service) eventFor(session *Session, p Progress) ProgressEvent {
	var cfg map[string]string
	if p.BestConfig != nil {
		cfg = p.BestConfig.FileForm(s.space)
	}
	return ProgressEvent{
		SessionID:   session.ID,
		Strategy:    session.Strategy,
		Status:      session.Status,
		Iteration:   p.Iteration,
		Evaluations: p.Evaluations,
		BestPnL:     p.BestPnL,
		BestConfig:  cfg,
		Message:     p.Message,
		Timestamp:   time.Now().UTC(),
	}
}

// Cancel stops the running session. Unknown or finished sessions
// return an error.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.ID != id {
		return fmt.Errorf("session %s is not running", id)
	}
	if s.current.Status != StatusRunning {
		return fmt.Errorf("session %s already %s", id, s.current.Status)
	}
	s.cancel()
	return nil
}

// Wait blocks until the running session finishes. Used in tests and on
// shutdown.
func (s *Service) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Get returns a session by ID.
func (s *Service) Get(id string) (*Session, bool, error) {
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		snapshot := *s.current
		s.mu.Unlock()
		return &snapshot, true, nil
	}
	s.mu.Unlock()
	return s.sessions.Get(id)
}

// List returns stored sessions, newest first.
func (s *Service) List(limit int) ([]Session, error) {
	return s.sessions.List(limit)
}

// BestConfig returns the persisted best configuration.
func (s *Service) BestConfig() (params.Config, float64, bool, error) {
	return s.best.Load()
}

// Shutdown cancels any running session and waits for it to stop.
func (s *Service) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	running := s.current != nil && s.current.Status == StatusRunning
	s.mu.Unlock()

	if running && cancel != nil {
		cancel()
		s.Wait()
	}
}
