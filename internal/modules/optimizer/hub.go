package optimizer

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	// subscriberBuffer bounds each subscriber's event queue; slow
	// clients drop events rather than stall the search.
	subscriberBuffer = 16

	writeTimeout = 5 * time.Second
)

// ProgressEvent is the wire form of a search progress beat.
type ProgressEvent struct {
	SessionID   string            `json:"session_id"`
	Strategy    string            `json:"strategy"`
	Status      string            `json:"status"`
	Iteration   int               `json:"iteration"`
	Evaluations int               `json:"evaluations"`
	BestPnL     float64           `json:"best_pnl"`
	BestConfig  map[string]string `json:"best_config,omitempty"`
	Message     string            `json:"message,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Hub fans progress events out to websocket subscribers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan ProgressEvent]struct{}
	log         zerolog.Logger
}

// NewHub creates an empty progress hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[chan ProgressEvent]struct{}),
		log:         logger.With().Str("component", "progress_hub").Logger(),
	}
}

// Publish delivers an event to every subscriber. Subscribers that
// cannot keep up miss events instead of blocking the publisher.
func (h *Hub) Publish(event ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) subscribe() chan ProgressEvent {
	ch := make(chan ProgressEvent, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan ProgressEvent) {
	h.mu.Lock()
	delete(h.subscribers, ch)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request to a websocket and streams progress
// events until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // same-origin enforcement happens at the CORS layer
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	h.log.Debug().Msg("progress subscriber connected")

	// The stream is write-only; CloseRead keeps reading control frames
	// so the context is cancelled when the client disconnects.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("progress subscriber dropped")
				return
			}
		}
	}
}
