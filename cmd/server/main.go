package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/archive"
	"github.com/tradelab/breakaway/internal/config"
	"github.com/tradelab/breakaway/internal/database"
	"github.com/tradelab/breakaway/internal/modules/market"
	"github.com/tradelab/breakaway/internal/modules/optimizer"
	optimizerhandlers "github.com/tradelab/breakaway/internal/modules/optimizer/handlers"
	"github.com/tradelab/breakaway/internal/modules/params"
	paramshandlers "github.com/tradelab/breakaway/internal/modules/params/handlers"
	"github.com/tradelab/breakaway/internal/modules/report"
	reporthandlers "github.com/tradelab/breakaway/internal/modules/report/handlers"
	"github.com/tradelab/breakaway/internal/modules/results"
	resultshandlers "github.com/tradelab/breakaway/internal/modules/results/handlers"
	"github.com/tradelab/breakaway/internal/modules/simulation"
	"github.com/tradelab/breakaway/internal/modules/surrogate"
	surrogatehandlers "github.com/tradelab/breakaway/internal/modules/surrogate/handlers"
	"github.com/tradelab/breakaway/internal/scheduler"
	"github.com/tradelab/breakaway/internal/server"
	"github.com/tradelab/breakaway/pkg/logger"
)

func main() {
	// Load configuration first so the log level is honored
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info"})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Breakaway optimizer")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Parameter space
	space, err := params.LoadOrDefault(cfg.ParamsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load parameter space")
	}
	log.Info().Int("parameters", space.Len()).Msg("Parameter space loaded")

	// Tick datasets
	datasets, err := market.ListDatasets(cfg.DataDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.DataDir).Msg("Failed to list tick datasets")
	}
	if len(datasets) == 0 {
		log.Warn().Str("dir", cfg.DataDir).Msg("No tick datasets found, evaluations will be empty")
	}

	// Core services
	runner := simulation.NewRunner(datasets, cfg.SimWorkers, log)
	trialRepo := results.NewRepository(db, space, log)
	evaluator := optimizer.NewEvaluator(space, runner, trialRepo, log)
	bestStore := optimizer.NewBestConfigStore(cfg.BestConfigFile, space, log)
	sessionRepo := optimizer.NewSessionRepository(db, log)
	hub := optimizer.NewHub(log)
	optimizerService := optimizer.NewService(space, evaluator, bestStore, sessionRepo, hub, log)
	surrogateService := surrogate.NewService(space, trialRepo, log)
	reportGenerator := report.NewGenerator(cfg.ReportDir, space, sessionRepo, trialRepo, surrogateService, log)

	// Scheduler and background jobs
	sched := scheduler.New(log)
	registerJobs(sched, cfg, optimizerService, reportGenerator, sessionRepo, trialRepo, space, log)
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		Config:  cfg,
		DevMode: cfg.DevMode,
		Modules: []server.RouteRegistrar{
			paramshandlers.NewHandler(space, log),
			resultshandlers.NewHandler(trialRepo, space, log),
			optimizerhandlers.NewHandler(optimizerService, hub, space, log),
			surrogatehandlers.NewHandler(surrogateService, space, log),
			reporthandlers.NewHandler(reportGenerator, log),
		},
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	optimizerService.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	optimizerService *optimizer.Service,
	reportGenerator *report.Generator,
	sessionRepo *optimizer.SessionRepository,
	trialRepo *results.Repository,
	space *params.Space,
	log zerolog.Logger,
) {
	// Nightly search continuing from the persisted best config, 1 AM
	if err := sched.AddJob("0 0 1 * * *", &scheduler.OptimizationJob{
		Service: optimizerService,
		Log:     log,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register optimization job")
	}

	// Report on the latest finished session, 6 AM
	if err := sched.AddJob("0 0 6 * * *", &scheduler.ReportJob{
		Generator: reportGenerator,
		Sessions:  sessionRepo,
		Log:       log,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register report job")
	}

	// Archive is optional, only wired when a bucket is configured
	if cfg.ArchiveBucket == "" {
		log.Debug().Msg("Archive bucket not configured, archive job disabled")
		return
	}

	uploader, err := archive.NewUploader(context.Background(), cfg.ArchiveBucket, cfg.ArchivePrefix, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize archive uploader, archive job disabled")
		return
	}

	if err := sched.AddJob("0 0 7 * * *", &scheduler.ArchiveJob{
		Repo:      trialRepo,
		Space:     space,
		Uploader:  uploader,
		ExportDir: cfg.DataDir,
		ReportDir: cfg.ReportDir,
		Log:       log,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register archive job")
	}
}
