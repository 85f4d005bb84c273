// InfernalForge is an admission-control gateway in front of an opaque
// image-generation engine. It accepts generation requests over HTTP,
// enforces per-user and global rate limits plus a per-user concurrency cap,
// dispatches admitted work to the inference backend, tracks every job's
// lifecycle, and serves finished artifacts back to the owning session only.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"infernalforge/admission"
	"infernalforge/artifacts"
	"infernalforge/core"
	"infernalforge/db"
	"infernalforge/dispatch"
	"infernalforge/jobs"
	"infernalforge/logging"
	"infernalforge/shutdown"
	"infernalforge/webui"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	if ran, err := RunAsService(); ran {
		if err != nil {
			fmt.Fprintf(os.Stderr, "service error: %v\n", err)
			os.Exit(core.ExitCodeError)
		}
		return
	}

	os.Exit(run(context.Background()))
}

// run starts the gateway and blocks until shutdown. It returns the process
// exit code. parent lets a service wrapper stop the gateway without an OS
// signal.
func run(parent context.Context) int {
	isDevelopment := os.Getenv("DEV_MODE") == "true"
	logFile := core.GetEnvOrDefault("LOG_FILE", "gateway.log")

	logger, err := logging.NewLogger(isDevelopment, logFile)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer logger.Sync()

	config, err := core.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return core.ExitCodeError
	}

	printBanner(config)

	logger.Info("Configuration loaded",
		zap.String("backend", config.DispatchBackend),
		zap.String("ai_service_url", config.AIServiceURL),
		zap.Int("port", config.Port),
		zap.Int("user_rate_limit", config.UserRateLimit),
		zap.Int("global_rate_limit", config.GlobalRateLimit),
		zap.Duration("rate_window", config.RateLimitWindow),
		zap.Int("max_concurrent_jobs", config.MaxConcurrentJobs),
		zap.Duration("request_timeout", config.RequestTimeout),
		zap.Duration("job_retention", config.JobRetention),
		zap.Bool("dev_mode", isDevelopment),
	)

	// Artifact store.
	store, err := artifacts.NewStore(config.OutputDir, logger.Zap())
	if err != nil {
		logger.Error("Failed to create artifact store", zap.Error(err))
		return core.ExitCodeError
	}
	if config.CleanOutputOnStart {
		if err := store.Purge(); err != nil {
			logger.Error("Failed to purge output directory", zap.Error(err))
			return core.ExitCodeError
		}
	}

	// Generation-history audit database.
	if err := db.RunMigrations(config.DBPath); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return core.ExitCodeError
	}
	conn, err := db.NewSQLiteConnectionWithDefaults(config.DBPath)
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return core.ExitCodeError
	}
	history := db.NewRepository(conn, 0, logger.Zap())

	// Admission pipeline.
	tracker := jobs.NewTracker(config.JobRetention, logger.Zap())
	limiter := admission.NewRateLimiter(config.UserRateLimit, config.GlobalRateLimit, config.RateLimitWindow)
	gate := admission.NewConcurrencyGate(config.MaxConcurrentJobs)

	var engine dispatch.Engine
	switch config.DispatchBackend {
	case core.BackendOpenAI:
		engine = dispatch.NewOpenAIEngine(dispatch.OpenAIEngineConfig{
			APIKey: config.OpenAIAPIKey,
			Model:  config.OpenAIImageModel,
		}, store, logger.Zap())
	default:
		engine = dispatch.NewHTTPEngine(dispatch.HTTPEngineConfig{
			BaseURL:   config.AIServiceURL,
			AuthToken: config.AIServiceAuthToken,
		}, store, logger.Zap())
	}

	controller := admission.NewController(
		config.Defaults(), limiter, gate, tracker, engine, history,
		config.RequestTimeout, logger.Zap(),
	)

	// HTTP surface.
	sessions := webui.NewSessionStore(config.SessionTTL)
	proxy := artifacts.NewProxy(tracker, store)
	handlers := webui.NewHandlers(controller, tracker, proxy, sessions, webui.DefaultCookieConfig(), logger.Zap())

	serverCfg := webui.DefaultServerConfig()
	serverCfg.Host = config.Host
	serverCfg.Port = config.Port
	if serverCfg.WriteTimeout <= config.RequestTimeout {
		serverCfg.WriteTimeout = config.RequestTimeout + 30*time.Second
	}
	server := webui.NewServer(serverCfg, handlers, logger.Zap())

	// Shutdown coordination and background tickers.
	manager := shutdown.NewManager(logger.Zap(), shutdown.WithTimeout(serverCfg.ShutdownTimeout+30*time.Second))
	manager.Start()

	sweeper := jobs.NewSweeper(tracker, store, config.SweepEvery, logger.Zap())
	sweeper.Start(manager.Context())
	limiter.StartCleanupTicker(manager.Context(), config.RateLimitWindow)
	sessions.StartCleanupTicker(manager.Context(), 5*time.Minute)

	manager.Register("http-server", 10, func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})
	manager.Register("final-sweep", 20, func(ctx context.Context) error {
		sweeper.SweepOnce(time.Now())
		return nil
	})
	manager.Register("audit-db", 30, func(ctx context.Context) error {
		return history.Close(10 * time.Second)
	})
	manager.Register("logger", 40, func(ctx context.Context) error {
		return logger.Sync()
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	code := core.ExitCodeSuccess
	select {
	case <-manager.Context().Done():
	case <-parent.Done():
		logger.Info("parent context cancelled, shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			code = core.ExitCodeError
		}
	}

	if err := manager.Shutdown(); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		code = core.ExitCodeError
	}
	return code
}
