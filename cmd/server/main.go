// Debate Arena API server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/arguewith/arena/internal/agent"
	"github.com/arguewith/arena/internal/api"
	"github.com/arguewith/arena/internal/apilog"
	"github.com/arguewith/arena/internal/config"
	"github.com/arguewith/arena/internal/diag"
	"github.com/arguewith/arena/internal/health"
	"github.com/arguewith/arena/internal/identity"
	"github.com/arguewith/arena/internal/leaderboard"
	"github.com/arguewith/arena/internal/llm"
	"github.com/arguewith/arena/internal/middleware"
	"github.com/arguewith/arena/internal/recorder"
	"github.com/arguewith/arena/internal/replay"
	"github.com/arguewith/arena/internal/store"
	"github.com/arguewith/arena/internal/transcript"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "leaderboard_backend", cfg.Leaderboard.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize loggers.
	debugLog, err := diag.New(cfg.DebugLog.Path, cfg.DebugLog.Enabled, logger)
	if err != nil {
		slog.Error("Failed to initialize debug log", "error", err)
		os.Exit(1)
	}
	defer func() { _ = debugLog.Close() }()
	debugLog.Startup(fmt.Sprintf("server starting on port %s (leaderboard=%s, llm=%s)", cfg.Port, cfg.Leaderboard.Backend, cfg.LLM.Provider))

	apiLog, err := apilog.New(apilog.Config{
		Enabled:   cfg.APILog.Enabled,
		Dir:       cfg.APILog.Dir,
		QueueSize: cfg.APILog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize API logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = apiLog.Close() }()

	// Initialize storage.
	repo, err := openLeaderboard(cfg)
	if err != nil {
		slog.Error("Failed to initialize leaderboard store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close leaderboard store", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Leaderboard health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Leaderboard store ready")

	transcripts := transcript.NewFileStore(cfg.ConversationsDir)
	board := leaderboard.NewManager(repo, transcripts, cfg.Leaderboard.Size, debugLog, logger)
	rec := recorder.New(board, transcripts, debugLog, logger)

	// Initialize LLM provider chain.
	provider, endpoint, err := newProvider(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize LLM provider", "error", err)
		os.Exit(1)
	}
	completer := llm.NewRetrying(apilog.NewProvider(provider, apiLog, endpoint), cfg.LLM.MaxAttempts, cfg.LLM.RetryDelay, logger)
	slog.Info("LLM provider ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	limiter := agent.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(repo, rec, 5*time.Second)
	debateHandler := api.NewDebateHandler(rec, apiLog, logger)
	leaderboardHandler := api.NewLeaderboardHandler(board, logger)
	replayHandler := api.NewReplayHandler(rec, replay.NewPlayer(), originPatterns(cfg.CORSOrigins), logger)
	agentHandler := agent.NewHandler(agent.NewService(completer, cfg.LLM.Model, logger), apiLog, limiter, logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	debateHandler.RegisterRoutes(r)
	agentHandler.RegisterRoutes(r)
	leaderboardHandler.RegisterRoutes(r)
	replayHandler.RegisterRoutes(r)

	// Replay websockets stream for as long as the original debate lasted,
	// so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start background workers.
	rec.StartSweeper(ctx, sweepInterval(cfg.ConversationTTL), cfg.ConversationTTL, func(id string) {
		apiLog.EndSession(id)
		debugLog.Printf("dropped abandoned conversation %s", id)
	})

	if cfg.GRPCHealthAddr != "" {
		monitor := health.NewMonitor(repo, 15*time.Second, logger)
		monitor.Start(ctx)
		go func() {
			if err := health.Serve(ctx, cfg.GRPCHealthAddr, monitor); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...", "active_conversations", rec.Active())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func openLeaderboard(cfg *config.Config) (store.Repository, error) {
	if cfg.Leaderboard.Backend == config.BackendSQLite {
		return store.NewSQLite(cfg.Leaderboard.DBPath)
	}
	return store.NewJSONFile(cfg.Leaderboard.Path)
}

// newProvider returns the configured provider and the endpoint name used in API logs.
func newProvider(ctx context.Context, cfg *config.Config) (llm.Provider, string, error) {
	if cfg.LLM.Provider == config.ProviderGemini {
		p, err := llm.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return nil, "", err
		}
		return p, "gemini:" + cfg.LLM.Model + ":generateContent", nil
	}
	return llm.NewOpenRouter(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model), cfg.LLM.BaseURL + "/chat/completions", nil
}

// originPatterns converts CORS origins into websocket host patterns.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
