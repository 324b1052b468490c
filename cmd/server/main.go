package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	mindchat "github.com/set-night/mindchat"
	"github.com/set-night/mindchat/internal/auth"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/handler"
	"github.com/set-night/mindchat/internal/llm"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/resume"
	"github.com/set-night/mindchat/internal/service"
	"github.com/set-night/mindchat/internal/stream"
	"github.com/set-night/mindchat/internal/telemetry"
	"github.com/set-night/mindchat/internal/tools"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	_, closeLog, err := telemetry.InitLogger(cfg.SlogLevel(), cfg.LogFile)
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		closeLog()
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}

func run(cfg *config.Config) error {
	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.InitTelemetry(ctx, version, cfg.TraceFile, cfg.MetricsFile)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(mindchat.MigrationsFS, "migrations")
	if err != nil {
		return err
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		return err
	}

	store := repository.NewStore(pool)

	// Stream replay and guest throttling need Redis
	var (
		recorder resume.Recorder = resume.Noop{}
		limiter  middleware.Counter
	)
	if cfg.RedisURL != "" {
		client, err := resume.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		recorder = resume.NewRedisRecorder(client, "mindchat", config.ReplayTTL)
		limiter = middleware.NewRedisCounter(client, "mindchat")
		slog.Info("redis connected")
	} else {
		slog.Info("redis not configured, stream replay disabled")
	}

	// Model provider
	gateway := llm.NewOpenRouter(cfg.OpenRouterKey, cfg.OpenRouterURL)
	catalog := llm.NewCatalog(cfg.OpenRouterKey, cfg.OpenRouterURL)

	// Tools
	documents := tools.NewDocuments(store, gateway, cfg.ArtifactModel)
	registry := tools.NewRegistry(append([]tools.Tool{
		tools.NewWeather(nil),
		tools.NewWebPage(nil),
	}, documents.Tools()...)...)

	// Initialize services
	mux := stream.NewMultiplexer(gateway, service.NewUsageReconciler(catalog), config.MaxSteps, config.SmoothDelay)
	chatService := service.NewChatService(
		store,
		mux,
		registry,
		service.NewTitleGenerator(gateway, cfg.TitleModel),
		recorder,
		service.DefaultChatModels(cfg.ChatModel, cfg.ReasoningModel),
	)
	userService := service.NewUserService(store)
	documentService := service.NewDocumentService(store)

	if cfg.SlogLevel() != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.New(handler.Deps{
		Chats:        chatService,
		Users:        userService,
		Documents:    documentService,
		Tokens:       auth.NewManager(cfg.AuthSecret, cfg.SessionTTL),
		DB:           store,
		Limiter:      limiter,
		CookieSecure: cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: h.Router(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr, "version", version, "tools", registry.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
