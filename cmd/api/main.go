package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"payfriend/internal/cache"
	"payfriend/internal/config"
	"payfriend/internal/database"
	"payfriend/internal/events"
	"payfriend/internal/features"
	"payfriend/internal/handler"
	"payfriend/internal/logging"
	"payfriend/internal/metrics"
	"payfriend/internal/middleware"
	"payfriend/internal/service"
	"payfriend/internal/session"
	"payfriend/internal/tracing"
	"payfriend/internal/transport"
)

func main() {
	configFile := flag.String("config", "", "Path to a JSON config file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: tracing.DefaultServiceName,
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	sessions, closeSessions, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer closeSessions()

	flags := features.FromConfig(cfg.Features)
	eventManager := events.NewManager(flags.IsEnabled(features.FeatureEventHooks), logger)
	defer eventManager.Shutdown()
	eventManager.Subscribe(events.EventSessionTerminated, func(ctx context.Context, e events.Event) error {
		data, _ := e.Data.(events.SessionTerminatedData)
		logger.InfoContext(ctx, "event", "type", e.Type, "user_id", data.UserID)
		return nil
	})
	eventManager.Subscribe(events.EventFetchFailed, func(ctx context.Context, e events.Event) error {
		data, _ := e.Data.(events.FetchFailedData)
		logger.WarnContext(ctx, "event", "type", e.Type, "resource", data.Resource, "status", data.Status)
		return nil
	})

	recorder := metrics.NewPrometheus()
	obs := service.Observer{Logger: logger, Metrics: recorder, Events: eventManager}

	mock := service.NewMock(service.MockOptions{
		Latency:     cfg.Backend.MockLatency,
		LogoutDelay: cfg.Backend.LogoutDelay,
		Sessions:    sessions,
		Observer:    obs,
	})

	var live *service.Live
	if cfg.Features.AnyLive() {
		client := transport.NewClient(transport.Config{
			BaseURL:   cfg.Backend.URL,
			Timeout:   cfg.Backend.Timeout,
			UserAgent: cfg.Backend.UserAgent,
			Token:     sessions.Token,
		})
		live = service.NewLive(service.LiveOptions{
			Client:      client,
			LogoutDelay: cfg.Backend.LogoutDelay,
			Sessions:    sessions,
			Observer:    obs,
		})
	}

	facade, err := service.New(service.Options{Flags: flags, Mock: mock, Live: live})
	if err != nil {
		return fmt.Errorf("failed to build facade: %w", err)
	}
	service.Init(facade)

	h := handler.NewHandlerWithOptions(service.Default(), sessions, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
		Logger:      logger,
	})

	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.TracingMiddleware())
	r.Use(middleware.Logger(logger, recorder))
	r.Use(chimw.Recoverer)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/offers", h.GetOffers)
		r.Get("/mini-apps", h.GetMiniApps)
		r.Get("/credit-score", h.GetCreditScore)
		r.Get("/home", h.GetHome)
		r.Post("/session", h.StartSession)
		r.Post("/session/logout", h.Logout)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", recorder.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", server.Addr,
			"session_store", cfg.Session.Store,
			"flags", flags.GetAll(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-sigint:
		logger.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// newSessionStore opens the configured session backend. The returned func
// releases it.
func newSessionStore(ctx context.Context, cfg config.SessionConfig) (*session.Store, func(), error) {
	switch cfg.Store {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return session.NewStore(session.NewCacheBackend(rc, 0)), func() { rc.Close() }, nil
	case "sqlite":
		db, err := database.NewDB(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session database: %w", err)
		}
		return session.NewStore(session.NewDBBackend(db)), func() { db.Close() }, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}
