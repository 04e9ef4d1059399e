// Package app wires one service instance together. The admin and user
// binaries share this bootstrap; the role decides the route prefix and
// which mutations are mirrored to the sibling service.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lendr/lendr/internal/cache"
	"github.com/lendr/lendr/internal/config"
	"github.com/lendr/lendr/internal/handler"
	"github.com/lendr/lendr/internal/metrics"
	"github.com/lendr/lendr/internal/middleware"
	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/notify"
	"github.com/lendr/lendr/internal/repository"
	"github.com/lendr/lendr/internal/server"
	"github.com/lendr/lendr/internal/service"
)

// Run boots a service instance for the given role and blocks until
// shutdown. It exits the process on a fatal startup error.
func Run(role model.Role) {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.ApplyRoleDefaults(role)

	logger := initLogger(cfg, role)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()

	publisher := notify.NewPublisher(repo, logger, recorder, cfg.NotifyMaxAttempts)
	worker := notify.NewWorker(repo, cfg.PeerURL, logger, recorder)
	worker.SetPollInterval(cfg.NotifyPollInterval)

	librarySvc := service.NewLibraryService(repo, cacheClient, publisher, role, logger, recorder)

	h := handler.New(role)
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	userHandler := handler.NewUserHandler(librarySvc, logger)
	bookHandler := handler.NewBookHandler(librarySvc, logger)
	metricsHandler := handler.NewMetricsHandler(recorder)

	r := setupRouter(role, h, healthHandler, userHandler, bookHandler, metricsHandler, cacheClient, recorder, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// The worker outlives in-flight requests: registered first, stopped
	// last by the server's LIFO shutdown order.
	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notify worker exited", "error", err)
		}
	}()
	srv.OnShutdown("notify-worker", func(ctx context.Context) error {
		stopWorker()
		select {
		case <-workerDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	logger.Info("starting server",
		"role", role,
		"port", cfg.AppPort,
		"peer_url", cfg.PeerURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config, role model.Role) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "lendr-"+string(role))
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
// The two services share handlers but not routes: admin surfaces what is
// out (plus user listing and removal), user surfaces what is in (plus
// lookup and keyword filter). Both accept enrollment, add, borrow and
// return, since each receives the other's mirrored mutations.
func setupRouter(
	role model.Role,
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	userHandler *handler.UserHandler,
	bookHandler *handler.BookHandler,
	metricsHandler *handler.MetricsHandler,
	cacheClient *cache.Cache,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Get("/", h.Root)

	// Typed-nil guard: a nil *cache.Cache must stay a nil interface so
	// the dedupe middleware passes traffic through.
	var deliveryStore middleware.DeliveryStore
	if cacheClient != nil {
		deliveryStore = cacheClient
	}

	r.Route(role.PathPrefix(), func(r chi.Router) {
		// Mirror traffic from the peer carries a delivery id; everything
		// else passes through the dedupe check untouched.
		r.Use(middleware.Dedupe(deliveryStore, recorder, logger))

		r.Post("/sign-up", userHandler.SignUp)
		r.Post("/books", bookHandler.Add)
		r.Post("/books/{id}", bookHandler.Borrow)
		r.Post("/books/{id}/return", bookHandler.Return)

		switch role {
		case model.RoleAdmin:
			r.Get("/users", userHandler.List)
			r.Get("/books", bookHandler.ListUnavailable)
			r.Delete("/books/{id}", bookHandler.Remove)
		case model.RoleUser:
			r.Get("/books", bookHandler.ListAvailable)
			r.Get("/books/{segment}", bookHandler.GetOrFilter)
		}
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
