package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cacheadapter "github.com/rytkhs/event-pay-sub006/internal/adapters/cache"
	httpadapter "github.com/rytkhs/event-pay-sub006/internal/adapters/http"
	"github.com/rytkhs/event-pay-sub006/internal/adapters/postgres"
	stripeadapter "github.com/rytkhs/event-pay-sub006/internal/adapters/stripe"
	"github.com/rytkhs/event-pay-sub006/internal/application"
	"github.com/rytkhs/event-pay-sub006/internal/observability"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	scheduler  *application.Scheduler
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	logger.Info("bootstrapping payout engine", "http_port", cfg.HTTPPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	repos := postgres.NewRepositories(pool)
	dedup := cacheadapter.NewRedisWebhookDedupStore(redisClient)
	transfers := stripeadapter.NewClient(stripeadapter.Config{
		APIKey:      cfg.StripeAPIKey,
		MaxAttempts: cfg.TransferMaxAttempts,
		BaseBackoff: cfg.TransferBaseBackoff,
	}, logger, metrics)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:       cfg.ServiceID,
			Currency:          cfg.Currency,
			OrganizerTimezone: cfg.OrganizerTimezone,
			MinElapsedDays:    cfg.MinElapsedDays,
			NotesMaxLength:    cfg.NotesMaxLength,
			FeeCacheTTL:       cfg.FeeCacheTTL,
			MaxConcurrency:    cfg.MaxConcurrency,
			BatchDelay:        cfg.BatchDelay,
			CandidateLimit:    cfg.CandidateLimit,
			LogRetention:      cfg.LogRetention,
			WebhookDedupTTL:   cfg.WebhookDedupTTL,
		},
		Logger:    logger,
		Payouts:   repos.Payouts,
		Events:    repos.Events,
		Accounts:  repos.Accounts,
		Transfers: transfers,
		Dedup:     dedup,
		FeeConfig: repos.FeeConfig,
		Metrics:   metrics,
	})

	scheduler := application.NewScheduler(application.SchedulerDependencies{
		Logger:  logger,
		Service: svc,
		Events:  repos.Events,
		Logs:    repos.SchedulerLogs,
		Metrics: metrics,
	})

	webhooks := httpadapter.NewWebhookHandler(svc, logger, cfg.StripeWebhookSecret)
	handler := httpadapter.NewHandler(svc, scheduler, webhooks)
	router := httpadapter.NewRouter(handler, registry)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		scheduler:  scheduler,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunScheduler drives batch payout cycles on the configured interval and
// prunes old execution logs after each run.
func (r *Runtime) RunScheduler(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("payout scheduler started", "interval", r.cfg.SchedulerInterval)
	ticker := time.NewTicker(r.cfg.SchedulerInterval)
	defer ticker.Stop()

	for {
		result, err := r.scheduler.ExecuteScheduledPayouts(ctx, application.SchedulerOptions{})
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("scheduled payout run failed", "execution_id", result.ExecutionID, "error", err)
		}
		if _, err := r.scheduler.CleanupOldLogs(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("scheduler log cleanup failed", "error", err)
		}

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			r.cleanupFn(shutdownCtx)
			return nil
		case <-ticker.C:
		}
	}
}
