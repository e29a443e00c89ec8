package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pipeline_crm_backend/internal/auth"
	"pipeline_crm_backend/internal/email"
	"pipeline_crm_backend/internal/events"
	apphttp "pipeline_crm_backend/internal/http"
	"pipeline_crm_backend/internal/http/router"
	"pipeline_crm_backend/internal/leads"
	"pipeline_crm_backend/internal/notifications"
	"pipeline_crm_backend/internal/reminders"
	"pipeline_crm_backend/internal/revenue"
	"pipeline_crm_backend/internal/scheduler"
	"pipeline_crm_backend/internal/tasks"
	"pipeline_crm_backend/internal/users"
	"pipeline_crm_backend/internal/users/adapter"
	"pipeline_crm_backend/migrations"
	"pipeline_crm_backend/platform/config"
	"pipeline_crm_backend/platform/db"
	"pipeline_crm_backend/platform/logger"
	"pipeline_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.GetHTTPAddr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	usersModule := users.NewModule(pool)
	directory := adapter.NewDirectory(usersModule.Repository())

	authModule := auth.NewModule(usersModule.Repository(), cfg, sender, val, log)
	leadsModule := leads.NewModule(pool, eventBus, val, log)
	remindersModule := reminders.NewModule(pool, eventBus, reminderScheduler, val, log)
	notificationsModule := notifications.NewModule(pool, eventBus, directory, sender, log)
	revenueModule := revenue.NewModule(pool)
	tasksModule := tasks.NewModule(pool, val)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			usersModule,
			leadsModule,
			remindersModule,
			notificationsModule,
			revenueModule,
			tasksModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.GetHTTPAddr())
		srvErr <- engine.Run(cfg.GetHTTPAddr())
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; queue-backed reminder triggers disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
