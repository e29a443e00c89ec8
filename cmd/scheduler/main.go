package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pipeline_crm_backend/internal/email"
	"pipeline_crm_backend/internal/events"
	"pipeline_crm_backend/internal/notifications"
	"pipeline_crm_backend/internal/reminders"
	"pipeline_crm_backend/internal/scheduler"
	"pipeline_crm_backend/internal/users"
	"pipeline_crm_backend/internal/users/adapter"
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

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	val := validator.New()

	// Worker-side wiring: sweep-created reminders flow through the event bus
	// into the notifications module, so in-app rows and reminder emails are
	// produced here just like in the API process.
	usersModule := users.NewModule(pool)
	directory := adapter.NewDirectory(usersModule.Repository())
	notifications.NewModule(pool, eventBus, directory, sender, log)

	remindersModule := reminders.NewModule(pool, eventBus, nil, val, log)

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go func() {
		<-ctx.Done()
		periodic.Shutdown()
	}()
	go func() {
		if err := periodic.Run(); err != nil {
			log.Error("periodic scheduler stopped", "error", err)
		}
	}()

	worker, err := scheduler.NewWorker(cfg, remindersModule.Monitor(), remindersModule.Repository(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
