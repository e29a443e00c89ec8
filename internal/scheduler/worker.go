package scheduler

import (
	"context"
	"time"

	"pipeline_crm_backend/internal/reminders/monitor"
	remrepo "pipeline_crm_backend/internal/reminders/repository"
	"pipeline_crm_backend/platform/config"
	"pipeline_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

// stagnationFanOutLimit bounds concurrent per-assignee scans so a large user
// base cannot exhaust the connection pool.
const stagnationFanOutLimit = 4

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	monitor *monitor.Service
	repo    *remrepo.Repository
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, mon *monitor.Service, repo *remrepo.Repository, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		monitor: mon,
		repo:    repo,
		log:     log,
	}

	mux.HandleFunc(TaskReminderSweep, w.handleReminderSweep)
	mux.HandleFunc(TaskStagnationCheck, w.handleStagnationCheck)

	return w, nil
}

// handleReminderSweep runs the stale/new-lead sweep, then fans the stagnation
// check out over every active assignee.
func (w *Worker) handleReminderSweep(ctx context.Context, task *asynq.Task) error {
	started := time.Now()

	counts, err := w.monitor.RunStaleAndNewLeadSweep(ctx)
	if err != nil {
		return err
	}

	assignees, err := w.repo.ActiveAssignees(ctx)
	if err != nil {
		return err
	}

	stagnant := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stagnationFanOutLimit)
	results := make([]int, len(assignees))
	for i, userID := range assignees {
		i, userID := i, userID
		g.Go(func() error {
			n, err := w.monitor.CheckAndAlert(gctx, userID)
			if err != nil {
				return err
			}
			results[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, n := range results {
		stagnant += n
	}

	if w.log != nil {
		w.log.SweepResult("reminder_sweep", counts.Stale+counts.New+stagnant,
			float64(time.Since(started).Milliseconds()))
	}
	return nil
}

func (w *Worker) handleStagnationCheck(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStagnationCheckPayload(task)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return err
	}

	_, err = w.monitor.CheckAndAlert(ctx, userID)
	return err
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil && w.log != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
