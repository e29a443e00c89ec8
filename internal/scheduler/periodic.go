package scheduler

import (
	"fmt"

	"pipeline_crm_backend/platform/config"
	"pipeline_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the reminder sweep on a fixed interval using asynq's
// scheduler. The worker performs the actual scan, so multiple scheduler
// replicas only risk duplicate enqueues, which the reminder dedup absorbs.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	cronspec := fmt.Sprintf("@every %s", cfg.GetSweepInterval())
	if _, err := scheduler.Register(cronspec, NewReminderSweepTask(), asynq.Queue(queue)); err != nil {
		return nil, err
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run blocks until the scheduler stops.
func (p *Periodic) Run() error {
	if p == nil || p.scheduler == nil {
		return nil
	}
	return p.scheduler.Run()
}

func (p *Periodic) Shutdown() {
	if p != nil && p.scheduler != nil {
		p.scheduler.Shutdown()
	}
}
