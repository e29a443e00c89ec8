package scheduler

import (
	"context"
	"fmt"

	"pipeline_crm_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// ReminderScheduler enqueues reminder jobs for asynchronous processing by
// the worker. Nil means scheduling is disabled (no Redis configured).
type ReminderScheduler interface {
	EnqueueReminderSweep(ctx context.Context) error
	EnqueueStagnationCheck(ctx context.Context, payload StagnationCheckPayload) error
}

type Client struct {
	client *asynq.Client
	queue  string
}

var _ ReminderScheduler = (*Client)(nil)

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueReminderSweep queues one run of the stale/new-lead sweep.
func (c *Client) EnqueueReminderSweep(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewReminderSweepTask(), asynq.Queue(c.queue))
	return err
}

// EnqueueStagnationCheck queues a stagnation scan for a single assignee.
func (c *Client) EnqueueStagnationCheck(ctx context.Context, payload StagnationCheckPayload) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewStagnationCheckTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
