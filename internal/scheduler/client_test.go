package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type stubConfig struct {
	redisURL string
}

func (c stubConfig) GetRedisURL() string             { return c.redisURL }
func (c stubConfig) GetAsynqQueueName() string       { return "crm" }
func (c stubConfig) GetAsynqConcurrency() int        { return 2 }
func (c stubConfig) GetSweepInterval() time.Duration { return time.Hour }

func TestClientEnqueue(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(stubConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnqueueReminderSweep(ctx); err != nil {
		t.Fatalf("EnqueueReminderSweep failed: %v", err)
	}
	if err := client.EnqueueStagnationCheck(ctx, StagnationCheckPayload{UserID: uuid.NewString()}); err != nil {
		t.Fatalf("EnqueueStagnationCheck failed: %v", err)
	}

	if len(mr.Keys()) == 0 {
		t.Fatal("no keys written to redis after enqueue")
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(stubConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestStagnationCheckPayloadRoundTrip(t *testing.T) {
	userID := uuid.NewString()
	task, err := NewStagnationCheckTask(StagnationCheckPayload{UserID: userID})
	if err != nil {
		t.Fatalf("NewStagnationCheckTask failed: %v", err)
	}
	if task.Type() != TaskStagnationCheck {
		t.Errorf("task type = %q, want %q", task.Type(), TaskStagnationCheck)
	}

	payload, err := ParseStagnationCheckPayload(task)
	if err != nil {
		t.Fatalf("ParseStagnationCheckPayload failed: %v", err)
	}
	if payload.UserID != userID {
		t.Errorf("user id = %q, want %q", payload.UserID, userID)
	}
}
