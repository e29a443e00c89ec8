package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pipeline_crm_backend/internal/scheduler"
	"pipeline_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeScheduler struct {
	sweeps int
	checks []scheduler.StagnationCheckPayload
}

func (f *fakeScheduler) EnqueueReminderSweep(ctx context.Context) error {
	f.sweeps++
	return nil
}

func (f *fakeScheduler) EnqueueStagnationCheck(ctx context.Context, payload scheduler.StagnationCheckPayload) error {
	f.checks = append(f.checks, payload)
	return nil
}

func newSweepRouter(sched scheduler.ReminderScheduler, isManager bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	group := engine.Group("/reminders", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextTeamKey, "ADMIN")
		c.Set(httpkit.ContextIsManagerKey, isManager)
	})
	New(nil, sched, nil).RegisterRoutes(group)
	return engine
}

func TestTriggerSweepQueuesFullSweep(t *testing.T) {
	sched := &fakeScheduler{}
	engine := newSweepRouter(sched, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reminders/sweep", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if sched.sweeps != 1 {
		t.Errorf("sweeps enqueued = %d, want 1", sched.sweeps)
	}
	if len(sched.checks) != 0 {
		t.Errorf("stagnation checks enqueued = %d, want 0", len(sched.checks))
	}
}

func TestTriggerSweepTargetsAssignee(t *testing.T) {
	sched := &fakeScheduler{}
	engine := newSweepRouter(sched, true)

	userID := uuid.New()
	body, err := json.Marshal(map[string]string{"userId": userID.String()})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reminders/sweep", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if sched.sweeps != 0 {
		t.Errorf("sweeps enqueued = %d, want 0", sched.sweeps)
	}
	if len(sched.checks) != 1 || sched.checks[0].UserID != userID.String() {
		t.Errorf("stagnation checks = %+v, want one for %s", sched.checks, userID)
	}
}

func TestTriggerSweepRequiresManager(t *testing.T) {
	sched := &fakeScheduler{}
	engine := newSweepRouter(sched, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reminders/sweep", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if sched.sweeps != 0 || len(sched.checks) != 0 {
		t.Error("non-manager request must not enqueue anything")
	}
}

func TestTriggerSweepHiddenWithoutScheduler(t *testing.T) {
	engine := newSweepRouter(nil, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reminders/sweep", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
