// Package handler exposes the reminders HTTP API.
package handler

import (
	"context"
	"net/http"

	"pipeline_crm_backend/internal/reminders/monitor"
	"pipeline_crm_backend/internal/reminders/transport"
	"pipeline_crm_backend/internal/scheduler"
	"pipeline_crm_backend/platform/httpkit"
	"pipeline_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc   *monitor.Service
	sched scheduler.ReminderScheduler
	val   *validator.Validator
}

func New(svc *monitor.Service, sched scheduler.ReminderScheduler, val *validator.Validator) *Handler {
	return &Handler{svc: svc, sched: sched, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/check", h.StagnationCheck)
	rg.POST("/:id/complete", h.Complete)
	rg.POST("/:id/dismiss", h.Dismiss)
	rg.POST("/:id/read", h.MarkRead)

	// Queue-backed triggers are only exposed when a scheduler is configured.
	if h.sched != nil {
		rg.POST("/sweep", httpkit.RequireManager(), h.TriggerSweep)
	}
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	list, err := h.svc.List(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToReminderResponses(list))
}

func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	rem, err := h.svc.CreateManual(c.Request.Context(), identity.UserID(), monitor.CreateManualInput{
		LeadID:  req.LeadID,
		DueDate: req.DueDate,
		Message: req.Message,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToReminderResponse(rem))
}

// StagnationCheck runs the stagnation scan for the calling user on demand.
// The scheduler runs the same check periodically for every active assignee.
func (h *Handler) StagnationCheck(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	created, err := h.svc.CheckAndAlert(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.StagnationCheckResponse{Created: created})
}

// TriggerSweep queues a full reminder sweep on the worker, or a stagnation
// scan for a single assignee when the request names one.
func (h *Handler) TriggerSweep(c *gin.Context) {
	var req transport.TriggerSweepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}

	if req.UserID != nil {
		if err := h.sched.EnqueueStagnationCheck(c.Request.Context(), scheduler.StagnationCheckPayload{
			UserID: req.UserID.String(),
		}); err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.SweepQueuedResponse{Job: scheduler.TaskStagnationCheck})
		return
	}

	if err := h.sched.EnqueueReminderSweep(c.Request.Context()); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.SweepQueuedResponse{Job: scheduler.TaskReminderSweep})
}

func (h *Handler) Complete(c *gin.Context) {
	h.finalize(c, h.svc.Complete)
}

func (h *Handler) Dismiss(c *gin.Context) {
	h.finalize(c, h.svc.Dismiss)
}

func (h *Handler) finalize(c *gin.Context, op func(ctx context.Context, id, userID uuid.UUID) error) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := op(c.Request.Context(), id, identity.UserID()); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), id, identity.UserID()); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
