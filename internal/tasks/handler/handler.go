// Package handler exposes the tasks HTTP API.
package handler

import (
	"errors"
	"net/http"
	"time"

	"pipeline_crm_backend/internal/tasks/repository"
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
	repo *repository.Repository
	val  *validator.Validator
}

func New(repo *repository.Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/overdue-count", h.OverdueCount)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/status", h.UpdateStatus)
}

type taskResponse struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"ownerId"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Deadline    time.Time  `json:"deadline"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toTaskResponse(t repository.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		LeadID:      t.LeadID,
		Subject:     t.Subject,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		Deadline:    t.Deadline,
		CreatedAt:   t.CreatedAt,
	}
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	tasks, err := h.repo.ListByOwner(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	httpkit.OK(c, out)
}

func (h *Handler) GetByID(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	task, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpkit.Error(c, http.StatusNotFound, "task not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	if task.OwnerID != identity.UserID() && !identity.IsManager() {
		httpkit.Error(c, http.StatusForbidden, "task belongs to another user", nil)
		return
	}

	httpkit.OK(c, toTaskResponse(task))
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof='Not Started' 'In Progress' 'Completed'"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	task, err := h.repo.UpdateStatus(c.Request.Context(), id, identity.UserID(), req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpkit.Error(c, http.StatusNotFound, "task not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toTaskResponse(task))
}

func (h *Handler) OverdueCount(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.repo.CountOverdue(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"overdue": count})
}
