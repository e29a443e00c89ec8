// Package handler exposes the notifications HTTP API.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"pipeline_crm_backend/internal/notifications/inapp"
	"pipeline_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *inapp.Service
}

func New(svc *inapp.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread-count", h.UnreadCount)
	rg.POST("/:id/read", h.MarkRead)
	rg.POST("/read-all", h.MarkAllRead)
}

type notificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Message   string     `json:"message"`
	LeadID    *uuid.UUID `json:"leadId,omitempty"`
	TaskID    *uuid.UUID `json:"taskId,omitempty"`
	IsRead    bool       `json:"isRead"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		limit = parsed
	}

	notifications, err := h.svc.List(c.Request.Context(), identity.UserID(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			LeadID:    n.LeadID,
			TaskID:    n.TaskID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	httpkit.OK(c, out)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"unread": count})
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

func (h *Handler) MarkAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	updated, err := h.svc.MarkAllRead(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"updated": updated})
}
