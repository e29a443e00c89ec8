// Package handler exposes the users HTTP API.
package handler

import (
	"errors"
	"net/http"
	"time"

	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/users/repository"
	"pipeline_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/me", h.Me)
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Team      string    `json:"team"`
	IsManager bool      `json:"isManager"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u repository.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Team:      string(u.Team),
		IsManager: u.IsManager,
		CreatedAt: u.CreatedAt,
	}
}

// List returns users for assignment pickers. Optional team filter.
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var team *domain.Team
	if raw := c.Query("team"); raw != "" {
		t := domain.Team(raw)
		if t != domain.TeamAdmin && t != domain.TeamSales && t != domain.TeamTech {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "unknown team")
			return
		}
		team = &t
	}

	users, err := h.repo.List(c.Request.Context(), team)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpkit.OK(c, out)
}

func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), identity.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpkit.Error(c, http.StatusNotFound, "user not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toUserResponse(user))
}
