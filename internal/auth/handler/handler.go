// Package handler exposes the auth HTTP API.
package handler

import (
	"net/http"

	"pipeline_crm_backend/internal/auth/service"
	"pipeline_crm_backend/internal/auth/transport"
	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/users/repository"
	"pipeline_crm_backend/platform/httpkit"
	"pipeline_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/signup", h.SignUp)
	rg.POST("/login", h.SignIn)
}

func (h *Handler) SignUp(c *gin.Context) {
	var req transport.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	user, err := h.svc.SignUp(c.Request.Context(), service.SignUpInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Team:      domain.Team(req.Team),
		IsManager: req.IsManager,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, toUserPayload(user))
}

func (h *Handler) SignIn(c *gin.Context) {
	var req transport.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	token, user, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.SignInResponse{
		AccessToken: token,
		User:        toUserPayload(user),
	})
}

func toUserPayload(user repository.User) transport.UserPayload {
	return transport.UserPayload{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Team:      string(user.Team),
		IsManager: user.IsManager,
	}
}
