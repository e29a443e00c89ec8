// Package handler exposes the leads HTTP API.
package handler

import (
	"net/http"

	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/leads/management"
	"pipeline_crm_backend/internal/leads/repository"
	"pipeline_crm_backend/internal/leads/transition"
	"pipeline_crm_backend/internal/leads/transport"
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
	mgmt       *management.Service
	transition *transition.Service
	val        *validator.Validator
}

func New(mgmt *management.Service, trans *transition.Service, val *validator.Validator) *Handler {
	return &Handler{mgmt: mgmt, transition: trans, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/stages", h.ListStages)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", httpkit.RequireManager(), h.Delete)
	rg.PATCH("/:id/stage", h.ChangeStage)
	rg.PATCH("/:id/financials", h.UpdateFinancials)
	rg.POST("/:id/contacted", h.MarkContacted)
	rg.GET("/:id/audit", h.AuditTrail)
	rg.GET("/:id/can-edit", h.CanEdit)
}

func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	// Unless overridden, the creator is recorded as the lead generator so
	// later advance payments are attributed to them.
	generator := req.LeadGenerator
	if generator == nil {
		id := identity.UserID()
		generator = &id
	}

	lead, err := h.mgmt.CreateLead(c.Request.Context(), management.CreateLeadInput{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		Phone:              req.Phone,
		CompanyName:        req.CompanyName,
		TechRequirements:   req.TechRequirements,
		LeadGenerator:      generator,
		ProjectAmountCents: req.ProjectAmountCents,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

func (h *Handler) List(c *gin.Context) {
	filter := repository.ListFilter{}

	if stage := c.Query("stage"); stage != "" {
		s := domain.Stage(stage)
		filter.Stage = &s
	}
	if assignedTo := c.Query("assignedTo"); assignedTo != "" {
		id, err := uuid.Parse(assignedTo)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		filter.AssignedTo = &id
	}
	filter.Unassigned = c.Query("unassigned") == "true"

	leads, err := h.mgmt.ListLeads(c.Request.Context(), filter)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponses(leads))
}

func (h *Handler) ListStages(c *gin.Context) {
	stages := make([]transport.StageInfo, 0, len(domain.AllStages))
	for _, stage := range domain.AllStages {
		stages = append(stages, transport.StageInfo{
			Value:   string(stage),
			Display: stage.DisplayName(),
			Team:    string(domain.StageOwnership[stage]),
		})
	}
	httpkit.OK(c, stages)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.mgmt.GetLead(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Update(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if !h.requireEditPermission(c, identity, id) {
		return
	}

	lead, err := h.mgmt.UpdateLead(c.Request.Context(), id, management.UpdateLeadInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		CompanyName:      req.CompanyName,
		TechRequirements: req.TechRequirements,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) ChangeStage(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if !h.requireEditPermission(c, identity, id) {
		return
	}

	lead, err := h.transition.ChangeStage(c.Request.Context(), id, domain.Stage(req.Stage), identity.UserID(), req.Notes)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) UpdateFinancials(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateFinancialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if !h.requireEditPermission(c, identity, id) {
		return
	}

	lead, err := h.mgmt.UpdateFinancials(c.Request.Context(), id, management.UpdateFinancialsInput{
		ProjectAmountCents: req.ProjectAmountCents,
		AdvanceAmountCents: req.AdvanceAmountCents,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) MarkContacted(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.mgmt.MarkContacted(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.mgmt.DeleteLead(c.Request.Context(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) AuditTrail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	logs, err := h.transition.History(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToAuditLogResponses(logs))
}

func (h *Handler) CanEdit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	canEdit, err := h.transition.CanEdit(c.Request.Context(), identity.IsManager(), domain.Team(identity.Team()), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.CanEditResponse{CanEdit: canEdit})
}

// requireEditPermission enforces the edit predicate and writes the error
// response itself. Returns false when the caller must stop.
func (h *Handler) requireEditPermission(c *gin.Context, identity httpkit.Identity, leadID uuid.UUID) bool {
	canEdit, err := h.transition.CanEdit(c.Request.Context(), identity.IsManager(), domain.Team(identity.Team()), leadID)
	if err != nil {
		httpkit.HandleError(c, err)
		return false
	}
	if !canEdit {
		httpkit.Error(c, http.StatusForbidden, "lead is not assigned to your team", nil)
		return false
	}
	return true
}
