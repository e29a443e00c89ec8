// Package handler exposes the revenue reporting HTTP API.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"pipeline_crm_backend/internal/revenue/repository"
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
	rg.GET("/summary", h.MonthlySummary)
	rg.GET("/records", h.ListRecords)
	rg.GET("/team", httpkit.RequireManager(), h.TeamSummary)
}

type monthlySummaryResponse struct {
	UserID      uuid.UUID `json:"userId"`
	Month       int       `json:"month"`
	Year        int       `json:"year"`
	AmountCents int64     `json:"amountCents"`
}

// MonthlySummary returns the calling user's booked revenue for a month.
// Defaults to the current calendar month.
func (h *Handler) MonthlySummary(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	month, year, ok := parsePeriod(c)
	if !ok {
		return
	}

	total, err := h.repo.MonthlyTotal(c.Request.Context(), identity.UserID(), month, year)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, monthlySummaryResponse{
		UserID:      identity.UserID(),
		Month:       month,
		Year:        year,
		AmountCents: total,
	})
}

type recordResponse struct {
	ID          uuid.UUID `json:"id"`
	LeadID      uuid.UUID `json:"leadId"`
	AmountCents int64     `json:"amountCents"`
	Month       int       `json:"month"`
	Year        int       `json:"year"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *Handler) ListRecords(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	records, err := h.repo.ListByUser(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponse{
			ID:          rec.ID,
			LeadID:      rec.LeadID,
			AmountCents: rec.AmountCents,
			Month:       rec.Month,
			Year:        rec.Year,
			CreatedAt:   rec.CreatedAt,
		})
	}
	httpkit.OK(c, out)
}

type teamSummaryRowResponse struct {
	UserID      uuid.UUID `json:"userId"`
	Username    string    `json:"username"`
	AmountCents int64     `json:"amountCents"`
}

// TeamSummary returns per-user revenue totals for a month. Manager only.
func (h *Handler) TeamSummary(c *gin.Context) {
	month, year, ok := parsePeriod(c)
	if !ok {
		return
	}

	rows, err := h.repo.TeamSummary(c.Request.Context(), month, year)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]teamSummaryRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamSummaryRowResponse{
			UserID:      row.UserID,
			Username:    row.Username,
			AmountCents: row.AmountCents,
		})
	}
	httpkit.OK(c, out)
}

// parsePeriod reads month/year query params, defaulting to the current month.
// Writes the error response itself and returns ok=false on bad input.
func parsePeriod(c *gin.Context) (int, int, bool) {
	now := time.Now()
	month := int(now.Month())
	year := now.Year()

	if raw := c.Query("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "month must be 1-12")
			return 0, 0, false
		}
		month = parsed
	}
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2100 {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "year out of range")
			return 0, 0, false
		}
		year = parsed
	}
	return month, year, true
}
