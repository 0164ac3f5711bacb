package ticket_api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"ms-visitors/internal/auth"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	tickets "ms-visitors/internal/tickets/service"
	"ms-visitors/internal/utils"
)

type PriceService interface {
	ListPrices(ctx context.Context) ([]models.TicketPrice, error)
	UpdatePrice(ctx context.Context, actor models.Identity, t models.VisitorType, price decimal.Decimal) (*models.TicketPrice, error)
}

type StatsService interface {
	TicketStats(ctx context.Context, from, to *time.Time) ([]models.TicketSalesStats, error)
}

type Handler struct {
	Prices   PriceService
	Stats    StatsService
	Logger   *logger.Logger
	Location *time.Location
}

func NewHandler(prices PriceService, stats StatsService, log *logger.Logger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{Prices: prices, Stats: stats, Logger: log, Location: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/prices", h.ListPrices)
	r.With(auth.RequireRole(models.RoleAdmin)).Put("/prices/{type}", h.UpdatePrice)
	r.Get("/stats", h.GetStats)
}

func (h *Handler) ListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.Prices.ListPrices(r.Context())
	if err != nil {
		utils.WriteError(w, "Failed to load ticket prices", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket prices retrieved successfully", prices)
}

func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req tickets.UpdatePriceRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid price", err)
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, "Invalid price", err)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	updated, err := h.Prices.UpdatePrice(r.Context(), identity, models.VisitorType(chi.URLParam(r, "type")), *req.Price)
	if err != nil {
		utils.WriteError(w, "Failed to update ticket price", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket price updated successfully", updated)
}

// GetStats returns sales per type. A bare to_date covers its whole day.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := utils.ParseOptionalDate(q.Get("from_date"), h.Location)
	if err != nil {
		utils.WriteError(w, "Invalid query", err)
		return
	}
	to, err := utils.ParseOptionalDate(q.Get("to_date"), h.Location)
	if err != nil {
		utils.WriteError(w, "Invalid query", err)
		return
	}
	if to != nil && utils.IsDateOnly(q.Get("to_date")) {
		end := utils.EndOfDay(*to)
		to = &end
	}

	stats, err := h.Stats.TicketStats(r.Context(), from, to)
	if err != nil {
		utils.WriteError(w, "Failed to load ticket stats", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket stats retrieved successfully", stats)
}
