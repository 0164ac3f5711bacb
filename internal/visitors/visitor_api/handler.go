package visitor_api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/auth"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	"ms-visitors/internal/utils"
	"ms-visitors/internal/visitors/pass"
)

type VisitorService interface {
	CreateVisitor(ctx context.Context, actor models.Identity, in models.VisitorInput) (*models.Visitor, error)
	GetVisitor(ctx context.Context, id string) (*models.Visitor, error)
	UpdateVisitor(ctx context.Context, actor models.Identity, id string, patch models.VisitorPatch) (*models.Visitor, error)
	DeleteVisitor(ctx context.Context, actor models.Identity, id string) error
	ListVisitors(ctx context.Context, f models.VisitorFilter) (*models.VisitorPage, error)
}

type DashboardService interface {
	Dashboard(ctx context.Context, now time.Time) (*models.DashboardStats, error)
}

type PassIssuer interface {
	PNG(v *models.Visitor) ([]byte, error)
	Open(token string) (*pass.Claims, error)
}

type Handler struct {
	Visitors  VisitorService
	Dashboard DashboardService
	Passes    PassIssuer
	Logger    *logger.Logger
	Location  *time.Location
	Now       func() time.Time
}

func NewHandler(visitors VisitorService, dashboard DashboardService, passes PassIssuer, log *logger.Logger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		Visitors:  visitors,
		Dashboard: dashboard,
		Passes:    passes,
		Logger:    log,
		Location:  loc,
		Now:       time.Now,
	}
}

// RegisterRoutes mounts the visitor routes. r must already run the auth
// middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	writers := auth.RequireRole(models.RoleAdmin, models.RoleStaff)

	r.Get("/", h.ListVisitors)
	r.With(writers).Post("/", h.CreateVisitor)
	r.Get("/stats/dashboard", h.GetDashboard)
	r.Post("/pass/verify", h.VerifyPass)
	r.Get("/{id}", h.GetVisitor)
	r.With(writers).Put("/{id}", h.UpdateVisitor)
	r.With(auth.RequireRole(models.RoleAdmin)).Delete("/{id}", h.DeleteVisitor)
	r.Get("/{id}/pass", h.GetPass)
}

func actor(r *http.Request) models.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func (h *Handler) CreateVisitor(w http.ResponseWriter, r *http.Request) {
	var in models.VisitorInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, "Invalid visitor", err)
		return
	}

	v, err := h.Visitors.CreateVisitor(r.Context(), actor(r), in)
	if err != nil {
		utils.WriteError(w, "Failed to create visitor", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Visitor created successfully", v)
}

func (h *Handler) GetVisitor(w http.ResponseWriter, r *http.Request) {
	v, err := h.Visitors.GetVisitor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, "Failed to get visitor", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Visitor retrieved successfully", v)
}

func (h *Handler) UpdateVisitor(w http.ResponseWriter, r *http.Request) {
	var patch models.VisitorPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.WriteError(w, "Invalid visitor update", err)
		return
	}

	v, err := h.Visitors.UpdateVisitor(r.Context(), actor(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		utils.WriteError(w, "Failed to update visitor", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Visitor updated successfully", v)
}

func (h *Handler) DeleteVisitor(w http.ResponseWriter, r *http.Request) {
	if err := h.Visitors.DeleteVisitor(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, "Failed to delete visitor", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Visitor deleted successfully", nil)
}

func (h *Handler) ListVisitors(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilter(r)
	if err != nil {
		utils.WriteError(w, "Invalid query", err)
		return
	}

	page, err := h.Visitors.ListVisitors(r.Context(), f)
	if err != nil {
		utils.WriteError(w, "Failed to list visitors", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Visitors retrieved successfully", page)
}

// parseFilter reads the list query. A bare to_date covers its whole day.
func (h *Handler) parseFilter(r *http.Request) (models.VisitorFilter, error) {
	q := r.URL.Query()
	f := models.VisitorFilter{
		Search: q.Get("search"),
		Type:   models.VisitorType(q.Get("type")),
	}

	var err error
	if f.Page, err = optionalInt(q.Get("page"), "page"); err != nil {
		return f, err
	}
	if f.Limit, err = optionalInt(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.FromDate, err = utils.ParseOptionalDate(q.Get("from_date"), h.Location); err != nil {
		return f, err
	}
	if f.ToDate, err = utils.ParseOptionalDate(q.Get("to_date"), h.Location); err != nil {
		return f, err
	}
	if f.ToDate != nil && utils.IsDateOnly(q.Get("to_date")) {
		end := utils.EndOfDay(*f.ToDate)
		f.ToDate = &end
	}
	return f, nil
}

func optionalInt(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return n, nil
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.Dashboard(r.Context(), h.Now())
	if err != nil {
		utils.WriteError(w, "Failed to load dashboard", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Dashboard retrieved successfully", stats)
}

// GetPass returns the visitor's admission pass as a QR code image.
func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	v, err := h.Visitors.GetVisitor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, "Failed to get visitor", err)
		return
	}

	png, err := h.Passes.PNG(v)
	if err != nil {
		h.Logger.Error("PASS", fmt.Sprintf("Failed to render pass for %s: %v", v.ID, err))
		utils.WriteError(w, "Failed to render pass", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=pass_%s.png", v.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

type verifyPassRequest struct {
	Token string `json:"token" validate:"required"`
}

type verifyPassResponse struct {
	Visitor *models.Visitor `json:"visitor"`
	// ValidToday is true when the pass is for the current calendar day.
	ValidToday bool `json:"valid_today"`
}

// VerifyPass opens a scanned pass token and returns the visitor it admits.
func (h *Handler) VerifyPass(w http.ResponseWriter, r *http.Request) {
	var req verifyPassRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid pass", err)
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, "Invalid pass", err)
		return
	}

	claims, err := h.Passes.Open(req.Token)
	if err != nil {
		h.Logger.LogSecurity("PASS_REJECTED", fmt.Sprintf("by %s: %v", actor(r).Username, err))
		utils.WriteError(w, "Invalid pass", err)
		return
	}

	v, err := h.Visitors.GetVisitor(r.Context(), claims.VisitorID)
	if err != nil {
		utils.WriteError(w, "Pass refers to an unknown visitor", err)
		return
	}

	now := h.Now().In(h.Location)
	visit := v.VisitDate.In(h.Location)
	resp := verifyPassResponse{
		Visitor:    v,
		ValidToday: utils.StartOfDay(now).Equal(utils.StartOfDay(visit)),
	}
	utils.WriteSuccess(w, http.StatusOK, "Pass verified", resp)
}
