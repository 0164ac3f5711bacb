package report_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-visitors/internal/auth"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	"ms-visitors/internal/reports"
	"ms-visitors/internal/utils"
)

type ReportService interface {
	Generate(ctx context.Context, actor models.Identity, req models.GenerateReportRequest) (*reports.GenerateResult, error)
	Export(report *models.Report) ([]byte, string, error)
	ExportByID(ctx context.Context, id string) ([]byte, string, error)
}

type Handler struct {
	Reports ReportService
	Logger  *logger.Logger
}

func NewHandler(svc ReportService, log *logger.Logger) *Handler {
	return &Handler{Reports: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generate", h.GenerateReport)
	r.Post("/export", h.ExportReport)
	r.Get("/{reportId}/export", h.ExportCachedReport)
}

func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateReportRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid report request", err)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	result, err := h.Reports.Generate(r.Context(), identity, req)
	if err != nil {
		utils.WriteError(w, "Failed to generate report", err)
		return
	}

	if result.SentTo != "" {
		utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Report sent successfully to %s", result.SentTo),
			map[string]string{"report_id": result.Report.ID})
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Report generated successfully", result.Report)
}

// ExportReport renders the report carried in the request body.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	var req models.ExportReportRequest
	if err := utils.DecodeJSONLenient(r, &req); err != nil {
		utils.WriteError(w, "Invalid export request", err)
		return
	}

	doc, filename, err := h.Reports.Export(req.ReportData)
	if err != nil {
		utils.WriteError(w, "Failed to export report", err)
		return
	}
	writePDF(w, doc, filename)
}

// ExportCachedReport renders a report generated earlier, by id.
func (h *Handler) ExportCachedReport(w http.ResponseWriter, r *http.Request) {
	doc, filename, err := h.Reports.ExportByID(r.Context(), chi.URLParam(r, "reportId"))
	if err != nil {
		utils.WriteError(w, "Failed to export report", err)
		return
	}
	writePDF(w, doc, filename)
}

func writePDF(w http.ResponseWriter, doc []byte, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}
