package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scamwatch/reportbot/internal/models"
	"github.com/scamwatch/reportbot/internal/repository"
)

// defaultListLimit bounds the open-report listing.
const defaultListLimit = 50

// ReportsReader is the read-only slice of the reports repository the ops
// API exposes. This allows mocking in tests.
type ReportsReader interface {
	ListOpen(ctx context.Context, limit int) ([]models.Report, error)
	GetByID(ctx context.Context, id string) (*models.Report, error)
}

// StatsProvider supplies aggregate report counts.
type StatsProvider interface {
	GetStats(ctx context.Context) (*repository.Stats, error)
}

// Handler handles HTTP requests for the ops API.
type Handler struct {
	reports ReportsReader
	stats   StatsProvider
}

// NewHandler creates a new handler.
func NewHandler(reports ReportsReader, stats StatsProvider) *Handler {
	return &Handler{reports: reports, stats: stats}
}

// ReportSummary is the wire shape of one report. Submitter contact data
// stays private; the API is for moderators' dashboards, not the public.
type ReportSummary struct {
	ID            string    `json:"id"`
	AccusedHandle string    `json:"accused_handle"`
	AccusedID     *int64    `json:"accused_id,omitempty"`
	Status        string    `json:"status"`
	Annotation    *string   `json:"annotation,omitempty"`
	Notified      bool      `json:"notified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func summarize(r *models.Report) ReportSummary {
	return ReportSummary{
		ID:            r.ID,
		AccusedHandle: r.AccusedHandle,
		AccusedID:     r.AccusedID,
		Status:        string(r.Status),
		Annotation:    r.Annotation,
		Notified:      r.Notified,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Stats handles GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ListOpenReports handles GET /api/v1/reports
func (h *Handler) ListOpenReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.ListOpen(r.Context(), defaultListLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]ReportSummary, 0, len(reports))
	for i := range reports {
		out = append(out, summarize(&reports[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reports": out,
		"count":   len(out),
	})
}

// GetReport handles GET /api/v1/reports/{id}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.reports.GetByID(r.Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			respondError(w, http.StatusNotFound, "report not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summarize(report))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
