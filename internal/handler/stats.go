package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splitroute/splitroute/internal/analytics"
	"github.com/splitroute/splitroute/internal/model"
	"github.com/splitroute/splitroute/internal/service"
)

// StatsHandler serves the reporting endpoints.
type StatsHandler struct {
	projects   *service.ProjectService
	aggregator *analytics.Aggregator
	logger     *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(projects *service.ProjectService, aggregator *analytics.Aggregator, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		projects:   projects,
		aggregator: aggregator,
		logger:     logger,
	}
}

// GetStats handles GET /api/v1/projects/{projectID}/stats.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	stats, err := h.aggregator.Stats(r.Context(), project)
	if err != nil {
		h.logger.Error("stats_error", "project_id", project.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to build stats", Code: "INTERNAL_ERROR"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ABTestResponse is the A/B significance report.
type ABTestResponse struct {
	ProjectID string               `json:"project_id"`
	Enabled   bool                 `json:"enabled"`
	Results   []model.ABTestResult `json:"results"`
}

// GetABTest handles GET /api/v1/projects/{projectID}/abtest.
func (h *StatsHandler) GetABTest(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	stats := h.aggregator.VariantStats(r.Context(), project)

	writeJSON(w, http.StatusOK, ABTestResponse{
		ProjectID: project.ID,
		Enabled:   project.ABTestEnabled(),
		Results:   analytics.AnalyzeABTest(stats),
	})
}

// RecordConversion handles POST /api/v1/projects/{projectID}/conversions/{label}.
// Invoked by the destination page's tracking snippet.
func (h *StatsHandler) RecordConversion(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	label := chi.URLParam(r, "label")
	if label == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "label is required", Code: "INVALID_LABEL"})
		return
	}

	h.aggregator.RecordConversion(r.Context(), project, label)
	w.WriteHeader(http.StatusNoContent)
}

// loadProject resolves the projectID path parameter, writing the error
// response itself on failure.
func (h *StatsHandler) loadProject(w http.ResponseWriter, r *http.Request) (*model.Project, bool) {
	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "project not found", Code: "PROJECT_NOT_FOUND"})
		return nil, false
	}

	project, err := h.projects.GetByID(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "project not found", Code: "PROJECT_NOT_FOUND"})
		} else {
			h.logger.Error("project_lookup_error", "project_id", projectID, "error", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "an internal error occurred", Code: "INTERNAL_ERROR"})
		}
		return nil, false
	}

	return project, true
}
