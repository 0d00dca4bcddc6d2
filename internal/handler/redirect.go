package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/splitroute/splitroute/internal/analytics"
	"github.com/splitroute/splitroute/internal/middleware"
	"github.com/splitroute/splitroute/internal/model"
	"github.com/splitroute/splitroute/internal/service"
)

// RedirectHandler handles redirect requests.
type RedirectHandler struct {
	projects   *service.ProjectService
	resolver   *service.Resolver
	aggregator *analytics.Aggregator
	logger     *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(projects *service.ProjectService, resolver *service.Resolver, aggregator *analytics.Aggregator, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{
		projects:   projects,
		resolver:   resolver,
		aggregator: aggregator,
		logger:     logger,
	}
}

// Redirect handles GET /{code}: resolve the visit to a destination and
// issue the redirect. Aggregation runs after the response is decided
// and never delays it.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		h.writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Link not found")
		return
	}

	start := time.Now()

	project, err := h.projects.GetByCode(r.Context(), code)
	if err != nil {
		h.handleLookupError(w, code, err, time.Since(start))
		return
	}

	visit := buildVisitContext(r)
	decision := h.resolver.Resolve(r.Context(), project, visit)
	middleware.AnnotateDecision(r.Context(), decision.MatchedLabel, string(decision.FallbackState), decision.BlockReason)

	if decision.Blocked {
		h.logger.Info("redirect_blocked",
			"code", code,
			"reason", decision.BlockReason,
			"status", decision.Status,
			"fraud_score", decision.Fraud.Score,
			"duration_ms", float64(time.Since(start).Microseconds())/1000,
		)
		h.writeBlocked(w, decision)
		return
	}

	// Record the click and bump the project counter off the hot path.
	h.aggregator.RecordAsync(project, decision, visit)
	h.projects.IncrementClickAsync(project.ID)

	h.logger.Info("redirect_success",
		"code", code,
		"label", decision.MatchedLabel,
		"fallback_state", decision.FallbackState,
		"targeting_matched", decision.TargetingMatched,
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
	)

	h.setSessionCookie(w, r, visit)

	// Set security headers
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "private, max-age=0")

	http.Redirect(w, r, decision.DestinationURL, http.StatusFound)
}

// handleLookupError maps project lookup failures to responses.
func (h *RedirectHandler) handleLookupError(w http.ResponseWriter, code string, err error, duration time.Duration) {
	if errors.Is(err, service.ErrProjectNotFound) {
		h.logger.Info("redirect_not_found",
			"code", code,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Link not found")
		return
	}

	h.logger.Error("redirect_error",
		"code", code,
		"error", err,
		"duration_ms", float64(duration.Microseconds())/1000,
	)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// writeBlocked maps a blocked decision to its HTTP status.
func (h *RedirectHandler) writeBlocked(w http.ResponseWriter, decision *model.Decision) {
	code := "BLOCKED"
	switch decision.Status {
	case http.StatusGone:
		code = "LINK_GONE"
	case http.StatusTooManyRequests:
		code = "RATE_LIMITED"
	case http.StatusNotFound:
		code = "PROJECT_NOT_FOUND"
	}
	h.writeError(w, decision.Status, code, decision.BlockReason)
}

// setSessionCookie persists a freshly minted session id.
func (h *RedirectHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, visit *model.VisitContext) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    visit.SessionID,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeError writes a JSON error response for redirect failures.
func (h *RedirectHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	// Set security headers even on errors
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=0")

	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
