package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/capintel/internal/domain"
	"github.com/opensource-finance/capintel/internal/explain"
)

// recordCacheTTL bounds how long audit records stay in the read cache.
const recordCacheTTL = 5 * time.Minute

// defaultListLimit and maxListLimit bound GET /explanations pagination.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Handler holds dependencies for API handlers.
type Handler struct {
	svc     *explain.Service
	repo    domain.Repository
	cache   domain.Cache
	version string
}

// NewHandler creates a new API handler.
func NewHandler(svc *explain.Service, repo domain.Repository, cache domain.Cache, version string) *Handler {
	return &Handler{
		svc:     svc,
		repo:    repo,
		cache:   cache,
		version: version,
	}
}

// Explain handles POST /explain/{role}.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Role and payload are checked here, before any external call.
	role, err := domain.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	payload, err := domain.ParsePayload(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	resp, err := h.svc.Explain(ctx, role, payload)
	if err != nil {
		h.writeExplainError(w, role, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeExplainError maps pipeline failures onto status codes. Policy
// violations get a generic message: neither the generated text nor the
// matched term may leave the service.
func (h *Handler) writeExplainError(w http.ResponseWriter, role domain.Role, err error) {
	switch {
	case errors.Is(err, domain.ErrPolicyViolation):
		slog.Warn("explanation rejected by policy filter", "role", role)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "generated explanation did not meet disclosure policy",
		})

	case errors.Is(err, domain.ErrUnsupportedRole), errors.Is(err, domain.ErrSchemaViolation):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})

	case errors.Is(err, domain.ErrExternalService):
		slog.Error("text generation backend failed", "role", role, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "text generation backend unavailable",
		})

	default:
		slog.Error("explanation failed", "role", role, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

// GetExplanation handles GET /explanations/{id}, reading through the cache.
func (h *Handler) GetExplanation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "explanation id is required",
		})
		return
	}

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, recordCacheKey(id)); err == nil && cached != nil {
			var rec domain.ExplanationRecord
			if json.Unmarshal(cached, &rec) == nil {
				writeJSON(w, http.StatusOK, &rec)
				return
			}
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	rec, err := h.repo.GetExplanation(ctx, id)
	if err != nil {
		slog.Error("failed to get explanation record", "id", id, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "explanation not found",
		})
		return
	}

	if h.cache != nil {
		if encoded, err := json.Marshal(rec); err == nil {
			_ = h.cache.Set(ctx, recordCacheKey(id), encoded, recordCacheTTL)
		}
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListExplanations handles GET /explanations with optional role and limit
// query parameters.
func (h *Handler) ListExplanations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	var role domain.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := domain.ParseRole(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		role = parsed
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	records, err := h.repo.ListExplanations(ctx, role, limit)
	if err != nil {
		slog.Error("failed to list explanation records", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list explanations",
		})
		return
	}

	if records == nil {
		records = []*domain.ExplanationRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"explanations": records,
		"count":        len(records),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func recordCacheKey(id string) string {
	return "explanation:" + id
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
