package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/open-procurement/ecatalog/internal/catalog"
	"github.com/open-procurement/ecatalog/internal/models"
	"github.com/open-procurement/ecatalog/internal/profile"
	"github.com/open-procurement/ecatalog/internal/validation"
)

// Response helpers. Error bodies follow the field-map convention: validation
// failures return the field→message structure as-is, everything else uses
// {"detail": "..."}.

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// respondServiceError maps domain errors onto the HTTP taxonomy.
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		respondDetail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, profile.ErrMissingAccess):
		respondDetail(w, http.StatusBadRequest, "Missing access data")
	case errors.Is(err, profile.ErrWrongAccess):
		respondDetail(w, http.StatusBadRequest, "Wrong access data")
	default:
		slog.Error("request failed", "error", err)
		respondDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		respondDetail(w, http.StatusServiceUnavailable, "Service not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Query helpers

func parseID(raw string) (uuid.UUID, bool) {
	id, err := models.ParseHexID(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// queryTime accepts RFC 3339 timestamps and plain dates.
func queryTime(r *http.Request, name string) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
