package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/analysis"
	"github.com/technosupport/vms-analytics/internal/cameras"
	"github.com/technosupport/vms-analytics/internal/engine"
	"github.com/technosupport/vms-analytics/internal/middleware"
	"github.com/technosupport/vms-analytics/internal/results"
	"github.com/technosupport/vms-analytics/internal/storage"
	"github.com/technosupport/vms-analytics/internal/tampering"
)

// Helpers
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors onto status codes. Anything
// unrecognised is a 500 and is logged with the request logger.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *cameras.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Err.Error(), "field": verr.Field})
		return
	}
	var capErr *analysis.CapabilityError
	if errors.As(err, &capErr) {
		respondJSON(w, http.StatusForbidden, map[string]any{"error": "missing_capabilities", "missing": capErr.Missing})
		return
	}

	switch {
	case errors.Is(err, analysis.ErrInvalidOptions),
		errors.Is(err, tampering.ErrMissingReferenceURLs),
		errors.Is(err, tampering.ErrInvalidWindow),
		errors.Is(err, tampering.ErrInvalidTimezone),
		errors.Is(err, engine.ErrNoValidImages),
		errors.Is(err, cameras.ErrEmptyPatch),
		errors.Is(err, cameras.ErrSiteScopeMismatch):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cameras.ErrNotFound),
		errors.Is(err, analysis.ErrViewNotFound),
		errors.Is(err, results.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, analysis.ErrViewDisabled),
		errors.Is(err, cameras.ErrQuotaExceeded):
		respondError(w, http.StatusConflict, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func actorFrom(w http.ResponseWriter, r *http.Request) (cameras.Actor, bool) {
	ac, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return cameras.Actor{}, false
	}
	return cameras.Actor{CompanyID: ac.CompanyID, UserID: ac.UserID}, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// page reads limit/offset; the services clamp the limit.
func page(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
