package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/audit"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/middleware"
	"github.com/technosupport/vms-analytics/internal/tampering"
)

type WindowReader interface {
	WindowsFor(ctx context.Context, companyID uuid.UUID) (data.WindowConfig, error)
}

type WindowWriter interface {
	Upsert(ctx context.Context, companyID uuid.UUID, w data.WindowConfig) error
}

type AuditWriter interface {
	WriteEvent(ctx context.Context, evt audit.Event) error
}

// SettingsHandler serves company-level tampering settings.
type SettingsHandler struct {
	Windows WindowReader
	Store   WindowWriter
	Audit   AuditWriter
}

// GET /api/v1/settings/tampering-windows
func (h *SettingsHandler) GetTamperingWindows(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	cfg, err := h.Windows.WindowsFor(r.Context(), actor.CompanyID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// PUT /api/v1/settings/tampering-windows
func (h *SettingsHandler) PutTamperingWindows(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var cfg data.WindowConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	if err := tampering.ValidateWindows(cfg); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := h.Store.Upsert(r.Context(), actor.CompanyID, cfg); err != nil {
		respondServiceError(w, r, err)
		return
	}

	uid := actor.UserID
	h.Audit.WriteEvent(r.Context(), audit.Event{
		EventID:     uuid.New(),
		CompanyID:   actor.CompanyID,
		ActorUserID: &uid,
		Action:      "settings.tampering_windows.update",
		TargetType:  "company",
		TargetID:    actor.CompanyID.String(),
		Result:      audit.ResultSuccess,
		RequestID:   middleware.GetRequestID(r.Context()),
		Metadata:    audit.Meta(cfg),
		CreatedAt:   time.Now().UTC(),
	})
	respondJSON(w, http.StatusOK, cfg)
}
