package api

import (
	"context"
	"net/http"
	"time"

	"github.com/technosupport/vms-analytics/internal/middleware"
)

type TokenRevoker interface {
	AddToBlacklist(ctx context.Context, companyID, jti string, ttl time.Duration) error
}

type AuthHandler struct {
	Blacklist TokenRevoker
	now       func() time.Time
}

// POST /api/v1/auth/revoke
// Blacklists the presented access token until it would have expired anyway.
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if ac.TokenID == "" {
		respondError(w, http.StatusBadRequest, "token has no id")
		return
	}

	now := time.Now
	if h.now != nil {
		now = h.now
	}
	ttl := ac.ExpiresAt.Sub(now())
	if err := h.Blacklist.AddToBlacklist(r.Context(), ac.CompanyID.String(), ac.TokenID, ttl); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
