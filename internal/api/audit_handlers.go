package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/technosupport/vms-analytics/internal/audit"
)

type AuditQuerier interface {
	QueryEvents(ctx context.Context, f audit.Filter) ([]audit.Event, *time.Time, error)
}

type AuditHandler struct {
	Service AuditQuerier
}

// GET /api/v1/audit/events?result=&target_id=&actor_user_id=&cursor=&limit=
func (h *AuditHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		CompanyID: actor.CompanyID,
		Result:    q.Get("result"),
		TargetID:  q.Get("target_id"),
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = l
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	actorID, ok := optionalUUID(w, r, "actor_user_id")
	if !ok {
		return
	}
	filter.ActorUserID = actorID

	if c := q.Get("cursor"); c != "" {
		t, err := time.Parse(time.RFC3339Nano, c)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		filter.Cursor = &t
	}

	events, next, err := h.Service.QueryEvents(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	resp := map[string]any{"events": events}
	if next != nil {
		resp["cursor"] = next.UTC().Format(time.RFC3339Nano)
	}
	respondJSON(w, http.StatusOK, resp)
}
