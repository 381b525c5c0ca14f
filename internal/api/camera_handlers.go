package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/cameras"
	"github.com/technosupport/vms-analytics/internal/data"
)

type CameraHandler struct {
	Service *cameras.Service
}

func NewCameraHandler(svc *cameras.Service) *CameraHandler {
	return &CameraHandler{Service: svc}
}

// POST /api/v1/cameras
func (h *CameraHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req struct {
		ClientID           uuid.UUID `json:"client_id"`
		SiteID             uuid.UUID `json:"site_id"`
		Name               string    `json:"name"`
		StreamURL          string    `json:"stream_url"`
		IsEnabled          *bool     `json:"is_enabled,omitempty"`
		SceneChangeEnabled bool      `json:"scene_change_enabled"`
		Tags               []string  `json:"tags"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClientID == uuid.Nil || req.SiteID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "client_id and site_id are required")
		return
	}

	c := &data.Camera{
		ClientID:           req.ClientID,
		SiteID:             req.SiteID,
		Name:               req.Name,
		StreamURL:          req.StreamURL,
		IsEnabled:          true,
		SceneChangeEnabled: req.SceneChangeEnabled,
		Tags:               req.Tags,
	}
	if req.IsEnabled != nil {
		c.IsEnabled = *req.IsEnabled
	}

	if err := h.Service.CreateCamera(r.Context(), actor, c); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// GET /api/v1/cameras
func (h *CameraHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var filter data.CameraFilter
	if filter.ClientID, ok = optionalUUID(w, r, "client_id"); !ok {
		return
	}
	if filter.SiteID, ok = optionalUUID(w, r, "site_id"); !ok {
		return
	}
	if v := q.Get("enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid enabled")
			return
		}
		filter.IsEnabled = &b
	}
	filter.Query = q.Get("q")

	limit, offset := page(r)
	list, total, err := h.Service.ListCameras(r.Context(), actor.CompanyID, filter, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*data.Camera{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list, "total": total})
}

// GET /api/v1/cameras/{id}
func (h *CameraHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	c, err := h.Service.GetCamera(r.Context(), actor.CompanyID, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// PATCH /api/v1/cameras/{id}
func (h *CameraHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Name      *string  `json:"name"`
		StreamURL *string  `json:"stream_url"`
		Tags      []string `json:"tags"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := data.CameraPatch{Name: req.Name, StreamURL: req.StreamURL, Tags: req.Tags}
	c, err := h.Service.UpdateView(r.Context(), actor.CompanyID, actor.UserID, id, patch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if c == nil {
		respondServiceError(w, r, cameras.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DELETE /api/v1/cameras/{id}
func (h *CameraHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Service.DeleteCamera)
}

// POST /api/v1/cameras/{id}/enable
func (h *CameraHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Service.EnableCamera)
}

// POST /api/v1/cameras/{id}/disable
func (h *CameraHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Service.DisableCamera)
}

// DELETE /api/v1/cameras/{id}/reference-images
func (h *CameraHandler) ResetReferences(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Service.ResetReferences)
}

func (h *CameraHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, cameras.Actor, uuid.UUID) error) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := fn(r.Context(), actor, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PATCH /api/v1/cameras/{id}/scene-change
func (h *CameraHandler) SetSceneChange(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	c, err := h.Service.SetSceneChange(r.Context(), actor, id, *req.Enabled)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}
