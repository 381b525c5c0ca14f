package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/cameras"
	"github.com/technosupport/vms-analytics/internal/data"
)

// InventoryHandler serves clients and sites.
type InventoryHandler struct {
	Service *cameras.Service
}

func NewInventoryHandler(svc *cameras.Service) *InventoryHandler {
	return &InventoryHandler{Service: svc}
}

type clientRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
}

// POST /api/v1/clients
func (h *InventoryHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req clientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := &data.Client{Name: req.Name, ContactEmail: req.ContactEmail}
	if err := h.Service.CreateClient(r.Context(), actor, c); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// GET /api/v1/clients
func (h *InventoryHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	limit, offset := page(r)
	list, total, err := h.Service.ListClients(r.Context(), actor.CompanyID, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*data.Client{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list, "total": total})
}

// GET /api/v1/clients/{id}
func (h *InventoryHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.GetClient(r.Context(), actor.CompanyID, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// PUT /api/v1/clients/{id}
func (h *InventoryHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req clientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := &data.Client{ID: id, Name: req.Name, ContactEmail: req.ContactEmail}
	if err := h.Service.UpdateClient(r.Context(), actor, c); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DELETE /api/v1/clients/{id}
func (h *InventoryHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteClient(r.Context(), actor, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type siteRequest struct {
	ClientID  uuid.UUID `json:"client_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Timezone  string    `json:"timezone"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
}

func (req siteRequest) site(id uuid.UUID) *data.Site {
	return &data.Site{
		ID:        id,
		ClientID:  req.ClientID,
		Name:      req.Name,
		Address:   req.Address,
		Timezone:  req.Timezone,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
}

// POST /api/v1/sites
func (h *InventoryHandler) CreateSite(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req siteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClientID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	site := req.site(uuid.Nil)
	if err := h.Service.CreateSite(r.Context(), actor, site); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, site)
}

// GET /api/v1/sites?client_id=
func (h *InventoryHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	clientID, ok := optionalUUID(w, r, "client_id")
	if !ok {
		return
	}
	limit, offset := page(r)
	list, err := h.Service.ListSites(r.Context(), actor.CompanyID, clientID, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*data.Site{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list})
}

// GET /api/v1/sites/{id}
func (h *InventoryHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	site, err := h.Service.GetSite(r.Context(), actor.CompanyID, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, site)
}

// PUT /api/v1/sites/{id}
func (h *InventoryHandler) UpdateSite(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req siteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	site := req.site(id)
	if err := h.Service.UpdateSite(r.Context(), actor, site); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, site)
}

// DELETE /api/v1/sites/{id}
func (h *InventoryHandler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteSite(r.Context(), actor, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
