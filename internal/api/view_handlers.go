package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/analysis"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/results"
	"github.com/technosupport/vms-analytics/internal/tampering"
)

type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*results.AnalysisResult, error)
}

type ResultReader interface {
	Get(ctx context.Context, companyID, viewID, id uuid.UUID) (*results.AnalysisResult, error)
}

type ViewReader interface {
	GetCamera(ctx context.Context, companyID, id uuid.UUID) (*data.Camera, error)
}

type ReferenceFetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

type EventLister interface {
	ListEvents(ctx context.Context, companyID, viewID uuid.UUID, limit int) ([]data.TamperingEvent, error)
}

// ViewHandler serves the analysis endpoints of a view.
type ViewHandler struct {
	Analyzer    Analyzer
	Results     ResultReader
	Views       ViewReader
	References  ReferenceFetcher
	Events      EventLister
	MaxUploadMB int64
}

const defaultMaxUploadMB = 110

// POST /api/v1/views/{id}/analyze
// multipart: one or more "images" parts and an "options" JSON field.
func (h *ViewHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	viewID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	maxMB := h.MaxUploadMB
	if maxMB <= 0 {
		maxMB = defaultMaxUploadMB
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxMB<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var opts analysis.Options
	raw := r.FormValue("options")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "options field is required")
		return
	}
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		respondError(w, http.StatusBadRequest, "invalid options JSON")
		return
	}

	images, err := readImages(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Analyzer.Analyze(r.Context(), analysis.Request{
		Requester: tampering.Requester{CompanyID: actor.CompanyID, UserID: actor.UserID},
		ViewID:    viewID,
		Images:    images,
		Options:   opts,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func readImages(r *http.Request) ([][]byte, error) {
	files := r.MultipartForm.File["images"]
	out := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		b, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// GET /api/v1/views/{id}/analysis-results/{resultId}
func (h *ViewHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	viewID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	resultID, ok := uuidParam(w, r, "resultId")
	if !ok {
		return
	}

	res, err := h.Results.Get(r.Context(), actor.CompanyID, viewID, resultID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GET /api/v1/views/{id}/reference-image?phase=day|night
func (h *ViewHandler) ReferenceImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	viewID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	phase := data.Phase(r.URL.Query().Get("phase"))
	if phase != data.PhaseDay && phase != data.PhaseNight {
		respondError(w, http.StatusBadRequest, "phase must be day or night")
		return
	}

	cam, err := h.Views.GetCamera(r.Context(), actor.CompanyID, viewID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	ref := cam.TamperingConfig.Phase(phase)
	if !ref.HasReference() {
		respondError(w, http.StatusNotFound, "no reference image")
		return
	}

	img, err := h.References.Fetch(r.Context(), *ref.ReferenceImage)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

// GET /api/v1/views/{id}/tampering-events?limit=
func (h *ViewHandler) TamperingEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	viewID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	limit, _ := page(r)

	list, err := h.Events.ListEvents(r.Context(), actor.CompanyID, viewID, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []data.TamperingEvent{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list})
}
