package tampering

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/engine"
)

// ResultCode is the externally visible scene-change outcome.
type ResultCode string

const (
	ResultValid        ResultCode = "valid"
	ResultNotValid     ResultCode = "not_valid"
	ResultNotPerformed ResultCode = "not_performed"
)

// Reason codes attached to not_performed results.
const (
	ReasonNotRequested   = "not_requested"
	ReasonSkipped        = "skipped"
	ReasonNotEligible    = "not_eligible"
	ReasonNoReference    = "no_reference"
	ReasonEngineDeclined = "engine_declined"
)

// SceneChangeResult is the four-way truth table over the engine flags.
func SceneChangeResult(isPerformed, isValid bool) ResultCode {
	if !isPerformed {
		return ResultNotPerformed
	}
	if isValid {
		return ResultValid
	}
	return ResultNotValid
}

type Reason struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

type SceneChange struct {
	Result ResultCode `json:"result"`
	Reason *Reason    `json:"reason,omitempty"`
}

type Summary struct {
	Mode              PayloadKind `json:"mode"`
	IsPerformed       bool        `json:"isPerformed"`
	IsValid           bool        `json:"isValid"`
	IsDay             *bool       `json:"isDay,omitempty"`
	ReferenceImageURL string      `json:"referenceImageUrl,omitempty"`
}

// Interpretation is the caller-visible tampering part of an analysis response.
type Interpretation struct {
	SceneChange SceneChange `json:"sceneChange"`
	Tampering   Summary     `json:"tampering"`
}

// ReferenceURLFunc addresses the stored reference image of a view phase.
type ReferenceURLFunc func(viewID uuid.UUID, phase data.Phase) string

type DetectionRecorder interface {
	Insert(ctx context.Context, d *data.TamperingDetection) error
}

// Interpreter turns the engine verdict into the stable result vocabulary
// and applies the bookkeeping that follows a check.
type Interpreter struct {
	referenceURL ReferenceURLFunc
	references   *ReferenceCoordinator
	detections   DetectionRecorder
	events       EventWriter
	now          func() time.Time
}

func NewInterpreter(urls ReferenceURLFunc, refs *ReferenceCoordinator, detections DetectionRecorder, events EventWriter) *Interpreter {
	return &Interpreter{
		referenceURL: urls,
		references:   refs,
		detections:   detections,
		events:       events,
		now:          time.Now,
	}
}

// ToResponse maps verdict (nil when the engine returned none) for the given payload.
func (i *Interpreter) ToResponse(viewID uuid.UUID, payload DetectionPayload, verdict *engine.TamperingVerdict) Interpretation {
	out := Interpretation{Tampering: Summary{Mode: payload.Kind}}

	switch payload.Kind {
	case KindSkip:
		out.SceneChange = notPerformed(ReasonNotRequested)
		return out
	case KindWithChecksSkip:
		out.SceneChange = notPerformed(ReasonSkipped)
		return out
	case KindWithChecksNotEligible:
		out.SceneChange = notPerformed(ReasonNotEligible)
		return out
	case KindWithChecksNoReferences:
		out.SceneChange = notPerformed(ReasonNoReference)
		return out
	}

	if verdict == nil {
		out.SceneChange = notPerformed(ReasonEngineDeclined)
		return out
	}
	if verdict.Error != "" {
		out.SceneChange = SceneChange{Result: ResultNotPerformed, Reason: &Reason{Error: verdict.Error}}
		return out
	}

	isDay := verdict.IsDay
	out.Tampering.IsPerformed = verdict.IsPerformed
	out.Tampering.IsValid = verdict.IsValid
	out.Tampering.IsDay = &isDay
	out.SceneChange = SceneChange{Result: SceneChangeResult(verdict.IsPerformed, verdict.IsValid)}
	if !verdict.IsPerformed {
		out.SceneChange.Reason = &Reason{Code: ReasonEngineDeclined}
	}

	if payload.Kind == KindWithChecksProceed && verdict.IsPerformed && i.referenceURL != nil {
		phase := PhaseFor(verdict.IsDay)
		if payload.HasLabel(phase) {
			out.Tampering.ReferenceImageURL = i.referenceURL(viewID, phase)
		}
	}
	return out
}

func notPerformed(code string) SceneChange {
	return SceneChange{Result: ResultNotPerformed, Reason: &Reason{Code: code}}
}

// Apply runs the side effects of a finished check. It never fails the request.
func (i *Interpreter) Apply(ctx context.Context, req Requester, cam *data.Camera, image []byte, payload DetectionPayload, verdict *engine.TamperingVerdict, log zerolog.Logger) {
	switch payload.Kind {
	case KindWithChecksNoReferences:
		i.recordMissingBaseline(ctx, cam, log)
		i.references.SetReferenceImage(ctx, req, cam, image, i.references.IsDayTime(cam), log)

	case KindWithChecksProceed:
		if verdict == nil || verdict.Error != "" || !verdict.IsPerformed {
			return
		}
		det := &data.TamperingDetection{
			ViewID:    cam.ID,
			CompanyID: cam.CompanyID,
			IsValid:   verdict.IsValid,
			IsDay:     verdict.IsDay,
			CreatedAt: i.now().UTC(),
		}
		if ref, ok := payload.ReferenceFor(PhaseFor(verdict.IsDay)); ok {
			det.ReferenceID = ref.ID
		}
		if err := i.detections.Insert(ctx, det); err != nil {
			log.Error().Err(err).Str("view_id", cam.ID.String()).Msg("recording tampering detection failed")
		}
		i.references.MaybeSaveMissingReference(ctx, req, cam, image, payload.References, log)
	}
}

func (i *Interpreter) recordMissingBaseline(ctx context.Context, cam *data.Camera, log zerolog.Logger) {
	meta, _ := json.Marshal(map[string]string{"reason": ReasonNoReference})
	evt := &data.TamperingEvent{
		ViewID:    cam.ID,
		CompanyID: cam.CompanyID,
		Status:    data.TamperingStatusFailed,
		Timestamp: i.now().UTC(),
		Metadata:  meta,
	}
	if err := i.events.CreateTamperingEvent(ctx, evt); err != nil {
		log.Error().Err(err).Str("view_id", cam.ID.String()).Msg("writing tampering event failed")
	}
}
