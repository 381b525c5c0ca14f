package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/cameras"
	"github.com/technosupport/vms-analytics/internal/capabilities"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/engine"
	"github.com/technosupport/vms-analytics/internal/metrics"
	"github.com/technosupport/vms-analytics/internal/results"
	"github.com/technosupport/vms-analytics/internal/tampering"
)

type CameraSource interface {
	GetCamera(ctx context.Context, companyID, id uuid.UUID) (*data.Camera, error)
}

type CapabilityChecker interface {
	CheckDetectionCapabilities(ctx context.Context, companyID uuid.UUID, detections []string) (capabilities.Verdict, error)
}

type TamperingConfigurer interface {
	ConfigureTampering(ctx context.Context, ac *tampering.AnalysisContext) error
}

type Engine interface {
	Analyze(ctx context.Context, req engine.Request) (*engine.Result, error)
}

type ResultInterpreter interface {
	ToResponse(viewID uuid.UUID, payload tampering.DetectionPayload, verdict *engine.TamperingVerdict) tampering.Interpretation
	Apply(ctx context.Context, req tampering.Requester, cam *data.Camera, image []byte, payload tampering.DetectionPayload, verdict *engine.TamperingVerdict, log zerolog.Logger)
}

type ResultStore interface {
	Save(ctx context.Context, r *results.AnalysisResult) error
}

type Request struct {
	Requester tampering.Requester
	ViewID    uuid.UUID
	Images    [][]byte
	Options   Options
}

type Dependencies struct {
	Cameras      CameraSource
	Capabilities CapabilityChecker
	Tampering    TamperingConfigurer
	Engine       Engine
	Interpreter  ResultInterpreter
	Results      ResultStore
	ReferenceURL tampering.ReferenceURLFunc
}

// Service runs one analysis request end to end.
type Service struct {
	deps Dependencies
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(deps Dependencies, log zerolog.Logger) *Service {
	return &Service{
		deps: deps,
		log:  log.With().Str("component", "analysis").Logger(),
		now:  time.Now,
	}
}

func (s *Service) Analyze(ctx context.Context, req Request) (*results.AnalysisResult, error) {
	opts := req.Options
	if err := opts.Validate(req.Images); err != nil {
		metrics.RecordAnalysis("none", "invalid")
		return nil, err
	}

	log := s.log.With().
		Str("company_id", req.Requester.CompanyID.String()).
		Str("view_id", req.ViewID.String()).
		Logger()

	cam, err := s.deps.Cameras.GetCamera(ctx, req.Requester.CompanyID, req.ViewID)
	if errors.Is(err, cameras.ErrNotFound) {
		return nil, ErrViewNotFound
	}
	if err != nil {
		metrics.RecordFailure("camera")
		return nil, fmt.Errorf("load view: %w", err)
	}
	if !cam.IsEnabled {
		return nil, ErrViewDisabled
	}

	verdict, err := s.deps.Capabilities.CheckDetectionCapabilities(ctx, req.Requester.CompanyID, opts.Detections)
	if err != nil {
		metrics.RecordFailure("capabilities")
		return nil, err
	}
	var blocking []string
	for _, m := range verdict.Missing {
		if m != capabilities.Tampering {
			blocking = append(blocking, m)
		}
	}
	if len(blocking) > 0 {
		metrics.RecordAnalysis("none", "forbidden")
		return nil, &CapabilityError{Missing: blocking}
	}

	now := s.now()
	ac := &tampering.AnalysisContext{
		Requester:        req.Requester,
		Camera:           cam,
		OnDemand:         opts.onDemand(),
		TamperingAllowed: !verdict.Lacks(capabilities.Tampering),
		Now:              now,
		Logger:           log,
		Detections:       tampering.Detections{TamperingRequested: opts.Has(capabilities.Tampering)},
	}
	if err := s.deps.Tampering.ConfigureTampering(ctx, ac); err != nil {
		if errors.Is(err, tampering.ErrMissingReferenceURLs) {
			metrics.RecordAnalysis("none", "invalid")
			return nil, err
		}
		metrics.RecordFailure("tampering")
		return nil, fmt.Errorf("configure tampering: %w", err)
	}
	payload := ac.Detections.Tampering.WithReferenceURLs(cam.ID, s.deps.ReferenceURL)

	engineOpts, err := engineOptions(&opts, payload)
	if err != nil {
		metrics.RecordFailure("options")
		return nil, err
	}

	raw, err := s.deps.Engine.Analyze(ctx, engine.Request{
		Images:  engine.EncodeImages(req.Images),
		Options: engineOpts,
	})
	if err != nil {
		if errors.Is(err, engine.ErrNoValidImages) {
			metrics.RecordAnalysis(string(payload.Kind), "no_valid_images")
			return nil, err
		}
		metrics.RecordFailure("engine")
		return nil, fmt.Errorf("analysis engine: %w", err)
	}

	interp := s.deps.Interpreter.ToResponse(cam.ID, payload, raw.Tampering)
	s.deps.Interpreter.Apply(ctx, req.Requester, cam, req.Images[0], payload, raw.Tampering, log)

	out := &results.AnalysisResult{
		ID:             uuid.New(),
		ViewID:         cam.ID,
		CompanyID:      cam.CompanyID,
		SceneChange:    interp.SceneChange,
		Tampering:      interp.Tampering,
		TamperingFlags: ac.TamperingFlags,
		ResultSummary:  results.Summary{Valid: raw.Valid, AlarmType: raw.AlarmType},
		CreatedAt:      now.UTC(),
	}
	out.ObjectDetection.BoundingBoxes = []engine.BoundingBox{}
	if raw.Analytics != nil {
		if raw.Analytics.BoundingBoxes != nil {
			out.ObjectDetection.BoundingBoxes = raw.Analytics.BoundingBoxes
		}
		out.ResultSummary.Faces = raw.Analytics.Faces
		out.ResultSummary.Guns = raw.Analytics.Guns
	}

	if err := s.deps.Results.Save(ctx, out); err != nil {
		log.Error().Err(err).Str("result_id", out.ID.String()).Msg("saving analysis result failed")
	}

	metrics.RecordAnalysis(string(payload.Kind), "ok")
	metrics.RecordSceneChange(string(interp.SceneChange.Result))
	log.Info().
		Str("result_id", out.ID.String()).
		Str("payload", string(payload.Kind)).
		Str("scene_change", string(interp.SceneChange.Result)).
		Msg("analysis completed")
	return out, nil
}
