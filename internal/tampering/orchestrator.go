package tampering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/data"
)

// OnDemand carries the caller's explicit scene-change override.
type OnDemand struct {
	Force         bool
	Perform       bool
	ReferenceURLs []string
}

// Detections is the tampering part of the engine options.
type Detections struct {
	TamperingRequested bool
	Tampering          DetectionPayload
}

// Flags describe how the tampering payload was reached; handlers echo them.
type Flags struct {
	OnDemand             bool         `json:"onDemand"`
	Eligible             bool         `json:"eligible"`
	AlreadyChecked       bool         `json:"alreadyChecked"`
	CapabilityDowngraded bool         `json:"capabilityDowngraded,omitempty"`
	MissingPhases        []data.Phase `json:"missingPhases,omitempty"`
}

// AnalysisContext is the per-request state shared by the analysis pipeline.
type AnalysisContext struct {
	Requester Requester
	Camera    *data.Camera
	OnDemand  OnDemand
	// TamperingAllowed is the capability verdict for the tampering detection.
	TamperingAllowed bool
	Now              time.Time
	Logger           zerolog.Logger

	Detections     Detections
	TamperingFlags Flags
}

type WindowStore interface {
	Get(ctx context.Context, companyID uuid.UUID) (*data.WindowConfig, error)
}

// CompanyWindows resolves a company's window config, falling back to defaults.
type CompanyWindows struct {
	store    WindowStore
	defaults func() data.WindowConfig
}

func NewCompanyWindows(store WindowStore, defaults func() data.WindowConfig) *CompanyWindows {
	return &CompanyWindows{store: store, defaults: defaults}
}

func (w *CompanyWindows) WindowsFor(ctx context.Context, companyID uuid.UUID) (data.WindowConfig, error) {
	cfg, err := w.store.Get(ctx, companyID)
	if errors.Is(err, data.ErrRecordNotFound) {
		return w.defaults(), nil
	}
	if err != nil {
		return data.WindowConfig{}, fmt.Errorf("load tampering windows: %w", err)
	}
	return *cfg, nil
}

type WindowSource interface {
	WindowsFor(ctx context.Context, companyID uuid.UUID) (data.WindowConfig, error)
}

// Orchestrator decides the tampering payload of each analysis request.
type Orchestrator struct {
	windows WindowSource
	checker *WindowChecker
}

func NewOrchestrator(windows WindowSource, checker *WindowChecker) *Orchestrator {
	return &Orchestrator{windows: windows, checker: checker}
}

// IsEligible reports whether scheduled checks can run for the camera.
func IsEligible(cam *data.Camera) bool {
	if !cam.SceneChangeEnabled {
		return false
	}
	_, err := LoadLocation(cam.Timezone)
	return err == nil
}

// ConfigureTampering fills ac.Detections.Tampering and ac.TamperingFlags.
// The window query only runs on the scheduled path for eligible cameras.
func (o *Orchestrator) ConfigureTampering(ctx context.Context, ac *AnalysisContext) error {
	cam := ac.Camera
	now := ac.Now
	if now.IsZero() {
		now = time.Now()
	}

	flags := Flags{OnDemand: ac.OnDemand.Force, Eligible: IsEligible(cam)}

	if ac.Detections.TamperingRequested && !ac.TamperingAllowed {
		flags.CapabilityDowngraded = true
		if ac.OnDemand.Force {
			ac.Detections.Tampering = WithChecksSkip()
		} else {
			ac.Detections.Tampering = NotEligible(cam.ID)
		}
		ac.TamperingFlags = flags
		return nil
	}

	in := ResolveInput{
		Requested:       ac.Detections.TamperingRequested,
		ForceOnDemand:   ac.OnDemand.Force,
		PerformOnDemand: ac.OnDemand.Perform,
		ReferenceURLs:   ac.OnDemand.ReferenceURLs,
		ViewID:          cam.ID,
		Eligible:        flags.Eligible,
		Config:          cam.TamperingConfig,
	}

	if in.Requested && !in.ForceOnDemand && in.Eligible {
		windows, err := o.windows.WindowsFor(ctx, cam.CompanyID)
		if err != nil {
			return err
		}
		done, err := o.checker.AlreadyChecked(ctx, cam.ID, windows, cam.Timezone, now)
		if err != nil {
			return err
		}
		in.AlreadyDone = done
		flags.AlreadyChecked = done
	}

	payload, err := ResolvePayload(in)
	if err != nil {
		return err
	}
	flags.MissingPhases = payload.Missing

	ac.Detections.Tampering = payload
	ac.TamperingFlags = flags

	ac.Logger.Debug().
		Str("view_id", cam.ID.String()).
		Str("payload", string(payload.Kind)).
		Bool("already_checked", flags.AlreadyChecked).
		Msg("tampering payload resolved")
	return nil
}
