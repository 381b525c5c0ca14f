package tampering

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/data"
)

// PayloadKind names the instruction sent to the engine for the tampering detection.
type PayloadKind string

const (
	KindSkip                   PayloadKind = "skip"
	KindNoChecks               PayloadKind = "noChecks"
	KindWithChecksSkip         PayloadKind = "withChecks.skip"
	KindWithChecksNotEligible  PayloadKind = "withChecks.notEligible"
	KindWithChecksProceed      PayloadKind = "withChecks.proceed"
	KindWithChecksNoReferences PayloadKind = "withChecks.noReferences"
)

// Reference identifies one image the engine compares against. On-demand
// references carry a URL; scheduled references carry a stored id and phase.
type Reference struct {
	ID    string     `json:"id,omitempty"`
	URL   string     `json:"url,omitempty"`
	Label data.Phase `json:"label,omitempty"`
}

// DetectionPayload is a closed union; build values with the constructors below.
type DetectionPayload struct {
	Kind       PayloadKind
	References []Reference
	// Missing lists phases left out of a proceed payload for lack of a reference.
	Missing []data.Phase
	// ViewID is set for notEligible payloads.
	ViewID uuid.UUID
}

func Skip() DetectionPayload {
	return DetectionPayload{Kind: KindSkip}
}

func NoChecks(urls []string) DetectionPayload {
	refs := make([]Reference, 0, len(urls))
	for _, u := range urls {
		refs = append(refs, Reference{URL: u})
	}
	return DetectionPayload{Kind: KindNoChecks, References: refs}
}

func WithChecksSkip() DetectionPayload {
	return DetectionPayload{Kind: KindWithChecksSkip}
}

func NotEligible(viewID uuid.UUID) DetectionPayload {
	return DetectionPayload{Kind: KindWithChecksNotEligible, ViewID: viewID}
}

func Proceed(refs []Reference, missing []data.Phase) DetectionPayload {
	return DetectionPayload{Kind: KindWithChecksProceed, References: refs, Missing: missing}
}

func NoReferences() DetectionPayload {
	return DetectionPayload{Kind: KindWithChecksNoReferences}
}

// Validate rejects payloads that do not match exactly one variant.
func (p DetectionPayload) Validate() error {
	switch p.Kind {
	case KindSkip, KindWithChecksSkip, KindWithChecksNoReferences:
		if len(p.References) != 0 || len(p.Missing) != 0 {
			return fmt.Errorf("%w: %s carries references", ErrMalformedPayload, p.Kind)
		}
	case KindNoChecks:
		if len(p.References) == 0 {
			return fmt.Errorf("%w: noChecks without references", ErrMalformedPayload)
		}
		for _, r := range p.References {
			if r.URL == "" {
				return fmt.Errorf("%w: noChecks reference without url", ErrMalformedPayload)
			}
		}
	case KindWithChecksNotEligible:
		if p.ViewID == uuid.Nil {
			return fmt.Errorf("%w: notEligible without view id", ErrMalformedPayload)
		}
	case KindWithChecksProceed:
		if len(p.References) == 0 {
			return fmt.Errorf("%w: proceed without references", ErrMalformedPayload)
		}
		for _, r := range p.References {
			if r.ID == "" || r.Label == "" {
				return fmt.Errorf("%w: proceed reference without id or label", ErrMalformedPayload)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedPayload, p.Kind)
	}
	return nil
}

// HasLabel reports whether a reference for phase is part of the payload.
func (p DetectionPayload) HasLabel(phase data.Phase) bool {
	for _, r := range p.References {
		if r.Label == phase {
			return true
		}
	}
	return false
}

// ReferenceFor returns the reference compared for phase, if any.
func (p DetectionPayload) ReferenceFor(phase data.Phase) (Reference, bool) {
	for _, r := range p.References {
		if r.Label == phase {
			return r, true
		}
	}
	return Reference{}, false
}

// WithReferenceURLs returns a copy whose stored references carry the URL the
// engine fetches them from. Other kinds are returned unchanged.
func (p DetectionPayload) WithReferenceURLs(viewID uuid.UUID, url ReferenceURLFunc) DetectionPayload {
	if p.Kind != KindWithChecksProceed || url == nil {
		return p
	}
	refs := make([]Reference, len(p.References))
	for i, r := range p.References {
		r.URL = url(viewID, r.Label)
		refs[i] = r
	}
	p.References = refs
	return p
}

type referenceList struct {
	References []Reference `json:"references"`
}

type notEligibleReason struct {
	ViewID string `json:"viewId"`
}

type withChecksWire struct {
	Skip         bool               `json:"skip,omitempty"`
	NotEligible  *notEligibleReason `json:"notEligible,omitempty"`
	Proceed      *referenceList     `json:"proceed,omitempty"`
	NoReferences bool               `json:"noReferences,omitempty"`
}

type payloadWire struct {
	NoChecks   *referenceList  `json:"noChecks,omitempty"`
	WithChecks *withChecksWire `json:"withChecks,omitempty"`
}

// MarshalJSON renders the engine wire shape. skip renders as null; callers
// omit the tampering key entirely in that case.
func (p DetectionPayload) MarshalJSON() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var w payloadWire
	switch p.Kind {
	case KindSkip:
		return []byte("null"), nil
	case KindNoChecks:
		w.NoChecks = &referenceList{References: p.References}
	case KindWithChecksSkip:
		w.WithChecks = &withChecksWire{Skip: true}
	case KindWithChecksNotEligible:
		w.WithChecks = &withChecksWire{NotEligible: &notEligibleReason{ViewID: p.ViewID.String()}}
	case KindWithChecksProceed:
		w.WithChecks = &withChecksWire{Proceed: &referenceList{References: p.References}}
	case KindWithChecksNoReferences:
		w.WithChecks = &withChecksWire{NoReferences: true}
	}
	return json.Marshal(w)
}
