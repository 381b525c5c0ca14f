package tampering

import (
	"github.com/google/uuid"
	"github.com/technosupport/vms-analytics/internal/data"
)

// ResolveInput is everything the resolver needs; it holds no handles to storage.
type ResolveInput struct {
	// Requested is false when the caller did not ask for tampering at all.
	Requested       bool
	ForceOnDemand   bool
	PerformOnDemand bool
	ReferenceURLs   []string
	ViewID          uuid.UUID
	// Eligible is false when scene change is disabled or the camera is misconfigured.
	Eligible    bool
	Config      *data.TamperingConfig
	AlreadyDone bool
}

// ResolvePayload maps the request state to exactly one DetectionPayload.
// The only error is ErrMissingReferenceURLs for a forced on-demand check
// that supplied no URLs.
func ResolvePayload(in ResolveInput) (DetectionPayload, error) {
	if !in.Requested {
		return Skip(), nil
	}

	if in.ForceOnDemand {
		if !in.PerformOnDemand {
			return WithChecksSkip(), nil
		}
		urls := nonEmpty(in.ReferenceURLs)
		if len(urls) == 0 {
			return DetectionPayload{}, ErrMissingReferenceURLs
		}
		return NoChecks(urls), nil
	}

	if !in.Eligible {
		return NotEligible(in.ViewID), nil
	}
	if in.AlreadyDone {
		return WithChecksSkip(), nil
	}

	var refs []Reference
	var missing []data.Phase
	for _, phase := range data.Phases {
		rp := in.Config.Phase(phase)
		if rp.HasReference() {
			refs = append(refs, Reference{ID: *rp.ReferenceImage, Label: phase})
		} else {
			missing = append(missing, phase)
		}
	}
	if len(refs) == 0 {
		return NoReferences(), nil
	}
	return Proceed(refs, missing), nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
