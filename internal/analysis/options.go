package analysis

import (
	"encoding/json"
	"sort"

	"github.com/technosupport/vms-analytics/internal/capabilities"
	"github.com/technosupport/vms-analytics/internal/engine"
	"github.com/technosupport/vms-analytics/internal/tampering"
)

// SceneChangeOptions is the caller's on-demand override of the scheduled check.
type SceneChangeOptions struct {
	ForceOnDemand               bool     `json:"forceOnDemand"`
	PerformSceneChangeDetection bool     `json:"performSceneChangeDetection"`
	ReferenceImageURLs          []string `json:"referenceImageUrls,omitempty"`
}

type ObjectOptions struct {
	Classes       []string `json:"classes,omitempty"`
	MinConfidence float64  `json:"minConfidence,omitempty"`
}

// Options is the `options` part of an analyze request.
type Options struct {
	Detections  []string            `json:"detections"`
	Object      *ObjectOptions      `json:"object,omitempty"`
	AlarmType   string              `json:"alarmType,omitempty"`
	SceneChange *SceneChangeOptions `json:"sceneChange,omitempty"`
}

const (
	maxImages     = 10
	maxImageBytes = 10 << 20
)

// Validate normalizes the detection list in place.
func (o *Options) Validate(images [][]byte) error {
	if len(images) == 0 {
		return invalidOptions("at least one image is required")
	}
	if len(images) > maxImages {
		return invalidOptions("at most %d images are accepted", maxImages)
	}
	for i, img := range images {
		if len(img) == 0 {
			return invalidOptions("image %d is empty", i)
		}
		if len(img) > maxImageBytes {
			return invalidOptions("image %d exceeds %d bytes", i, maxImageBytes)
		}
	}
	if len(o.Detections) == 0 {
		return invalidOptions("no detections requested")
	}

	seen := map[string]bool{}
	out := o.Detections[:0]
	for _, d := range o.Detections {
		if !capabilities.IsKnown(d) {
			return invalidOptions("unknown detection %q", d)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	o.Detections = out

	if o.Object != nil && (o.Object.MinConfidence < 0 || o.Object.MinConfidence > 1) {
		return invalidOptions("object.minConfidence must be within [0,1]")
	}
	if sc := o.SceneChange; sc != nil && sc.ForceOnDemand && !o.Has(capabilities.Tampering) {
		return invalidOptions("sceneChange requires the tampering detection")
	}
	return nil
}

func (o *Options) Has(detection string) bool {
	for _, d := range o.Detections {
		if d == detection {
			return true
		}
	}
	return false
}

func (o *Options) onDemand() tampering.OnDemand {
	if o.SceneChange == nil {
		return tampering.OnDemand{}
	}
	return tampering.OnDemand{
		Force:         o.SceneChange.ForceOnDemand,
		Perform:       o.SceneChange.PerformSceneChangeDetection,
		ReferenceURLs: o.SceneChange.ReferenceImageURLs,
	}
}

type flag struct {
	Enabled bool `json:"enabled"`
}

// engineOptions builds the engine's detection map. A skip payload leaves
// tampering out entirely.
func engineOptions(o *Options, payload tampering.DetectionPayload) (engine.Options, error) {
	det := map[string]json.RawMessage{}

	for _, d := range o.Detections {
		var v any
		switch d {
		case capabilities.Object:
			obj := ObjectOptions{}
			if o.Object != nil {
				obj = *o.Object
			}
			v = struct {
				Enabled bool `json:"enabled"`
				ObjectOptions
			}{true, obj}
		case capabilities.Face, capabilities.Gun:
			v = flag{Enabled: true}
		case capabilities.Tampering:
			if payload.Kind == tampering.KindSkip {
				continue
			}
			v = payload
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return engine.Options{}, err
		}
		det[d] = raw
	}
	return engine.Options{Detections: det, AlarmType: o.AlarmType}, nil
}
