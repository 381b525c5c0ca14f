package engine

import "encoding/json"

// Request is the body of an analyze call.
type Request struct {
	// Images are base64 encoded.
	Images  []string `json:"images"`
	Options Options  `json:"options"`
}

type Options struct {
	Detections map[string]json.RawMessage `json:"detections"`
	AlarmType  string                     `json:"alarmType,omitempty"`
}

// TamperingVerdict is the engine's scene-change outcome.
type TamperingVerdict struct {
	IsPerformed bool   `json:"isPerformed"`
	IsValid     bool   `json:"isValid"`
	IsDay       bool   `json:"isDay"`
	Error       string `json:"error,omitempty"`
}

type BoundingBox struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
}

type Analytics struct {
	BoundingBoxes []BoundingBox `json:"boundingBoxes"`
	Faces         int           `json:"faces,omitempty"`
	Guns          int           `json:"guns,omitempty"`
}

// Result is the engine's raw verdict.
type Result struct {
	Valid     bool              `json:"valid"`
	Tampering *TamperingVerdict `json:"tampering,omitempty"`
	Analytics *Analytics        `json:"analytics,omitempty"`
	AlarmType string            `json:"alarmType,omitempty"`
}

type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}
