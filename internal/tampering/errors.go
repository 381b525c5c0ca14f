package tampering

import "errors"

var (
	// ErrMissingReferenceURLs is returned when an on-demand check is forced
	// without any reference image URL to compare against.
	ErrMissingReferenceURLs = errors.New("on-demand scene change requested without reference urls")
	ErrInvalidTimezone      = errors.New("invalid timezone")
	ErrInvalidWindow        = errors.New("invalid check window")
	ErrMalformedPayload     = errors.New("malformed detection payload")
)
