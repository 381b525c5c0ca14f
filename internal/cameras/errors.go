package cameras

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrQuotaExceeded     = errors.New("camera_quota_exceeded")
	ErrSiteScopeMismatch = errors.New("site does not belong to client")
	ErrNameLength        = errors.New("name must be 1-120 characters")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrInvalidLocation   = errors.New("latitude/longitude out of range")
	ErrEmptyPatch        = errors.New("nothing to update")
)

// ValidationError names the rejected field for the API response.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
