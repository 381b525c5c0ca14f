package analysis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidOptions = errors.New("invalid analysis options")
	ErrViewNotFound   = errors.New("view not found")
	ErrViewDisabled   = errors.New("view is disabled")
)

// CapabilityError lists detections the company is not entitled to.
type CapabilityError struct {
	Missing []string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("missing capabilities: %s", strings.Join(e.Missing, ", "))
}

func invalidOptions(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
}
