package internal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParameter is returned when a caller passes a value outside an accepted enumeration or range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrExternalServiceUnavailable is wrapped by every reasoning-service failure.
	// The narrator recovers from it locally; it never reaches narrate callers.
	ErrExternalServiceUnavailable = errors.New("external reasoning service unavailable")

	// ErrReasonerNotConfigured is returned by a nil or unconfigured reasoner.
	ErrReasonerNotConfigured = fmt.Errorf("%w: not configured", ErrExternalServiceUnavailable)
)

// ParamError describes a rejected caller parameter.
type ParamError struct {
	Param   string
	Value   string
	Allowed []string
}

func (e *ParamError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s %q", e.Param, e.Value)
	}
	return fmt.Sprintf("invalid %s %q (allowed: %s)", e.Param, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParameter
}

// IsInvalidParameter reports whether err is a caller contract violation.
func IsInvalidParameter(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}
