// policy/errors.go
package policy

import (
	"errors"
	"fmt"
)

// Validation failure kinds. A *ValidationError unwraps to exactly one of these.
var (
	ErrInvalidDirection             = errors.New("invalid direction")
	ErrMissingOrConflictingSelector = errors.New("missing or conflicting selector")
	ErrInvalidTarget                = errors.New("invalid target")
	ErrMissingNetwork               = errors.New("missing network")
	ErrMissingRegion                = errors.New("missing region")
	ErrUnsupportedProtocol          = errors.New("unsupported protocol")
	ErrUnsupportedAction            = errors.New("unsupported action")
	ErrInvalidPortsForAllProtocol   = errors.New("invalid ports for all protocol")
	ErrInvalidRegion                = errors.New("invalid region")
	ErrInvalidNetworkName           = errors.New("invalid network name")
	ErrInvalidCidr                  = errors.New("invalid cidr")
	ErrInvalidRule                  = errors.New("invalid rule")
	ErrMissingName                  = errors.New("missing name")
	ErrInvalidTag                   = errors.New("invalid tag")
)

// ValidationError describes why a policy or rule could not be built.
type ValidationError struct {
	Kind   error
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %s", msg, e.Field)
		if e.Value != "" {
			msg = fmt.Sprintf("%s = %q", msg, e.Value)
		}
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func invalid(kind error, field, value, reason string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Value: value, Reason: reason}
}
