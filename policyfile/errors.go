// policyfile/errors.go
package policyfile

import (
	"errors"
	"fmt"
)

// ErrMalformedInput marks structural failures: bad syntax, unknown fields,
// missing required fields or wrongly shaped values.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError carries the format and the underlying decoder error.
type MalformedInputError struct {
	Format Format
	Err    error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed %s policy file: %v", e.Format, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

func malformed(format Format, err error) error {
	return &MalformedInputError{Format: format, Err: err}
}
