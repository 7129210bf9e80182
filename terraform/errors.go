// terraform/errors.go
package terraform

import "errors"

var (
	// ErrWrongTarget is returned when a policy is handed to the emitter of
	// the other provider.
	ErrWrongTarget = errors.New("policy target does not match emitter")
	// ErrMissingPlacement is returned for a gcp policy without network or
	// an aws policy without region.
	ErrMissingPlacement = errors.New("policy has no placement")
	// ErrGCPProjectRequired is returned when gcp policies are generated
	// without a project for the provider block.
	ErrGCPProjectRequired = errors.New("gcp project is required to write the google provider")
)
