// Package artifact decodes the five JSON documents that describe one
// transaction replay into typed values. Type-level and value-level problems
// are left to the caller to degrade; only structural problems with required
// fields are reported, as *FieldError.
package artifact

import (
	"errors"
	"fmt"
)

const (
	ArtifactCache       = "cache"
	ArtifactTransaction = "transaction"
	ArtifactEffects     = "effects"
	ArtifactGas         = "gas"
	ArtifactSignatures  = "signatures"
)

var (
	ErrMissing     = errors.New("missing")
	ErrWrongShape  = errors.New("wrong shape")
	ErrUnsupported = errors.New("unsupported")
)

// FieldError names the artifact and field that made decoding fail.
type FieldError struct {
	Artifact string
	Field    string
	Err      error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s artifact: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("%s artifact: field %s: %v", e.Artifact, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func missing(artifact, field string) error {
	return &FieldError{Artifact: artifact, Field: field, Err: ErrMissing}
}

func wrongShape(artifact, field string, err error) error {
	switch {
	case err == nil:
		err = ErrWrongShape
	case !errors.Is(err, ErrWrongShape):
		err = fmt.Errorf("%w: %w", ErrWrongShape, err)
	}
	return &FieldError{Artifact: artifact, Field: field, Err: err}
}
