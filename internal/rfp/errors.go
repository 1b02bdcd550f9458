package rfp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing RFP, vendor, proposal or inbound email.
	ErrNotFound = errors.New("not found")
	// ErrValidation reports a request missing required fields.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate reports a vendor email that is already registered.
	ErrDuplicate = errors.New("already exists")
	// ErrDispatch reports a failed email send to one vendor.
	ErrDispatch = errors.New("dispatch failed")
	// ErrExtraction reports generation output that does not have the expected shape.
	ErrExtraction = errors.New("extraction failed")
)

// ExtractionError keeps the raw generation output for diagnostics.
type ExtractionError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, ErrExtraction)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, ErrExtraction, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// NotFound builds an ErrNotFound error for the named entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// Invalid builds an ErrValidation error with a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
