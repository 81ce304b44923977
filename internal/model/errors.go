package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned by the store when an annotation with the same ID
// is already present. It indicates a caller bug, not a user-facing failure.
var ErrDuplicateID = errors.New("annotation id already present")

// ValidationError reports a missing or out-of-range field at commit time.
// The UI layer prevents these proactively by disabling actions; seeing one
// means a guard was bypassed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
