package store

import (
	"errors"
	"fmt"
)

// ErrInitialization covers both use of the store before Initialize completes
// and failure of the initialization sequence itself.
var ErrInitialization = errors.New("initialization error")

// ValidationError reports a schema rule violated before any write. Callers
// should re-validate input rather than retry.
type ValidationError struct {
	Collection string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s.%s: %s", e.Collection, e.Field, e.Reason)
}

func invalid(collection, field, reason string) *ValidationError {
	return &ValidationError{Collection: collection, Field: field, Reason: reason}
}
