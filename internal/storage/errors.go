package storage

import "errors"

var (
	// ErrNotFound indicates the record is absent or its stored payload is
	// unreadable.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a revision mismatch on write: the caller did not
	// supply the record's current revision token.
	ErrConflict = errors.New("revision conflict")
)
