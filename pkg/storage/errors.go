package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a user or product does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write violates a uniqueness constraint
	// (duplicate email or external id).
	ErrConflict = errors.New("record already exists")

	// ErrReferenceNotFound is returned when a write references a record that
	// does not exist, such as a product whose owner has been deleted.
	ErrReferenceNotFound = errors.New("referenced record not found")

	// ErrInvalidValue is returned when the store rejects a value it cannot
	// represent, such as a number out of the column's range.
	ErrInvalidValue = errors.New("value not accepted by store")

	// ErrUnavailable wraps failures of the backing store itself: lost
	// connections, timeouts, and unexpected driver errors.
	ErrUnavailable = errors.New("store unavailable")
)
