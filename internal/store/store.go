// Package store provides the persistent key-value storage used for the
// response cache, the password record, and the offline queues. All
// implementations are safe for concurrent use.
package store

import "time"

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = &NotFoundError{}

// NotFoundError indicates a missing key.
type NotFoundError struct{}

func (e *NotFoundError) Error() string {
	return "store: key not found"
}

// Store is the interface that all storage backends implement.
// A ttl of 0 means the value never expires.
type Store interface {
	// Set stores a key-value pair.
	Set(key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by its key. Returns ErrNotFound if the key
	// does not exist or has expired.
	Get(key string) ([]byte, error)

	// Delete removes a value by its key. Deleting a missing key is not
	// an error.
	Delete(key string) error

	// Exists checks if a key exists and has not expired.
	Exists(key string) (bool, error)

	// Close cleans up resources held by the store.
	Close() error
}
