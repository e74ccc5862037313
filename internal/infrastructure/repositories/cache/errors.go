package cache

import "errors"

var (
	// ErrKeyNotFound is returned when the key was never set or was deleted
	ErrKeyNotFound = errors.New("key not found")
	// ErrKeyExpired is returned when the key outlived its TTL
	ErrKeyExpired = errors.New("key expired")
	// ErrUnsupportedBackend is returned by the factory for unknown backends
	ErrUnsupportedBackend = errors.New("unsupported cache backend")
	// ErrSnapshotExpired marks a layout snapshot older than the max age
	ErrSnapshotExpired = errors.New("layout snapshot expired")
)
