package db

import "errors"

// ErrClosed is returned by operations on a closed database.
var ErrClosed = errors.New("database closed")

// DB defines the key-value operations used by the object store and the receipt store.
// Get returns nil, nil for a missing key.
type DB interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// Iterate calls fn for every key with prefix in key order until fn returns false.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error
	Close() error
}
