// Package store defines the key-value contract the decision engine
// persists through, and its Redis and in-memory implementations.
//
// The store is the only shared mutable state in the system. It offers
// no transactions, no atomic increment and no cross-key consistency:
// counter updates are read-then-write and may silently lose updates
// under concurrent writers. Callers are expected to tolerate and
// reconcile that drift rather than lock around it.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or its
// TTL has expired.
var ErrNotFound = errors.New("key not found")

// KV is the persistence contract consumed by the engine. All keys are
// namespaced by the caller (project id, group id, IP, session id,
// time bucket).
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Put stores value under key. A zero ttl means no expiry.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
