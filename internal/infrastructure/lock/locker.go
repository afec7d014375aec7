// Package lock provides per-key mutual exclusion for aggregate updates.
// Every operation that reads a cached aggregate, appends ledger entries
// and writes the aggregate back holds the key's lock for the duration.
package lock

import (
	"context"
	"time"
)

// Lock is a held lock that must be released when the operation finishes.
type Lock interface {
	// Release frees the lock. Releasing twice is an error.
	Release(ctx context.Context) error
}

// KeyLocker serializes operations per aggregate key. Obtain returns
// shared.ErrBusy when the lock cannot be acquired within the wait
// budget.
type KeyLocker interface {
	// Obtain acquires the lock for key, waiting up to wait. The ttl
	// bounds how long a crashed holder can block others.
	Obtain(ctx context.Context, key string, ttl, wait time.Duration) (Lock, error)
}
