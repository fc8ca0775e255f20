package driven

import (
	"context"
	"time"
)

// DistributedLock serialises index builds of the same document across
// goroutines and instances.
type DistributedLock interface {
	// Acquire attempts to take a named lock with the given TTL.
	// Returns false without error if another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock held by this instance.
	// Safe to call when the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a held lock.
	// Returns an error if the lock is not held by this instance.
	// PostgreSQL advisory locks have no TTL and treat this as a no-op.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
