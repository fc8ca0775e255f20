// Package memory provides single-process fallbacks used when Redis is not configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is an in-process DistributedLock with TTL expiry.
// It only serialises builds within one process.
type Lock struct {
	mu   sync.Mutex
	held map[string]time.Time // name -> expiry
	now  func() time.Time
}

// NewLock creates an empty in-process lock
func NewLock() *Lock {
	return &Lock{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Acquire takes the named lock unless it is held and unexpired
func (l *Lock) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiry, ok := l.held[name]; ok && now.Before(expiry) {
		return false, nil
	}
	l.held[name] = now.Add(ttl)
	return true, nil
}

// Release drops the named lock
func (l *Lock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

// Extend pushes the expiry of a held lock
func (l *Lock) Extend(_ context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	expiry, ok := l.held[name]
	if !ok || !now.Before(expiry) {
		return fmt.Errorf("lock %s not held", name)
	}
	l.held[name] = now.Add(ttl)
	return nil
}

// Ping always succeeds
func (l *Lock) Ping(context.Context) error {
	return nil
}
