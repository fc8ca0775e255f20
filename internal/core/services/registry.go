package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// DefaultBuildLockTTL bounds how long a crashed build can block a rebuild
const DefaultBuildLockTTL = 10 * time.Minute

// LocationKey returns the storage location of a document's index
func LocationKey(documentID string) string {
	return "doc_" + documentID
}

func buildLockName(documentID string) string {
	return "index-build:" + documentID
}

// IndexRegistry maps documents to their persisted index and serialises builds.
// The mapping lives on the document record, so it is exactly as durable as
// the DocumentStore.
type IndexRegistry struct {
	documents driven.DocumentStore
	lock      driven.DistributedLock
	lockTTL   time.Duration
	now       func() time.Time
}

// NewIndexRegistry creates a registry over the document store and build lock
func NewIndexRegistry(documents driven.DocumentStore, lock driven.DistributedLock) *IndexRegistry {
	return &IndexRegistry{
		documents: documents,
		lock:      lock,
		lockTTL:   DefaultBuildLockTTL,
		now:       time.Now,
	}
}

// LocationFor returns where the document's index is stored.
// Returns domain.ErrDocumentNotIndexed for unknown or never indexed documents.
func (r *IndexRegistry) LocationFor(ctx context.Context, documentID string) (*domain.IndexLocation, error) {
	doc, err := r.documents.Get(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotIndexed, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup document %s: %w", documentID, err)
	}
	if !doc.IsIndexed() {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotIndexed, documentID)
	}

	loc := &domain.IndexLocation{DocumentID: documentID, Key: doc.IndexLocation}
	if doc.IndexedAt != nil {
		loc.Version = *doc.IndexedAt
	}
	return loc, nil
}

// RecordLocation stamps the document with its index location.
// Call only after the index was persisted.
func (r *IndexRegistry) RecordLocation(ctx context.Context, documentID, location string) (*domain.IndexLocation, error) {
	at := r.now().UTC()
	if err := r.documents.SetIndexLocation(ctx, documentID, location, at); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
		}
		return nil, fmt.Errorf("record index location: %w", err)
	}
	return &domain.IndexLocation{DocumentID: documentID, Key: location, Version: at}, nil
}

// AcquireBuild takes the build lock for a document.
// Returns domain.ErrIndexBuildInProgress if another build holds it.
// The lease keeps the lock alive until Release is called.
func (r *IndexRegistry) AcquireBuild(ctx context.Context, documentID string) (*BuildLease, error) {
	name := buildLockName(documentID)
	ok, err := r.lock.Acquire(ctx, name, r.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexBuildInProgress, documentID)
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	lease := &BuildLease{
		lock:   r.lock,
		name:   name,
		ttl:    r.lockTTL,
		ctx:    leaseCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go lease.keepAlive()
	return lease, nil
}

// BuildLease is a held build lock. The lock TTL is extended every third of
// its length; if an extension fails the build is no longer exclusive and
// Context is cancelled.
type BuildLease struct {
	lock   driven.DistributedLock
	name   string
	ttl    time.Duration
	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}
	once   sync.Once
}

func (l *BuildLease) keepAlive() {
	defer close(l.done)

	every := l.ttl / 3
	if every <= 0 {
		every = time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			if err := l.lock.Extend(l.ctx, l.name, l.ttl); err != nil {
				if l.ctx.Err() != nil {
					return
				}
				l.cancel(fmt.Errorf("%w: %s: %w", domain.ErrIndexBuildInProgress, errBuildLockLost, err))
				return
			}
		}
	}
}

var errBuildLockLost = errors.New("build lock lost")

// Context is cancelled when the lease is released or lost
func (l *BuildLease) Context() context.Context {
	return l.ctx
}

// Lost returns the reason the lock was lost, or nil
func (l *BuildLease) Lost() error {
	if cause := context.Cause(l.ctx); errors.Is(cause, errBuildLockLost) {
		return cause
	}
	return nil
}

// Release stops the keepalive and releases the lock. Safe to call twice.
func (l *BuildLease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		l.cancel(context.Canceled)
		<-l.done
		err = l.lock.Release(ctx, l.name)
	})
	return err
}
