// Package cache stores computed observation sessions keyed by night and
// rounded location. Sessions older than the TTL are reported absent.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/litescript/ls-skywatch/internal/catalog"
)

// TTL is how long a computed session stays usable.
const TTL = 24 * time.Hour

// Store is a keyed session store.
type Store interface {
	// Get returns the session for key if present and younger than the TTL.
	Get(ctx context.Context, key catalog.SessionKey) (catalog.Session, bool, error)
	// Put stores s under s.Key(), replacing any previous entry.
	Put(ctx context.Context, s catalog.Session) error
	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

func defaultOptions() options {
	return options{ttl: TTL, now: time.Now}
}

// WithTTL overrides the expiry age.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		o.ttl = d
	}
}

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func (o options) expired(computedAt time.Time) bool {
	return o.now().Sub(computedAt) >= o.ttl
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[catalog.SessionKey]catalog.Session
	opts    options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		entries: make(map[catalog.SessionKey]catalog.Session),
		opts:    o,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key catalog.SessionKey) (catalog.Session, bool, error) {
	s.mu.RLock()
	sess, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || s.opts.expired(sess.ComputedAt) {
		return catalog.Session{}, false, nil
	}
	return sess.Clone(), true, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, sess catalog.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.Key()] = sess.Clone()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
