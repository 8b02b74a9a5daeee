// Package cache provides the bounded, expiring key/value stores used for
// fetched pages and extracted news records.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Observer receives cache events. observability.Metrics satisfies it.
type Observer interface {
	CacheHit(name string)
	CacheMiss(name string)
	CacheEviction(name string)
}

// entry is a cached value with its insertion time.
type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Store is a thread-safe LRU cache whose entries also expire after a TTL.
// Expired entries are dropped lazily on Get and purged before any live
// entry is evicted for capacity.
type Store[V any] struct {
	name     string
	ttl      time.Duration
	maxItems int
	now      func() time.Time
	observer Observer
	logger   *slog.Logger

	mu  sync.Mutex
	lru *simplelru.LRU[string, entry[V]]
	// adding is set while Set inserts, so only capacity evictions are
	// reported. Guarded by mu.
	adding bool
}

// Option configures a Store.
type Option func(*options)

type options struct {
	now      func() time.Time
	observer Observer
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver attaches a hit/miss/eviction observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// New creates a Store holding at most maxItems entries for ttl each.
func New[V any](name string, maxItems int, ttl time.Duration, logger *slog.Logger, opts ...Option) *Store[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if maxItems <= 0 {
		maxItems = 1
	}

	s := &Store[V]{
		name:     name,
		ttl:      ttl,
		maxItems: maxItems,
		now:      o.now,
		observer: o.observer,
		logger:   logger.With("component", "cache", "cache", name),
	}
	// NewLRU only fails for a non-positive size, which is ruled out above.
	s.lru, _ = simplelru.NewLRU[string, entry[V]](maxItems, s.onEvict)
	return s
}

// onEvict runs for every removal simplelru makes, including Remove and
// Purge. Only removals made to free capacity count as evictions.
func (s *Store[V]) onEvict(key string, _ entry[V]) {
	if !s.adding {
		return
	}
	s.logger.Debug("evicted", "key", key)
	if s.observer != nil {
		s.observer.CacheEviction(s.name)
	}
}

// Get returns the value for key if present and not expired. A hit marks
// the entry as most recently used.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	e, ok := s.lru.Peek(key)
	if !ok {
		s.miss()
		return zero, false
	}
	if s.expired(e) {
		s.lru.Remove(key)
		s.miss()
		return zero, false
	}
	s.lru.Get(key)
	if s.observer != nil {
		s.observer.CacheHit(s.name)
	}
	return e.value, true
}

// Set stores value under key, replacing any previous value and resetting
// its insertion time.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lru.Contains(key) && s.lru.Len() >= s.maxItems {
		s.purgeExpired()
	}
	s.adding = true
	s.lru.Add(key, entry[V]{value: value, insertedAt: s.now()})
	s.adding = false
}

// Delete removes key if present.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Remove(key)
}

// Len returns the number of stored entries, expired or not.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Values returns the live values from least to most recently used
// without affecting recency.
func (s *Store[V]) Values() []V {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]V, 0, s.lru.Len())
	for _, k := range s.lru.Keys() {
		e, ok := s.lru.Peek(k)
		if ok && !s.expired(e) {
			out = append(out, e.value)
		}
	}
	return out
}

// Clear empties the store.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Purge()
}

// Name returns the store name used in logs and metrics.
func (s *Store[V]) Name() string { return s.name }

func (s *Store[V]) expired(e entry[V]) bool {
	return s.ttl > 0 && s.now().Sub(e.insertedAt) > s.ttl
}

// purgeExpired drops expired entries. Callers hold s.mu.
func (s *Store[V]) purgeExpired() {
	for _, k := range s.lru.Keys() {
		if e, ok := s.lru.Peek(k); ok && s.expired(e) {
			s.lru.Remove(k)
		}
	}
}

func (s *Store[V]) miss() {
	if s.observer != nil {
		s.observer.CacheMiss(s.name)
	}
}
