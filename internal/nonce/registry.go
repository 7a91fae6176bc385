// ABOUTME: Thread-safe registry of outstanding single-use login challenges.
// ABOUTME: One live nonce per user; consume is an atomic compare-and-remove with TTL.

package nonce

import (
	"container/list"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// Size is the number of random bytes in a challenge.
	Size = 32

	// DefaultTTL bounds how long an unconsumed challenge stays valid.
	DefaultTTL = 5 * time.Minute

	// DefaultCapacity is the maximum number of outstanding challenges.
	DefaultCapacity = 100_000
)

// ErrNotFound is returned by Consume when no matching live challenge exists.
// It covers never issued, already consumed, superseded, mismatched and expired.
var ErrNotFound = errors.New("challenge not found")

// entry stores an outstanding challenge and its position in the eviction list.
type entry struct {
	value    string
	issuedAt time.Time
	element  *list.Element
}

// Registry maps user IDs to their outstanding challenge.
// Uses a doubly-linked list in issue order so the oldest challenge can be
// evicted in O(1) when the registry is full.
type Registry struct {
	mu       sync.Mutex
	pending  map[int64]*entry
	order    *list.List // user IDs, oldest issue at front
	ttl      time.Duration
	capacity int
	now      func() time.Time
	random   func([]byte) (int, error)
	done     chan struct{}
	closed   bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithRandom overrides the random source. Intended for tests.
func WithRandom(read func([]byte) (int, error)) Option {
	return func(r *Registry) { r.random = read }
}

// New creates a registry with the given challenge TTL and capacity.
// Non-positive values fall back to DefaultTTL and DefaultCapacity.
// A background goroutine periodically drops expired challenges; call Close
// to stop it.
func New(ttl time.Duration, capacity int, opts ...Option) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Registry{
		pending:  make(map[int64]*entry),
		order:    list.New(),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		random:   rand.Read,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.cleanup()
	return r
}

// Issue generates a fresh challenge for userID and stores it, replacing any
// challenge the user had outstanding. The returned value is base64url
// encoded without padding.
func (r *Registry) Issue(userID int64) (string, error) {
	buf := make([]byte, Size)
	if _, err := r.random(buf); err != nil {
		return "", fmt.Errorf("generating challenge: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(buf)

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.pending[userID]; ok {
		r.order.Remove(old.element)
		delete(r.pending, userID)
	}

	if len(r.pending) >= r.capacity {
		r.evictOldest()
	}

	r.pending[userID] = &entry{
		value:    value,
		issuedAt: r.now(),
		element:  r.order.PushBack(userID),
	}
	return value, nil
}

// Consume atomically checks that supplied matches the live challenge for
// userID and removes it. Lookup, expiry check, comparison and removal happen
// under one lock so two concurrent submissions of the same nonce cannot both
// succeed. On mismatch the stored challenge is left in place.
func (r *Registry) Consume(userID int64, supplied string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.pending[userID]
	if !ok {
		return "", ErrNotFound
	}

	if r.expiredLocked(e) {
		r.removeLocked(userID, e)
		return "", ErrNotFound
	}

	if subtle.ConstantTimeCompare([]byte(e.value), []byte(supplied)) != 1 {
		return "", ErrNotFound
	}

	r.removeLocked(userID, e)
	return e.value, nil
}

// Pending reports whether userID has a live, unexpired challenge.
func (r *Registry) Pending(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.pending[userID]
	return ok && !r.expiredLocked(e)
}

// Len returns the number of stored challenges, including expired ones not
// yet swept.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// expiredLocked must be called with mu held.
func (r *Registry) expiredLocked(e *entry) bool {
	return r.now().Sub(e.issuedAt) >= r.ttl
}

// removeLocked must be called with mu held.
func (r *Registry) removeLocked(userID int64, e *entry) {
	r.order.Remove(e.element)
	delete(r.pending, userID)
}

// evictOldest drops the challenge issued longest ago. Must be called with mu held.
func (r *Registry) evictOldest() {
	front := r.order.Front()
	if front == nil {
		return
	}
	userID, _ := front.Value.(int64)
	r.order.Remove(front)
	delete(r.pending, userID)
}

// cleanup runs in a background goroutine, periodically removing expired challenges.
func (r *Registry) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.done:
			return
		}
	}
}

// sweep removes every expired challenge.
func (r *Registry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, e := range r.pending {
		if r.expiredLocked(e) {
			r.removeLocked(userID, e)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		close(r.done)
		r.closed = true
	}
}
