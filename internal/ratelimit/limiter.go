// Package ratelimit implements the per-user fixed-window message limiter.
package ratelimit

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/soyeahso/gork/internal/domain"
)

const shardCount = 64

// State is one user's window. A zero WindowStart means no state.
type State struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"windowStart"`
}

// StateStore persists per-user state. Callers serialize access per user.
type StateStore interface {
	Get(ctx context.Context, userID string) (State, bool, error)
	Put(ctx context.Context, userID string, st State) error
	Delete(ctx context.Context, userID string) error
}

// Config holds the limiter thresholds.
type Config struct {
	Allowed  int           // messages admitted per window
	Interval time.Duration // window length
}

// Limiter admits or denies messages per user. The window is fixed, not
// sliding: a burst straddling a window boundary can admit up to 2x Allowed.
type Limiter struct {
	cfg    Config
	store  StateStore
	shards [shardCount]sync.Mutex
}

// New creates a Limiter. A nil store uses an in-memory store.
func New(cfg Config, store StateStore) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{cfg: cfg, store: store}
}

func (l *Limiter) lock(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &l.shards[h.Sum32()%shardCount]
}

// Admit records a message from userID at now and reports whether it may be
// processed. Admins are admitted without touching state.
func (l *Limiter) Admit(ctx context.Context, userID string, isAdmin bool, now time.Time) (bool, error) {
	if isAdmin {
		return true, nil
	}

	mu := l.lock(userID)
	mu.Lock()
	defer mu.Unlock()

	st, ok, err := l.store.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load rate state for %s: %w", userID, err)
	}

	if !ok || st.WindowStart.IsZero() || now.Sub(st.WindowStart) > l.cfg.Interval {
		st = State{Count: 1, WindowStart: now}
	} else {
		st.Count++
	}

	if err := l.store.Put(ctx, userID, st); err != nil {
		return false, fmt.Errorf("save rate state for %s: %w", userID, err)
	}
	return st.Count <= l.cfg.Allowed, nil
}

// Get returns the current state for userID.
func (l *Limiter) Get(ctx context.Context, userID string) (State, bool, error) {
	mu := l.lock(userID)
	mu.Lock()
	defer mu.Unlock()
	return l.store.Get(ctx, userID)
}

// Reset clears userID's window.
func (l *Limiter) Reset(ctx context.Context, userID string) error {
	mu := l.lock(userID)
	mu.Lock()
	defer mu.Unlock()
	return l.store.Delete(ctx, userID)
}

// Exceeded builds the error reported for a denied message.
func (l *Limiter) Exceeded(userID string) *domain.RateLimitError {
	return &domain.RateLimitError{UserID: userID, Allowed: l.cfg.Allowed, Interval: l.cfg.Interval}
}

// Config returns the limiter thresholds.
func (l *Limiter) Config() Config {
	return l.cfg
}
