package screens

import (
	"context"
	"github.com/planificaia/aliada/internal/errors"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Enter after the registry was closed on shutdown.
var ErrClosed = errors.NewSentinel("screen registry closed")

// Screen is the in-memory state of one rendered screen. Close releases it, e.g. by cancelling pending replies.
type Screen interface {
	Close()
}

type entry struct {
	key      string
	screen   Screen
	lastSeen time.Time
}

// Registry keeps the single active screen of each visitor.
//
// Entering a screen with a different key tears down the previous one, which mirrors how navigation resets the
// state of a screen. Re-entering the same key returns the live screen so that a multi-step flow survives its
// POST/redirect/GET round trips.
type Registry struct {
	mu          sync.Mutex
	visitors    map[string]*entry
	idleTimeout time.Duration
	closed      bool
	logger      *slog.Logger
	now         func() time.Time
}

func NewRegistry(idleTimeout time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		mu:          sync.Mutex{},
		visitors:    make(map[string]*entry),
		idleTimeout: idleTimeout,
		closed:      false,
		logger:      logger.With("source", "screens.Registry"),
		now:         time.Now,
	}
}

// Enter returns the visitor's active screen if it has the given key and type. Otherwise the active screen is closed
// and create builds its replacement.
func Enter[T Screen](r *Registry, visitorID string, key string, create func() (T, error)) (T, error) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return zero, ErrClosed
	}

	now := r.now()
	if e, ok := r.visitors[visitorID]; ok {
		if s, sameType := e.screen.(T); sameType && e.key == key {
			e.lastSeen = now
			return s, nil
		}
		r.logger.LogAttrs(context.Background(), slog.LevelDebug, "leaving screen",
			slog.String("from", e.key), slog.String("to", key))
		e.screen.Close()
		delete(r.visitors, visitorID)
	}

	s, err := create()
	if err != nil {
		return zero, errors.Wrap(err, "create screen", slog.String("key", key))
	}
	r.visitors[visitorID] = &entry{key: key, screen: s, lastSeen: now}
	return s, nil
}

// Active returns the visitor's screen only if it is the active one with the given key. It does not replace
// anything, so POST handlers and streams never resurrect a screen the visitor already left.
func Active[T Screen](r *Registry, visitorID string, key string) (T, bool) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.visitors[visitorID]
	if !ok || e.key != key {
		return zero, false
	}
	s, ok := e.screen.(T)
	if !ok {
		return zero, false
	}
	e.lastSeen = r.now()
	return s, true
}

// ActiveKey returns the key of the visitor's active screen.
func (r *Registry) ActiveKey(visitorID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.visitors[visitorID]
	if !ok {
		return "", false
	}
	return e.key, true
}

// Leave closes the visitor's active screen.
func (r *Registry) Leave(visitorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.visitors[visitorID]; ok {
		e.screen.Close()
		delete(r.visitors, visitorID)
	}
}

// Len is the number of live screens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// EvictIdle closes the screens of visitors not seen within the idle timeout and returns how many were closed.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	deadline := r.now().Add(-r.idleTimeout)
	evicted := 0
	for visitorID, e := range r.visitors {
		if e.lastSeen.Before(deadline) {
			e.screen.Close()
			delete(r.visitors, visitorID)
			evicted++
		}
	}
	return evicted
}

// StartJanitor evicts idle screens every interval until ctx is cancelled. It blocks, so run it in a goroutine.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.logger.LogAttrs(ctx, slog.LevelInfo, "evicted idle screens", slog.Int("count", n))
			}
		}
	}
}

// Close tears down every screen. Enter fails afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for visitorID, e := range r.visitors {
		e.screen.Close()
		delete(r.visitors, visitorID)
	}
	r.closed = true
}
