// Package gate decides whether the managed data backend is reachable before
// any persistence call is attempted against it.
//
// Every Probe runs the bounded read from scratch. There is no retry, no
// backoff and no memory between calls; observers only receive the outcome.
package gate

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// Status is the tri-state reachability shown to the UI.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// ErrUnavailable is returned by Call when the probe fails. Its text is what
// the UI shows, so callers wrap it with the action that was refused.
var ErrUnavailable = errors.New("Backend is unavailable")

// ProbeFunc performs one bounded read against the backend. Any error, or a
// panic, classifies the backend as unavailable.
type ProbeFunc func(ctx context.Context) error

// Observer receives every status the gate publishes.
type Observer func(Status)

// Gate wraps a ProbeFunc with the publish-then-short-circuit policy.
type Gate struct {
	probe     ProbeFunc
	observers []Observer
}

// New returns a gate that runs probe and publishes outcomes to observers.
func New(probe ProbeFunc, observers ...Observer) *Gate {
	return &Gate{probe: probe, observers: observers}
}

// Probe reports whether the backend answered the bounded read.
func (g *Gate) Probe(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("backend probe panicked")
			ok = false
			g.Publish(StatusUnavailable)
		}
	}()
	if g.probe == nil {
		g.Publish(StatusUnavailable)
		return false
	}
	if err := g.probe(ctx); err != nil {
		log.Info().Err(err).Msg("backend probe failed")
		g.Publish(StatusUnavailable)
		return false
	}
	g.Publish(StatusAvailable)
	return true
}

// Publish forwards s to every observer.
func (g *Gate) Publish(s Status) {
	for _, o := range g.observers {
		if o != nil {
			o(s)
		}
	}
}

// Call probes, then runs op exactly once. When the probe fails op is never
// invoked and ErrUnavailable is returned. When op fails the backend is
// published as unavailable and op's error is returned unchanged.
func Call[T any](ctx context.Context, g *Gate, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !g.Probe(ctx) {
		return zero, ErrUnavailable
	}
	out, err := op(ctx)
	if err != nil {
		g.Publish(StatusUnavailable)
		return zero, err
	}
	return out, nil
}

// Tracker remembers the last status published by any gate in the process.
type Tracker struct {
	mu     sync.RWMutex
	status Status
}

// NewTracker starts in StatusUnknown.
func NewTracker() *Tracker {
	return &Tracker{status: StatusUnknown}
}

// Observe is an Observer.
func (t *Tracker) Observe(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Status returns the last observed status.
func (t *Tracker) Status() Status {
	if t == nil {
		return StatusUnknown
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
