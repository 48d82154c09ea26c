// Package guard gates asynchronous state mutations against teardown and
// navigation. Every poll response, fetch completion, or timer callback checks
// the Scope before it touches state and again after any blocking call.
package guard

import (
	"context"
	"sync"
)

// Location reports the path the user is currently looking at.
type Location interface {
	CurrentPath() string
}

// Scope is the lifetime of one mounted view of one collection.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	path string
	loc  Location

	mu         sync.RWMutex
	navigating bool
	closed     bool
}

// NewScope mounts a scope for path. The scope is cancelled when parent is
// done, when Close or NavigateAway is called, or observed as stale once loc
// moves to a different path.
func NewScope(parent context.Context, path string, loc Location) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		ctx:    ctx,
		cancel: cancel,
		path:   path,
		loc:    loc,
	}
}

// Path returns the path the scope was mounted for.
func (s *Scope) Path() string { return s.path }

// Context returns the cancellation token passed into every async operation.
func (s *Scope) Context() context.Context { return s.ctx }

// Done is closed once the scope is cancelled.
func (s *Scope) Done() <-chan struct{} { return s.ctx.Done() }

// ShouldAllowUpdates reports whether state may still be mutated.
func (s *Scope) ShouldAllowUpdates() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowedLocked()
}

func (s *Scope) allowedLocked() bool {
	if s.closed || s.navigating {
		return false
	}
	if s.ctx.Err() != nil {
		return false
	}
	if s.loc != nil && s.loc.CurrentPath() != s.path {
		return false
	}
	return true
}

// Apply runs fn only while updates are allowed and reports whether it ran.
// fn runs under the scope's read lock, so once NavigateAway or Close has
// returned no further fn will run.
func (s *Scope) Apply(fn func()) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.allowedLocked() {
		return false
	}
	fn()
	return true
}

// NavigateAway marks the view as leaving and cancels pending work.
func (s *Scope) NavigateAway() {
	s.mu.Lock()
	s.navigating = true
	s.mu.Unlock()
	s.cancel()
}

// Close unmounts the scope.
func (s *Scope) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}
