// Package promise is a minimal future for requests that complete on a later
// host tick.
package promise

import (
	"errors"
	"sync"
)

// ErrCancelled is the error reported by a cancelled promise.
var ErrCancelled = errors.New("promise cancelled")

// State is the lifecycle of a promise.
type State int

const (
	Pending State = iota
	Done
	Cancelled
)

// Promise holds the eventual result of an asynchronous request. The issuer
// completes it with Resolve; consumers poll Done or wait on Ready.
type Promise[T any] struct {
	mu       sync.Mutex
	state    State
	result   T
	ready    chan struct{}
	onCancel func()
}

// New creates a pending promise. onCancel, if not nil, is invoked once when
// the promise is cancelled while still pending.
func New[T any](onCancel func()) *Promise[T] {
	return &Promise[T]{
		ready:    make(chan struct{}),
		onCancel: onCancel,
	}
}

// Resolved returns a promise that is already done.
func Resolved[T any](v T) *Promise[T] {
	p := New[T](nil)
	p.Resolve(v)
	return p
}

// Resolve completes the promise. It reports false if the promise was already
// completed or cancelled, in which case v is discarded.
func (p *Promise[T]) Resolve(v T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Pending {
		return false
	}
	p.result = v
	p.state = Done
	close(p.ready)
	return true
}

// Cancel abandons a pending promise. The result stays the zero value.
func (p *Promise[T]) Cancel() bool {
	p.mu.Lock()
	if p.state != Pending {
		p.mu.Unlock()
		return false
	}
	p.state = Cancelled
	close(p.ready)
	hook := p.onCancel
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
	return true
}

// State returns the current state.
func (p *Promise[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done reports whether the promise is no longer pending.
func (p *Promise[T]) Done() bool {
	return p.State() != Pending
}

// Ready is closed once the promise is resolved or cancelled.
func (p *Promise[T]) Ready() <-chan struct{} {
	return p.ready
}

// Result returns the resolved value, or ErrCancelled.
func (p *Promise[T]) Result() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Cancelled {
		var zero T
		return zero, ErrCancelled
	}
	return p.result, nil
}
