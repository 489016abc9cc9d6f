// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package syncx contains useful synchronization primitives.
package syncx

import (
	"context"
	"errors"
	"sync"
)

// Protect wraps T into [Protected].
func Protect[T any](val T) *Protected[T] { return &Protected[T]{val: val} }

// Protected provides synchronized access to a value of type T.
type Protected[T any] struct {
	mu  sync.RWMutex
	val T
}

// RAccess provides read access to the protected value.
// It executes the provided function f with the value under a read lock.
func (p *Protected[T]) RAccess(f func(T)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f(p.val)
}

// Access provides write access to the protected value.
// It executes the provided function f with the value under a write lock.
func (p *Protected[T]) Access(f func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(p.val)
}

// Lazy represents a lazily computed value.
type Lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

// Get returns T, calling f to compute it, if necessary.
func (l *Lazy[T]) Get(f func() T) T {
	l.once.Do(func() { l.val = f() })
	return l.val
}

// GetErr returns T and an error, calling f to compute them, if necessary.
func (l *Lazy[T]) GetErr(f func() (T, error)) (T, error) {
	l.once.Do(func() { l.val, l.err = f() })
	return l.val, l.err
}

// ErrClosed is returned by [Handle.Use] after [Handle.Close].
var ErrClosed = errors.New("syncx: handle is closed")

// Handle owns a lazily opened resource of type T, such as an API client. The
// resource is opened on first use and is only reachable inside [Handle.Use],
// so nobody can keep a reference to it past [Handle.Close].
type Handle[T any] struct {
	// Open creates the resource.
	Open func(context.Context) (T, error)
	// Release frees the resource. May be nil.
	Release func(T) error

	mu     sync.RWMutex
	val    T
	open   bool
	closed bool
}

// Use calls f with the resource, opening it first if necessary. Use calls run
// concurrently; only opening and closing are serialized.
func (h *Handle[T]) Use(ctx context.Context, f func(T) error) error {
	for {
		h.mu.RLock()
		if h.closed {
			h.mu.RUnlock()
			return ErrClosed
		}
		if h.open {
			break
		}
		h.mu.RUnlock()

		h.mu.Lock()
		if !h.open && !h.closed {
			v, err := h.Open(ctx)
			if err != nil {
				h.mu.Unlock()
				return err
			}
			h.val, h.open = v, true
		}
		h.mu.Unlock()
	}
	defer h.mu.RUnlock()
	return f(h.val)
}

// Opened reports whether the resource is currently open.
func (h *Handle[T]) Opened() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.open
}

// Close waits for all running Use calls to return and releases the resource.
// Use calls made after Close return [ErrClosed] and never open it again.
func (h *Handle[T]) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if !h.open {
		return nil
	}
	var zero T
	v := h.val
	h.val, h.open = zero, false
	if h.Release != nil {
		return h.Release(v)
	}
	return nil
}
