// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package backend

import (
	"io"
	"sync"
)

// Selector picks the backend for each rewrite from the configuration in
// effect at that moment. The configuration can be replaced at runtime.
type Selector struct {
	mu      sync.Mutex
	cfg     Config
	current Backend
}

// NewSelector returns a Selector using c.
func NewSelector(c Config) *Selector {
	return &Selector{cfg: c, current: New(c)}
}

// Config returns the configuration in effect.
func (s *Selector) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the configuration. Backends are rebuilt only if c differs
// from the configuration in effect; the old backend is closed once its running
// calls finish, and later calls on it fail.
func (s *Selector) SetConfig(c Config) error {
	s.mu.Lock()
	if c == s.cfg {
		s.mu.Unlock()
		return nil
	}
	old := s.current
	s.cfg, s.current = c, New(c)
	s.mu.Unlock()
	return closeBackend(old)
}

// Select returns the backend for the next rewrite.
func (s *Selector) Select() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close releases the current backend.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return closeBackend(s.current)
}

func closeBackend(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
