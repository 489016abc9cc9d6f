// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
)

// MemStore is an in-memory implementation of the [Store] interface.
type MemStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewMemStore creates a new empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]json.RawMessage)}
}

// Get retrieves a value for a given key.
func (s *MemStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	// Return a copy to prevent the caller from mutating the store.
	return slices.Clone(v), true, nil
}

// Set stores a value for a given key.
func (s *MemStore) Set(_ context.Context, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

// Update atomically replaces the value of a key with the result of f.
func (s *MemStore) Update(_ context.Context, key string, f func(old json.RawMessage) (any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := f(slices.Clone(s.data[key]))
	if err != nil {
		return err
	}
	raw, err := encode(v)
	if err != nil {
		return err
	}
	s.data[key] = raw
	return nil
}

// Delete removes a key.
func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys returns all keys in sorted order.
func (s *MemStore) Keys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.data)), nil
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error { return nil }
