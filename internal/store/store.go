// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package store implements a JSON key-value store backed in-memory or by a
// single JSON file.
package store

import (
	"bytes"
	"context"
	"encoding/json"
)

// Store is a generic interface for a key-value store whose values are JSON
// documents.
type Store interface {
	// Get retrieves a value for a given key. It reports false if the key is
	// not found.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	// Set stores a JSON-encodable value for a given key, replacing the
	// previous value entirely.
	Set(ctx context.Context, key string, value any) error
	// Update atomically replaces the value of a key with the result of f.
	// old is nil if the key is not found.
	Update(ctx context.Context, key string, f func(old json.RawMessage) (any, error)) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns all keys in sorted order.
	Keys(ctx context.Context) ([]string, error)
	// Close closes the store and releases any resources.
	Close() error
}

// Lookup returns the value for key decoded into T. If the key is missing or
// its value does not decode into T, it returns def.
func Lookup[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, nil
	}
	return v, nil
}

// encode marshals value without escaping HTML or non-ASCII characters.
func encode(value any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}
