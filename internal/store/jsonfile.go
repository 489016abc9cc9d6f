// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.astrophena.name/stylebot/internal/atomicio"
	"go.astrophena.name/stylebot/internal/filelock"
)

// ErrLocked is returned by [NewJSONFile] when another process holds the
// store file.
var ErrLocked = errors.New("store: file is used by another process")

// JSONFile is a file-backed implementation of the [Store] interface.
//
// The whole file is a single JSON object. Every operation reads the file
// afresh, so edits made by hand while the process runs are picked up. A file
// that is empty or does not parse is treated as an empty object.
type JSONFile struct {
	path string
	lock filelock.Lock

	mu sync.Mutex // guards the file; held by every exported method
}

// NewJSONFile opens the store at path, creating the containing directory and
// an empty object file if they don't exist.
func NewJSONFile(path string) (*JSONFile, error) {
	if path == "" {
		return nil, errors.New("store: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating directory: %w", err)
		}
	}

	lock, err := filelock.Acquire(path+".lock", fmt.Sprintf("pid=%d\n", os.Getpid()))
	if errors.Is(err, filelock.ErrAlreadyLocked) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("store: locking %s: %w", path, err)
	}

	s := &JSONFile{path: path, lock: lock}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write(map[string]json.RawMessage{}); err != nil {
			return nil, errors.Join(err, lock.Release())
		}
	}
	return s, nil
}

// Path returns the location of the store file.
func (s *JSONFile) Path() string { return s.path }

// Get retrieves a value for a given key.
func (s *JSONFile) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

// Set stores a value for a given key.
func (s *JSONFile) Set(_ context.Context, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("store: encoding %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		return err
	}
	data[key] = raw
	return s.write(data)
}

// Update atomically replaces the value of a key with the result of f.
func (s *JSONFile) Update(_ context.Context, key string, f func(old json.RawMessage) (any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		return err
	}
	v, err := f(data[key])
	if err != nil {
		return err
	}
	raw, err := encode(v)
	if err != nil {
		return fmt.Errorf("store: encoding %q: %w", key, err)
	}
	data[key] = raw
	return s.write(data)
}

// Delete removes a key.
func (s *JSONFile) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.write(data)
}

// Keys returns all keys in sorted order.
func (s *JSONFile) Keys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(data)), nil
}

// Close releases the store file lock.
func (s *JSONFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Release()
}

// read loads the whole file. s.mu must be held.
func (s *JSONFile) read() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", s.path, err)
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(b, &data); err != nil || data == nil {
		return make(map[string]json.RawMessage), nil
	}
	return data, nil
}

// write replaces the whole file. s.mu must be held.
func (s *JSONFile) write(data map[string]json.RawMessage) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("store: encoding: %w", err)
	}
	if err := atomicio.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("store: writing %s: %w", s.path, err)
	}
	return nil
}
