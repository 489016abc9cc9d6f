// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// dotenv returns a getenv function that looks up variables with lookup first
// and falls back to the values from the env file at path. A missing file is
// not an error.
func dotenv(path string, lookup func(string) string) (func(string) string, error) {
	if path == "" {
		return lookup, nil
	}
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return lookup, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return func(key string) string {
		if v := lookup(key); v != "" {
			return v
		}
		return vars[key]
	}, nil
}
