// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

//go:build !unix

package filelock

import (
	"errors"
	"os"
)

// ErrAlreadyLocked indicates the lock is currently held by someone else.
var ErrAlreadyLocked = errors.New("already locked")

// Lock represents a held file lock.
type Lock interface{ Release() error }

type noopLock struct{}

func (noopLock) Release() error { return nil }

// Acquire writes payload to path. Advisory locking is not supported on this
// platform, so the returned lock never conflicts.
func Acquire(path, payload string) (Lock, error) {
	if payload != "" {
		if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
			return nil, err
		}
	}
	return noopLock{}, nil
}
