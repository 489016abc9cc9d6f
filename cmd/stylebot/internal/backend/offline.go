// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package backend

import "context"

// Offline is used when no remote backend is configured. It returns text
// unchanged.
type Offline struct{}

// Name implements [Backend].
func (Offline) Name() string { return "offline" }

// Rewrite implements [Backend].
func (Offline) Rewrite(_ context.Context, text, _ string) (string, error) { return text, nil }
