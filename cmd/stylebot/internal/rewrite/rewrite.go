// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package rewrite implements the style rewrite pipeline: it resolves the
// chat's style profile, rewrites the text with the selected backend and
// appends a hashtag.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.astrophena.name/stylebot/cmd/stylebot/internal/backend"
	"go.astrophena.name/stylebot/cmd/stylebot/internal/style"
	"go.astrophena.name/stylebot/internal/store"
)

// Selector picks the backend for a single rewrite.
type Selector interface {
	Select() backend.Backend
}

// Opts contains options for creating a new [Pipeline].
type Opts struct {
	// Store holds per-chat profile records. Required.
	Store store.Store
	// Selector picks the backend. Required.
	Selector Selector
	// Defaults is merged under every stored profile. If empty, style.Default
	// is used.
	Defaults style.Profile
	// Intn picks hashtags. If nil, rand.IntN is used.
	Intn func(int) int
	// Logger is used for logging. If nil, slog.Default is used.
	Logger *slog.Logger
}

// Pipeline rewrites text in the style of a chat. It holds no per-call state and
// is safe for concurrent use.
type Pipeline struct {
	store    store.Store
	selector Selector
	defaults style.Profile
	intn     func(int) int
	logger   *slog.Logger
}

// New returns a new Pipeline.
func New(opts Opts) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, errors.New("rewrite: Store is required")
	}
	if opts.Selector == nil {
		return nil, errors.New("rewrite: Selector is required")
	}
	p := &Pipeline{
		store:    opts.Store,
		selector: opts.Selector,
		defaults: opts.Defaults.Merge(style.Default()),
		intn:     opts.Intn,
		logger:   opts.Logger,
	}
	if p.intn == nil {
		p.intn = rand.IntN
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Defaults returns the profile used for chats without a stored record.
func (p *Pipeline) Defaults() style.Profile { return p.defaults }

// Profile returns the effective profile of a chat.
func (p *Pipeline) Profile(ctx context.Context, id string) (style.Profile, error) {
	return style.Resolve(ctx, p.store, id, p.defaults)
}

// RewriteInStyle rewrites text in the style of chat id and appends a hashtag.
// On error no output is returned.
func (p *Pipeline) RewriteInStyle(ctx context.Context, id, text string) (string, error) {
	prof, err := p.Profile(ctx, id)
	if err != nil {
		return "", err
	}
	tag := prof.PickHashtag(p.intn)

	b := p.selector.Select()
	start := time.Now()
	rewritten, err := b.Rewrite(ctx, text, prof.VoiceInstructions)
	if err != nil {
		p.logger.Warn("rewrite failed", "chat_id", id, "backend", b.Name(), "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("rewriting with %s: %w", b.Name(), err)
	}
	p.logger.Debug("rewrote text", "chat_id", id, "backend", b.Name(), "duration", time.Since(start), "hashtag", tag)

	return rewritten + "\n\n" + tag, nil
}
