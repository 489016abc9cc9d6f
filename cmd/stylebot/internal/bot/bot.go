// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package bot handles Telegram webhook deliveries: it runs chat commands that
// edit the style profile and rewrites everything else in the chat's style.
package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"go.astrophena.name/stylebot/cmd/stylebot/internal/rewrite"
	"go.astrophena.name/stylebot/cmd/stylebot/internal/telegram"
	"go.astrophena.name/stylebot/internal/store"
	"go.astrophena.name/stylebot/internal/web"

	"github.com/google/uuid"
)

// Sender delivers text to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Opts is the options for creating a new Bot.
type Opts struct {
	// Secret is the Telegram Bot API webhook secret token.
	Secret string
	// Sender delivers replies. Required.
	Sender Sender
	// Pipeline rewrites messages. Required.
	Pipeline *rewrite.Pipeline
	// Store holds per-chat profile records. Required.
	Store store.Store
	// Logger is used for logging. If nil, slog.Default is used.
	Logger *slog.Logger
	// Username is the bot's username without "@". Commands addressed to
	// other bots, like "/help@otherbot", are ignored. If empty, all
	// commands are handled.
	Username string
}

// Bot is a style rewriting Telegram bot.
type Bot struct {
	secret   string
	sender   Sender
	pipeline *rewrite.Pipeline
	store    store.Store
	logger   *slog.Logger
	dedup    *telegram.Deduper
	username string

	tasks sync.WaitGroup
}

// New creates a new Bot.
func New(opts Opts) *Bot {
	b := &Bot{
		secret:   opts.Secret,
		sender:   opts.Sender,
		pipeline: opts.Pipeline,
		store:    opts.Store,
		logger:   opts.Logger,
		dedup:    telegram.NewDeduper(1000),
		username: opts.Username,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

const failureNotice = "Не удалось переписать сообщение. Попробуйте ещё раз позже."

var ok = map[string]string{
	"status": "ok",
}

// HandleTelegramWebhook handles a Telegram webhook request. The update is
// processed in the background and the delivery is acknowledged right away.
func (b *Bot) HandleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Telegram-Bot-Api-Secret-Token")), []byte(b.secret)) != 1 {
		web.RespondJSONError(w, r, web.ErrNotFound)
		return
	}

	var u telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		web.RespondJSONError(w, r, fmt.Errorf("%w: %v", web.ErrBadRequest, err))
		return
	}

	msg, text, hasText := u.Inbound()
	if !hasText {
		web.RespondJSON(w, ok)
		return
	}
	if b.dedup.Seen(u.UpdateID) {
		b.logger.Debug("dropping redelivered update", "update_id", u.UpdateID)
		web.RespondJSON(w, ok)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	b.tasks.Add(1)
	go func() {
		defer b.tasks.Done()
		b.handleMessage(ctx, msg.Chat.ID, text)
	}()

	web.RespondJSON(w, ok)
}

// Wait blocks until all background tasks finish.
func (b *Bot) Wait() { b.tasks.Wait() }

func (b *Bot) handleMessage(ctx context.Context, chatID int64, text string) {
	logger := b.logger.With("task_id", uuid.NewString(), "chat_id", chatID)
	id := strconv.FormatInt(chatID, 10)

	var (
		reply string
		err   error
	)
	if name, target, args, isCmd := parseCommand(text); isCmd {
		if target != "" && b.username != "" && !strings.EqualFold(target, b.username) {
			logger.Debug("ignoring command for another bot", "command", name, "target", target)
			return
		}
		logger.Info("running command", "command", name)
		reply, err = b.runCommand(ctx, id, name, args)
	} else {
		reply, err = b.pipeline.RewriteInStyle(ctx, id, text)
	}
	if err != nil {
		logger.Error("handling message failed", "err", err)
		reply = failureNotice
	}

	if err := b.sender.SendMessage(ctx, chatID, reply); err != nil {
		logger.Error("sending reply failed", "err", err)
	}
}

// parseCommand splits "/style@bot args" into "style", "bot" and "args".
func parseCommand(text string) (name, target, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", "", false
	}
	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i:]
	}
	name, target, _ = strings.Cut(head[1:], "@")
	if name == "" {
		return "", "", "", false
	}
	return strings.ToLower(name), target, strings.TrimSpace(rest), true
}
