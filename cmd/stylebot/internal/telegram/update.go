// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package telegram

import (
	"container/list"
	"strings"
	"sync"
)

// Update is an incoming update. Only the fields the bot uses are decoded.
type Update struct {
	UpdateID          int64    `json:"update_id"`
	Message           *Message `json:"message,omitempty"`
	EditedMessage     *Message `json:"edited_message,omitempty"`
	ChannelPost       *Message `json:"channel_post,omitempty"`
	EditedChannelPost *Message `json:"edited_channel_post,omitempty"`
}

// Message is a chat message or channel post.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// Chat is a private chat, group or channel.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// User is a Telegram user or bot.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Inbound returns the message carried by the update and its text (or caption,
// for media). ok is false if the update carries no text.
func (u Update) Inbound() (msg *Message, text string, ok bool) {
	for _, m := range []*Message{u.Message, u.EditedMessage, u.ChannelPost, u.EditedChannelPost} {
		if m == nil {
			continue
		}
		text := m.Text
		if text == "" {
			text = m.Caption
		}
		if strings.TrimSpace(text) == "" {
			return m, "", false
		}
		return m, text, true
	}
	return nil, "", false
}

// Deduper remembers recently seen update IDs. Telegram redelivers an update
// if the webhook response was lost, so each ID must be handled once.
type Deduper struct {
	size int

	mu    sync.Mutex
	seen  map[int64]*list.Element
	order *list.List
}

// NewDeduper returns a Deduper that remembers the last size update IDs.
func NewDeduper(size int) *Deduper {
	if size <= 0 {
		size = 1000
	}
	return &Deduper{
		size:  size,
		seen:  make(map[int64]*list.Element),
		order: list.New(),
	}
}

// Seen records id and reports whether it was recorded before.
func (d *Deduper) Seen(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = d.order.PushBack(id)
	if d.order.Len() > d.size {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(int64))
	}
	return false
}
