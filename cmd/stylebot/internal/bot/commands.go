// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const helpText = `Пришлите текст, и я перепишу его в стиле этого чата и добавлю хэштег.

Команды:
/style <инструкции> — задать стиль
/style — показать текущий стиль
/tags #тег1 #тег2 — задать хэштеги
/profile — показать профиль чата
/reset — вернуть стиль и хэштеги по умолчанию`

func (b *Bot) runCommand(ctx context.Context, id, name, args string) (string, error) {
	switch name {
	case "start", "help":
		return helpText, nil
	case "style":
		if args == "" {
			p, err := b.pipeline.Profile(ctx, id)
			if err != nil {
				return "", err
			}
			return "Текущий стиль:\n" + p.VoiceInstructions, nil
		}
		if err := b.updateRecord(ctx, id, "voice_instructions", args); err != nil {
			return "", err
		}
		return "Стиль обновлён.", nil
	case "tags":
		tags := parseHashtags(args)
		if len(tags) == 0 {
			p, err := b.pipeline.Profile(ctx, id)
			if err != nil {
				return "", err
			}
			return "Текущие хэштеги: " + strings.Join(p.Hashtags, " "), nil
		}
		if err := b.updateRecord(ctx, id, "hashtags", tags); err != nil {
			return "", err
		}
		return "Хэштеги обновлены: " + strings.Join(tags, " "), nil
	case "profile":
		p, err := b.pipeline.Profile(ctx, id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Стиль:\n%s\n\nХэштеги: %s", p.VoiceInstructions, strings.Join(p.Hashtags, " ")), nil
	case "reset":
		if err := b.store.Delete(ctx, id); err != nil {
			return "", err
		}
		return "Профиль сброшен к настройкам по умолчанию.", nil
	default:
		return "Неизвестная команда.\n\n" + helpText, nil
	}
}

// updateRecord sets a single field of the chat's record, keeping the rest of
// the record intact.
func (b *Bot) updateRecord(ctx context.Context, id, field string, value any) error {
	return b.store.Update(ctx, id, func(old json.RawMessage) (any, error) {
		rec := make(map[string]any)
		if old != nil {
			// A record that is not an object is replaced.
			json.Unmarshal(old, &rec)
			if rec == nil {
				rec = make(map[string]any)
			}
		}
		rec[field] = value
		return rec, nil
	})
}

// parseHashtags returns the words of s, each prefixed with '#'.
func parseHashtags(s string) []string {
	var tags []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' }) {
		f = strings.TrimLeft(f, "#")
		if f == "" {
			continue
		}
		tags = append(tags, "#"+f)
	}
	return tags
}
