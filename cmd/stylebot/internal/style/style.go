// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package style resolves per-chat style profiles.
package style

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"go.astrophena.name/stylebot/internal/store"

	"gopkg.in/yaml.v3"
)

// Profile describes how text should be rewritten for a chat.
type Profile struct {
	// VoiceInstructions tell the backend which voice to use.
	VoiceInstructions string `json:"voice_instructions,omitempty" yaml:"voice_instructions"`
	// Hashtags are the candidates for the trailing hashtag.
	Hashtags []string `json:"hashtags,omitempty" yaml:"hashtags"`
}

// Default returns the built-in profile.
func Default() Profile {
	return Profile{
		VoiceInstructions: "Кратко, деловым тоном, простыми фразами. Без воды. " +
			"Разбивай на короткие абзацы и маркированные списки при необходимости.",
		Hashtags: []string{"#альфаиндекс", "#чтокупить"},
	}
}

// Merge fills the fields of p that are absent with the fields of def.
// Blank instructions and blank hashtags count as absent.
func (p Profile) Merge(def Profile) Profile {
	out := Profile{
		VoiceInstructions: strings.TrimSpace(p.VoiceInstructions),
		Hashtags:          cleanHashtags(p.Hashtags),
	}
	if out.VoiceInstructions == "" {
		out.VoiceInstructions = def.VoiceInstructions
	}
	if len(out.Hashtags) == 0 {
		out.Hashtags = cleanHashtags(def.Hashtags)
	}
	return out
}

func cleanHashtags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// PickHashtag returns a uniformly chosen hashtag. intn must return a number in
// [0, n); if it is nil, [rand.IntN] is used. It returns an empty string if the
// profile has no hashtags.
func (p Profile) PickHashtag(intn func(int) int) string {
	if len(p.Hashtags) == 0 {
		return ""
	}
	if intn == nil {
		intn = rand.IntN
	}
	return p.Hashtags[intn(len(p.Hashtags))]
}

// Resolve reads the profile record of chat id from s and merges it onto def.
// The record is read on every call. Each field is decoded on its own, so a
// field of the wrong type falls back to def without affecting the others.
func Resolve(ctx context.Context, s store.Store, id string, def Profile) (Profile, error) {
	fields, err := store.Lookup[map[string]json.RawMessage](ctx, s, id, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("resolving profile of %s: %w", id, err)
	}
	var p Profile
	decodeField(fields, "voice_instructions", &p.VoiceInstructions)
	decodeField(fields, "hashtags", &p.Hashtags)
	return p.Merge(def), nil
}

// decodeField decodes fields[key] into v, leaving v untouched if the field is
// missing or has the wrong type.
func decodeField[T any](fields map[string]json.RawMessage, key string, v *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var val T
	if err := json.Unmarshal(raw, &val); err == nil {
		*v = val
	}
}

// LoadDefaults reads a YAML file with a profile and merges it onto [Default].
// An empty path returns [Default].
func LoadDefaults(path string) (Profile, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p.Merge(Default()), nil
}
