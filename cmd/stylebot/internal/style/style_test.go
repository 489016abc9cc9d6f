// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package style

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"go.astrophena.name/stylebot/internal/store"
	"go.astrophena.name/stylebot/internal/testutil"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	def := Default()
	custom := "Пиши неформально."

	cases := map[string]struct {
		record any
		want   Profile
	}{
		"no record": {
			want: def,
		},
		"only instructions": {
			record: map[string]any{"voice_instructions": custom},
			want:   Profile{VoiceInstructions: custom, Hashtags: def.Hashtags},
		},
		"only hashtags": {
			record: map[string]any{"hashtags": []string{"#x"}},
			want:   Profile{VoiceInstructions: def.VoiceInstructions, Hashtags: []string{"#x"}},
		},
		"empty hashtags": {
			record: map[string]any{"voice_instructions": custom, "hashtags": []string{}},
			want:   Profile{VoiceInstructions: custom, Hashtags: def.Hashtags},
		},
		"blank fields": {
			record: map[string]any{"voice_instructions": "  ", "hashtags": []string{"", " "}},
			want:   def,
		},
		"unknown fields": {
			record: map[string]any{"voice_instructions": custom, "hashtags": []string{"#a", "#b"}, "lang": "ru"},
			want:   Profile{VoiceInstructions: custom, Hashtags: []string{"#a", "#b"}},
		},
		"wrong shape": {
			record: "not an object",
			want:   def,
		},
		"hashtags of wrong type": {
			record: map[string]any{"voice_instructions": custom, "hashtags": "#one"},
			want:   Profile{VoiceInstructions: custom, Hashtags: def.Hashtags},
		},
		"instructions of wrong type": {
			record: map[string]any{"voice_instructions": 42, "hashtags": []string{"#x"}},
			want:   Profile{VoiceInstructions: def.VoiceInstructions, Hashtags: []string{"#x"}},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := store.NewMemStore()
			if tc.record != nil {
				if err := s.Set(t.Context(), "1", tc.record); err != nil {
					t.Fatal(err)
				}
			}
			got, err := Resolve(t.Context(), s, "1", def)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, got, tc.want)
		})
	}
}

func TestResolveReadsFresh(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	got, err := Resolve(t.Context(), s, "1", Default())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, Default())

	if err := s.Set(t.Context(), "1", Profile{Hashtags: []string{"#new"}}); err != nil {
		t.Fatal(err)
	}
	got, err = Resolve(t.Context(), s, "1", Default())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got.Hashtags, []string{"#new"})
}

func TestPickHashtag(t *testing.T) {
	t.Parallel()

	p := Profile{Hashtags: []string{"#a", "#b", "#c"}}
	r := rand.New(rand.NewPCG(1, 2))

	seen := make(map[string]int)
	for range 300 {
		tag := p.PickHashtag(r.IntN)
		testutil.AssertContains(t, p.Hashtags, tag)
		seen[tag]++
	}
	for _, tag := range p.Hashtags {
		if seen[tag] == 0 {
			t.Errorf("hashtag %q was never picked in 300 trials: %v", tag, seen)
		}
	}

	testutil.AssertEqual(t, Profile{}.PickHashtag(nil), "")
	testutil.AssertContains(t, p.Hashtags, p.PickHashtag(nil))
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	got, err := LoadDefaults("")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, Default())

	path := filepath.Join(t.TempDir(), "style.yaml")
	if err := os.WriteFile(path, []byte("hashtags:\n  - \"#рынки\"\n  - \"#новости\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadDefaults(path)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, Profile{
		VoiceInstructions: Default().VoiceInstructions,
		Hashtags:          []string{"#рынки", "#новости"},
	})

	if err := os.WriteFile(path, []byte("hashtags: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDefaults(path); err == nil {
		t.Fatal("want error for malformed YAML")
	}

	if _, err := LoadDefaults(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("want error for missing file")
	}
}
