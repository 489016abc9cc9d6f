// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package backend

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.astrophena.name/stylebot/internal/syncx"
	"go.astrophena.name/stylebot/internal/testutil"

	"github.com/google/generative-ai-go/genai"
)

func TestNew(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		cfg        Config
		wantName   string
		wantRemote bool
	}{
		"no credentials": {
			cfg:      Config{},
			wantName: "offline",
		},
		"openai": {
			cfg:        Config{OpenAIKey: "sk-test"},
			wantName:   "openai:" + DefaultOpenAIModel,
			wantRemote: true,
		},
		"gemini": {
			cfg:        Config{GeminiKey: "g-test", GeminiModel: "gemini-pro"},
			wantName:   "gemini:gemini-pro",
			wantRemote: true,
		},
		"both prefers openai": {
			cfg:        Config{OpenAIKey: "sk-test", OpenAIModel: "gpt-4o", GeminiKey: "g-test"},
			wantName:   "openai:gpt-4o",
			wantRemote: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, tc.cfg.HasRemote(), tc.wantRemote)
			b := New(tc.cfg)
			testutil.AssertEqual(t, b.Name(), tc.wantName)
			closeBackend(b)
		})
	}
}

func TestOffline(t *testing.T) {
	t.Parallel()

	got, err := Offline{}.Rewrite(t.Context(), "hello", "be formal")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, "hello")
}

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   DefaultOpenAIModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestOpenAIRewrite(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			http.Error(w, "bad auth: "+auth, http.StatusUnauthorized)
			return
		}
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatResponse("  Коротко и ясно.\n"))
	}))
	defer srv.Close()

	b := NewOpenAI(Config{OpenAIKey: "sk-test", OpenAIBaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	out, err := b.Rewrite(t.Context(), "Очень длинный текст.", "Кратко.")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, out, "Коротко и ясно.")

	testutil.AssertEqual(t, got.Model, DefaultOpenAIModel)
	testutil.AssertEqual(t, got.Temperature, DefaultTemperature)
	testutil.AssertEqual(t, got.MaxTokens, DefaultMaxTokens)
	if len(got.Messages) != 2 {
		t.Fatalf("want 2 messages, got %d", len(got.Messages))
	}
	testutil.AssertEqual(t, got.Messages[0].Role, "system")
	testutil.AssertEqual(t, got.Messages[0].Content, systemDirective)
	testutil.AssertEqual(t, got.Messages[1].Role, "user")
	for _, want := range []string{"Кратко.", "Очень длинный текст."} {
		if !strings.Contains(got.Messages[1].Content, want) {
			t.Errorf("user turn %q doesn't contain %q", got.Messages[1].Content, want)
		}
	}
}

func TestOpenAIErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		handler http.HandlerFunc
		wantErr error
	}{
		"server error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
			},
		},
		"empty content": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, chatResponse("   "))
			},
			wantErr: ErrEmptyResponse,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tc.handler(w, r)
			}))
			defer srv.Close()

			b := NewOpenAI(Config{OpenAIKey: "sk-test", OpenAIBaseURL: srv.URL, HTTPClient: srv.Client()})
			out, err := b.Rewrite(t.Context(), "text", "style")
			if err == nil {
				t.Fatalf("want error, got output %q", out)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			testutil.AssertEqual(t, out, "")
			testutil.AssertEqual(t, calls.Load(), int32(1))
		})
	}
}

func TestResponseText(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		"nil": {
			resp:    nil,
			wantErr: ErrEmptyResponse,
		},
		"no candidates": {
			resp:    &genai.GenerateContentResponse{},
			wantErr: ErrEmptyResponse,
		},
		"blank text": {
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text(" \n")}},
			}}},
			wantErr: ErrEmptyResponse,
		},
		"joined parts": {
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{
					genai.Text("Первая часть. "),
					genai.Blob{MIMEType: "image/png"},
					genai.Text("Вторая часть.\n"),
				}},
			}}},
			want: "Первая часть. Вторая часть.",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := responseText(tc.resp)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want error %v, got %v", tc.wantErr, err)
			}
			testutil.AssertEqual(t, got, tc.want)
		})
	}
}

func TestGeminiClosedWithoutUse(t *testing.T) {
	t.Parallel()

	g := NewGemini(Config{GeminiKey: "g-test"})
	if g.client.Opened() {
		t.Fatal("client must not be created before first use")
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSelectorClosesReplacedBackend(t *testing.T) {
	t.Parallel()

	s := NewSelector(Config{GeminiKey: "g-test"})
	old := s.Select()

	if err := s.SetConfig(Config{}); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, s.Select().Name(), "offline")

	// A rewrite that picked the old backend before the swap fails instead of
	// creating a client nobody would close.
	_, err := old.Rewrite(t.Context(), "text", "instructions")
	if !errors.Is(err, syncx.ErrClosed) {
		t.Fatalf("got %v, want %v", err, syncx.ErrClosed)
	}
	testutil.AssertEqual(t, old.(*Gemini).client.Opened(), false)
}

func TestSelector(t *testing.T) {
	t.Parallel()

	s := NewSelector(Config{})
	testutil.AssertEqual(t, s.Select().Name(), "offline")

	if err := s.SetConfig(Config{OpenAIKey: "sk-test"}); err != nil {
		t.Fatal(err)
	}
	first := s.Select()
	testutil.AssertEqual(t, first.Name(), "openai:"+DefaultOpenAIModel)
	if err := s.SetConfig(Config{OpenAIKey: "sk-test"}); err != nil {
		t.Fatal(err)
	}
	if s.Select() != first {
		t.Fatal("backend must not be rebuilt when configuration is unchanged")
	}

	if err := s.SetConfig(Config{GeminiKey: "g-test"}); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, s.Select().Name(), "gemini:"+DefaultGeminiModel)
	testutil.AssertEqual(t, s.Config().GeminiKey, "g-test")

	if err := s.SetConfig(Config{}); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, s.Select().Name(), "offline")

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
