// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package backend

import (
	"context"
	"fmt"
	"strings"

	"go.astrophena.name/stylebot/internal/syncx"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini rewrites text with a Gemini model.
//
// The API client is created on first use and is owned by the backend until
// Close is called.
type Gemini struct {
	model       string
	temperature float64
	maxTokens   int
	client      *syncx.Handle[*genai.Client]
}

// NewGemini returns a Gemini backend configured from c.
func NewGemini(c Config) *Gemini {
	c = c.withDefaults()
	return &Gemini{
		model:       c.GeminiModel,
		temperature: c.Temperature,
		maxTokens:   c.MaxTokens,
		client: &syncx.Handle[*genai.Client]{
			Open: func(ctx context.Context) (*genai.Client, error) {
				return genai.NewClient(ctx, option.WithAPIKey(c.GeminiKey))
			},
			Release: func(c *genai.Client) error { return c.Close() },
		},
	}
}

// Name implements [Backend].
func (g *Gemini) Name() string { return "gemini:" + g.model }

// Rewrite implements [Backend].
func (g *Gemini) Rewrite(ctx context.Context, text, instructions string) (string, error) {
	var out string
	err := g.client.Use(ctx, func(c *genai.Client) error {
		m := c.GenerativeModel(g.model)
		m.SetTemperature(float32(g.temperature))
		m.SetMaxOutputTokens(int32(g.maxTokens))
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemDirective)}}

		resp, err := m.GenerateContent(ctx, genai.Text(userTurn(text, instructions)))
		if err != nil {
			return err
		}
		out, err = responseText(resp)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return out, nil
}

// Close releases the API client, if it was created.
func (g *Gemini) Close() error { return g.client.Close() }

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return finish(sb.String())
}
