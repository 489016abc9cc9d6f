// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package backend

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/"

// OpenAI rewrites text with a chat completion model.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAI returns an OpenAI backend configured from c.
func NewOpenAI(c Config) *OpenAI {
	c = c.withDefaults()
	opts := []option.RequestOption{
		option.WithAPIKey(c.OpenAIKey),
		option.WithBaseURL(defaultOpenAIBaseURL),
		// Failed rewrites are reported to the user, not retried.
		option.WithMaxRetries(0),
	}
	if c.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.OpenAIBaseURL))
	}
	if c.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	}
	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       c.OpenAIModel,
		temperature: c.Temperature,
		maxTokens:   c.MaxTokens,
	}
}

// Name implements [Backend].
func (o *OpenAI) Name() string { return "openai:" + o.model }

// Rewrite implements [Backend].
func (o *OpenAI) Rewrite(ctx context.Context, text, instructions string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemDirective),
			openai.UserMessage(userTurn(text, instructions)),
		},
		Temperature: openai.Float(o.temperature),
		MaxTokens:   openai.Int(int64(o.maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return finish(resp.Choices[0].Message.Content)
}
