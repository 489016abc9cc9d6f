// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package backend implements text rewriting backends.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Backend rewrites text following style instructions.
type Backend interface {
	// Rewrite returns text rewritten according to instructions.
	Rewrite(ctx context.Context, text, instructions string) (string, error)
	// Name identifies the backend in logs and health checks.
	Name() string
}

// ErrEmptyResponse is returned when a remote model responds with no text.
var ErrEmptyResponse = errors.New("backend: model returned empty response")

// Default generation parameters.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 600
)

// Config selects and configures a backend. The zero value selects [Offline].
type Config struct {
	// OpenAIKey enables the OpenAI backend.
	OpenAIKey string
	// OpenAIBaseURL overrides the OpenAI API endpoint, for compatible servers.
	OpenAIBaseURL string
	// OpenAIModel defaults to DefaultOpenAIModel.
	OpenAIModel string
	// GeminiKey enables the Gemini backend when OpenAIKey is empty.
	GeminiKey string
	// GeminiModel defaults to DefaultGeminiModel.
	GeminiModel string
	// Temperature defaults to DefaultTemperature.
	Temperature float64
	// MaxTokens bounds the output length and defaults to DefaultMaxTokens.
	MaxTokens int
	// HTTPClient is used by the OpenAI backend. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
}

// HasRemote reports whether a remote backend credential is configured.
func (c Config) HasRemote() bool {
	return c.OpenAIKey != "" || c.GeminiKey != ""
}

func (c Config) withDefaults() Config {
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultOpenAIModel
	}
	if c.GeminiModel == "" {
		c.GeminiModel = DefaultGeminiModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

// New returns the backend selected by c.
func New(c Config) Backend {
	c = c.withDefaults()
	switch {
	case c.OpenAIKey != "":
		return NewOpenAI(c)
	case c.GeminiKey != "":
		return NewGemini(c)
	default:
		return Offline{}
	}
}

const systemDirective = "Ты редактор Telegram-канала о финансах и инвестициях. " +
	"Переписывай присланный текст в заданном стиле. Сохраняй все факты, цифры, даты и ссылки. " +
	"Убирай воду и повторы, сокращай длинные формулировки. " +
	"Не добавляй эмодзи, хэштеги и декоративные символы. " +
	"Отвечай только переписанным текстом на русском языке."

func userTurn(text, instructions string) string {
	return fmt.Sprintf("Стиль: %s\n\nТекст:\n%s", instructions, text)
}

func finish(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
