// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package httplogger provides an http.RoundTripper that logs outgoing requests
// and their outcome.
package httplogger

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// New wraps t so that every round trip is logged to logger at debug level.
// If scrubber is not nil, it is applied to logged URLs and errors, since the
// Telegram Bot API puts the token into the request path.
func New(t http.RoundTripper, logger *slog.Logger, scrubber *strings.Replacer) http.RoundTripper {
	if t == nil {
		t = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingTransport{transport: t, logger: logger, scrubber: scrubber}
}

type loggingTransport struct {
	transport http.RoundTripper
	logger    *slog.Logger
	scrubber  *strings.Replacer
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.transport.RoundTrip(r)

	attrs := []any{
		"method", r.Method,
		"url", t.scrub(r.URL.String()),
		"duration", time.Since(start).Round(time.Millisecond),
	}
	if resp != nil {
		attrs = append(attrs, "status", resp.StatusCode)
	}
	if err != nil {
		attrs = append(attrs, "err", t.scrub(err.Error()))
	}
	t.logger.Debug("http request", attrs...)

	return resp, err
}

func (t *loggingTransport) scrub(s string) string {
	if t.scrubber == nil {
		return s
	}
	return t.scrubber.Replace(s)
}
