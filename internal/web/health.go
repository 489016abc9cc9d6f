// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.astrophena.name/stylebot/internal/syncx"
)

// Health returns the [HealthHandler] registered on mux at /health, creating it
// if necessary.
func Health(mux *http.ServeMux) *HealthHandler {
	h, pat := mux.Handler(&http.Request{URL: &url.URL{Path: "/health"}})
	if hh, ok := h.(*HealthHandler); ok && pat == "/health" {
		return hh
	}
	ret := &HealthHandler{
		checks:  syncx.Protect(make(map[string]HealthFunc)),
		Timeout: defaultCheckTimeout,
	}
	mux.Handle("/health", ret)
	return ret
}

const defaultCheckTimeout = 5 * time.Second

// HealthHandler reports the state of the registered checks. Checks run
// concurrently, each bounded by Timeout.
type HealthHandler struct {
	// Timeout bounds each check. A check that doesn't return in time is
	// reported as failed.
	Timeout time.Duration

	checks *syncx.Protected[map[string]HealthFunc]
}

// HealthFunc reports the state of a subsystem. It must be safe for concurrent
// use and should return when ctx is done.
type HealthFunc func(ctx context.Context) (status string, ok bool)

// RegisterFunc registers a check under name. It panics if name is already
// taken.
func (h *HealthHandler) RegisterFunc(name string, f HealthFunc) {
	h.checks.Access(func(checks map[string]HealthFunc) {
		if _, dup := checks[name]; dup {
			panic("health: check " + name + " is already registered")
		}
		checks[name] = f
	})
}

// HealthResponse is the body of the /health response.
type HealthResponse struct {
	OK     bool                     `json:"ok"`
	Checks map[string]CheckResponse `json:"checks"`
}

// CheckResponse is the outcome of a single check.
type CheckResponse struct {
	Status string `json:"status"`
	OK     bool   `json:"ok"`
}

// ServeHTTP implements the [http.Handler] interface. It responds with
// 503 Service Unavailable if any check fails.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]HealthFunc)
	h.checks.RAccess(func(m map[string]HealthFunc) {
		for name, f := range m {
			checks[name] = f
		}
	})

	hr := &HealthResponse{OK: true, Checks: make(map[string]CheckResponse)}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, f := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := h.run(r.Context(), f)
			mu.Lock()
			defer mu.Unlock()
			hr.Checks[name] = res
			if !res.OK {
				hr.OK = false
			}
		}()
	}
	wg.Wait()

	if !hr.OK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		respondJSON(w, hr, true)
		return
	}
	RespondJSON(w, hr)
}

func (h *HealthHandler) run(ctx context.Context, f HealthFunc) CheckResponse {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan CheckResponse, 1)
	go func() {
		status, ok := f(ctx)
		done <- CheckResponse{Status: status, OK: ok}
	}()
	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return CheckResponse{Status: "timed out", OK: false}
	}
}
