// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"net/http"

	"go.astrophena.name/stylebot/internal/web"
)

func (e *engine) initRoutes() {
	e.mux = http.NewServeMux()

	e.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		web.RespondJSON(w, map[string]string{
			"status":  "ok",
			"message": "Telegram style bot server",
		})
	})
	e.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		web.RespondJSON(w, map[string]string{"status": "healthy"})
	})
	e.mux.HandleFunc("POST /telegram", e.bot.HandleTelegramWebhook)

	health := web.Health(e.mux)
	health.RegisterFunc("store", func(ctx context.Context) (status string, ok bool) {
		keys, err := e.store.Keys(ctx)
		if err != nil {
			return err.Error(), false
		}
		return fmt.Sprintf("%d chats configured", len(keys)), true
	})
	health.RegisterFunc("backend", func(context.Context) (status string, ok bool) {
		return e.selector.Select().Name(), true
	})

	admin := web.BearerAuth(e.adminToken)
	e.mux.Handle("GET /debug/logs", admin(e.logStream))
	e.mux.Handle("GET /debug/loghistory", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		web.RespondJSON(w, e.logStream.Lines())
	})))
}
