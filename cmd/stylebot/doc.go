// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Stylebot is a Telegram bot that rewrites messages in the voice of a chat and
appends a hashtag.

Send it a text and it answers with the text rewritten according to the chat's
style instructions, followed by one of the chat's hashtags picked at random.
Chats without a configured style use built-in defaults. Rewriting is done by
OpenAI or Gemini, depending on which API key is configured; without any key,
text is returned unchanged with a hashtag appended.

Style profiles are stored in a single JSON file, keyed by chat ID.

# Usage

	$ stylebot [flags...]

# Chat commands

	/style <instructions>  Set style instructions for the chat.
	/tags #a #b            Set hashtag candidates for the chat.
	/profile               Show the effective profile.
	/reset                 Forget the chat's profile.

# Environment

Configuration is read from environment variables and, for variables that are
not set, from the file passed with -env-file (.env by default):

	TG_TOKEN         Telegram Bot API token (required).
	TG_SECRET        Webhook secret token.
	HOST             Public host name used to register the webhook in production mode.
	ADDR, PORT       Address or port to listen on.
	STORE_PATH       Path to the style profile store (data/store.json by default).
	STYLE_DEFAULTS   YAML file overriding the default style profile.
	OPENAI_API_KEY   Enables rewriting with OpenAI.
	OPENAI_BASE_URL  OpenAI-compatible API endpoint.
	OPENAI_MODEL     OpenAI model name.
	GEMINI_KEY       Enables rewriting with Gemini when OPENAI_API_KEY is not set.
	GEMINI_MODEL     Gemini model name.
	ADMIN_TOKEN      Bearer token for the /debug endpoints.

Send SIGHUP to re-read the env file and switch the rewriting backend without
restarting.

Under systemd with Type=notify, readiness, reloads and watchdog keep-alives are
reported through NOTIFY_SOCKET. Pass -verbose to log every outgoing HTTP
request, with secrets removed.

# HTTP endpoints

	GET  /                  Status.
	GET  /healthz           Liveness check.
	GET  /health            Health checks of the store and the backend.
	POST /telegram          Telegram webhook.
	GET  /debug/logs        Live log stream (server-sent events).
	GET  /debug/loghistory  Recent log lines.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/stylebot/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
