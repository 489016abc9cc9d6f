// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.astrophena.name/stylebot/cmd/stylebot/internal/backend"
	"go.astrophena.name/stylebot/cmd/stylebot/internal/bot"
	"go.astrophena.name/stylebot/cmd/stylebot/internal/rewrite"
	"go.astrophena.name/stylebot/cmd/stylebot/internal/style"
	"go.astrophena.name/stylebot/cmd/stylebot/internal/telegram"
	"go.astrophena.name/stylebot/internal/cli"
	"go.astrophena.name/stylebot/internal/httplogger"
	"go.astrophena.name/stylebot/internal/logger"
	"go.astrophena.name/stylebot/internal/store"
	"go.astrophena.name/stylebot/internal/syncx"
	"go.astrophena.name/stylebot/internal/systemd"
	"go.astrophena.name/stylebot/internal/web"
)

func main() { cli.Main(new(engine)) }

func (e *engine) Flags(fs *flag.FlagSet) {
	fs.StringVar(&e.addr, "addr", "", "Listen on `host:port`. Overrides ADDR and PORT.")
	fs.StringVar(&e.envFile, "env-file", ".env", "Read unset environment variables from `file`.")
	fs.BoolVar(&e.prod, "prod", false, "Run in production mode: register the webhook at https://$HOST/telegram.")
	fs.StringVar(&e.storePath, "store", "", "Path to the style profile `file`. Overrides STORE_PATH.")
	fs.BoolVar(&e.verbose, "verbose", false, "Log debug messages, including outgoing HTTP requests.")
}

var (
	errNoToken = errors.New("telegram token hasn't set; pass it with TG_TOKEN environment variable")
	errNoHost  = errors.New("host hasn't set; pass it with HOST environment variable")
)

const (
	defaultAddr      = "localhost:3000"
	defaultStorePath = "data/store.json"
)

func (e *engine) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	getenv, err := dotenv(e.envFile, env.Getenv)
	if err != nil {
		return err
	}

	// Load configuration from environment variables.
	e.addr = cmp.Or(e.addr, getenv("ADDR"), portAddr(getenv("PORT")), defaultAddr)
	e.adminToken = cmp.Or(e.adminToken, getenv("ADMIN_TOKEN"))
	e.host = cmp.Or(e.host, getenv("HOST"))
	e.storePath = cmp.Or(e.storePath, getenv("STORE_PATH"), defaultStorePath)
	e.styleDefaults = cmp.Or(e.styleDefaults, getenv("STYLE_DEFAULTS"))
	e.tgSecret = cmp.Or(e.tgSecret, getenv("TG_SECRET"))
	e.tgToken = cmp.Or(e.tgToken, getenv("TG_TOKEN"))
	e.backendConfig = backendConfig(getenv)

	e.stderr = env.Stderr

	if e.tgToken == "" {
		return errNoToken
	}

	// Initialize internal state.
	if err := e.init.Get(func() error {
		return e.doInit(ctx)
	}); err != nil {
		return err
	}

	// Used in tests.
	if e.noServerStart {
		return nil
	}
	defer e.close()

	// If running in production mode, set the webhook in Telegram Bot API.
	if e.prod {
		if err := e.setWebhook(ctx); err != nil {
			return err
		}
		e.logger.Info("running in production mode")
	} else {
		e.logger.Info("running in development mode")
	}

	go e.reloadOnHangup(ctx)
	go systemd.WatchdogLoop(ctx, e.logger)

	return e.srv.ListenAndServe(ctx)
}

func portAddr(port string) string {
	if port == "" {
		return ""
	}
	return ":" + port
}

func backendConfig(getenv func(string) string) backend.Config {
	return backend.Config{
		OpenAIKey:     getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getenv("OPENAI_BASE_URL"),
		OpenAIModel:   getenv("OPENAI_MODEL"),
		GeminiKey:     getenv("GEMINI_KEY"),
		GeminiModel:   getenv("GEMINI_MODEL"),
	}
}

type engine struct {
	init syncx.Lazy[error] // main initialization

	// initialized by doInit
	bot       *bot.Bot
	logStream logger.Streamer
	logger    *slog.Logger
	me        telegram.User // obtained from Telegram Bot API
	mux       *http.ServeMux
	pipeline  *rewrite.Pipeline
	scrubber  *strings.Replacer
	selector  *backend.Selector
	srv       *web.Server
	store     *store.JSONFile
	tg        *telegram.Client

	// configuration, read-only after initialization
	addr          string
	adminToken    string
	backendConfig backend.Config
	envFile       string
	host          string
	httpc         *http.Client
	prod          bool
	stderr        io.Writer
	storePath     string
	styleDefaults string
	tgSecret      string
	tgToken       string
	verbose       bool
	// for tests
	noServerStart bool
	ready         func() // see web.Server.Ready
}

const logLineLimit = 300

func (e *engine) doInit(ctx context.Context) error {
	if e.httpc == nil {
		e.httpc = &http.Client{
			// Leave room for slow model responses.
			Timeout: 60 * time.Second,
		}
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}

	e.logStream = logger.NewStreamer(logLineLimit)
	level := slog.LevelInfo
	if e.verbose {
		level = slog.LevelDebug
	}
	e.logger = slog.New(slog.NewTextHandler(io.MultiWriter(e.stderr, e.logStream), &slog.HandlerOptions{Level: level}))

	var scrubPairs []string
	for _, val := range []string{
		e.tgSecret,
		e.tgToken,
		e.adminToken,
		e.backendConfig.OpenAIKey,
		e.backendConfig.GeminiKey,
	} {
		if val != "" {
			scrubPairs = append(scrubPairs, val, "[EXPUNGED]")
		}
	}
	if len(scrubPairs) > 0 {
		e.scrubber = strings.NewReplacer(scrubPairs...)
	}
	if e.verbose {
		e.httpc.Transport = httplogger.New(e.httpc.Transport, e.logger, e.scrubber)
	}

	defaults, err := style.LoadDefaults(e.styleDefaults)
	if err != nil {
		return err
	}

	e.store, err = store.NewJSONFile(e.storePath)
	if err != nil {
		return err
	}
	e.logger.Info("opened style profile store", "path", e.store.Path())

	e.backendConfig.HTTPClient = e.httpc
	e.selector = backend.NewSelector(e.backendConfig)
	if !e.backendConfig.HasRemote() {
		e.logger.Warn("no OpenAI or Gemini key configured, messages will only get a hashtag appended")
	}

	e.pipeline, err = rewrite.New(rewrite.Opts{
		Store:    e.store,
		Selector: e.selector,
		Defaults: defaults,
		Logger:   e.logger,
	})
	if err != nil {
		return err
	}

	e.tg = telegram.New(telegram.Config{
		Token:      e.tgToken,
		HTTPClient: e.httpc,
		Scrubber:   e.scrubber,
		Logger:     e.logger,
	})
	e.me, err = e.tg.GetMe(ctx)
	if err != nil {
		return err
	}
	e.logger.Info("authorized in Telegram", "bot_id", e.me.ID, "username", e.me.Username, "backend", e.selector.Select().Name())

	e.bot = bot.New(bot.Opts{
		Secret:   e.tgSecret,
		Sender:   e.tg,
		Pipeline: e.pipeline,
		Store:    e.store,
		Logger:   e.logger,
		Username: e.me.Username,
	})

	e.initRoutes()
	e.srv = &web.Server{
		Addr:   e.addr,
		Mux:    e.mux,
		Logger: e.logger,
		Ready:  e.onReady,
	}

	return nil
}

func (e *engine) onReady() {
	systemd.Notify(e.logger, systemd.Ready)
	if e.ready != nil {
		e.ready()
	}
}

// close waits for running rewrites and releases resources.
func (e *engine) close() {
	e.bot.Wait()
	if err := e.selector.Close(); err != nil {
		e.logger.Error("closing backend", "err", err)
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("closing store", "err", err)
	}
}

func (e *engine) setWebhook(ctx context.Context) error {
	if e.host == "" {
		return errNoHost
	}
	return e.tg.SetWebhook(ctx, "https://"+e.host+"/telegram", e.tgSecret)
}

// reloadOnHangup switches the rewriting backend when SIGHUP is received.
func (e *engine) reloadOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			systemd.Notify(e.logger, systemd.Reloading)
			if err := e.reloadBackend(cli.GetEnv(ctx).Getenv); err != nil {
				e.logger.Error("reloading backend configuration", "err", err)
			}
			systemd.Notify(e.logger, systemd.Ready)
		case <-ctx.Done():
			return
		}
	}
}

func (e *engine) reloadBackend(lookup func(string) string) error {
	getenv, err := dotenv(e.envFile, lookup)
	if err != nil {
		return err
	}
	c := backendConfig(getenv)
	c.HTTPClient = e.httpc
	if err := e.selector.SetConfig(c); err != nil {
		return err
	}
	e.logger.Info("reloaded backend configuration", "backend", e.selector.Select().Name())
	return nil
}
