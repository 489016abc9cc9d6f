// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package systemd reports service readiness and watchdog keep-alives to
// systemd using the sd_notify protocol.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"
)

// State is an sd_notify state string.
// See https://www.freedesktop.org/software/systemd/man/sd_notify.html.
type State string

const (
	// Ready tells the service manager that startup is finished.
	Ready State = "READY=1"
	// Reloading tells the service manager that the service is reloading its
	// configuration. It must be followed by Ready once the reload completes.
	Reloading State = "RELOADING=1"
	// Watchdog updates the watchdog timestamp.
	Watchdog State = "WATCHDOG=1"
)

// Notify sends state to the socket named by NOTIFY_SOCKET. It does nothing when
// the process is not running under systemd. Failures are logged to logger.
func Notify(logger *slog.Logger, state State) {
	notify(logger, os.Getenv, state)
}

func notify(logger *slog.Logger, getenv func(string) string, state State) {
	addr := &net.UnixAddr{
		Net:  "unixgram",
		Name: getenv("NOTIFY_SOCKET"),
	}
	if addr.Name == "" {
		return
	}

	conn, err := net.DialUnix(addr.Net, nil, addr)
	if err != nil {
		logger.Warn("systemd: notify failed", "state", string(state), "err", err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(state)); err != nil {
		logger.Warn("systemd: notify failed", "state", string(state), "err", err)
	}
}

// WatchdogLoop sends Watchdog at half the interval in WATCHDOG_USEC until ctx
// is canceled. It returns immediately if the watchdog is not enabled.
func WatchdogLoop(ctx context.Context, logger *slog.Logger) {
	watchdogLoop(ctx, logger, os.Getenv)
}

func watchdogLoop(ctx context.Context, logger *slog.Logger, getenv func(string) string) {
	if getenv("WATCHDOG_USEC") == "" {
		return
	}

	interval, err := watchdogInterval(getenv("WATCHDOG_USEC"))
	if err != nil {
		logger.Error("systemd: watchdog disabled", "err", err)
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			notify(logger, getenv, Watchdog)
		case <-ctx.Done():
			return
		}
	}
}

func watchdogInterval(usec string) (time.Duration, error) {
	n, err := strconv.Atoi(usec)
	if err != nil {
		return 0, fmt.Errorf("systemd: parsing WATCHDOG_USEC: %w", err)
	}
	if n <= 0 {
		return 0, errors.New("systemd: WATCHDOG_USEC must be a positive number")
	}
	return time.Duration(n) * time.Microsecond, nil
}
