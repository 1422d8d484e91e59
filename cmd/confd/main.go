// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

// Command confd is the configuration data daemon: it owns a typed
// property store on local disk and serves it over a Unix domain
// socket to co-located clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/confd-io/confd/internal/confdconfig"
	"github.com/confd-io/confd/internal/rpcserver"
	"github.com/confd-io/confd/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		logLevel   string
		logSimple  bool
	)

	flag.StringVar(&configPath, "config", "", "path to confd's configuration file (overrides "+confdconfig.EnvVar+")")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flag.BoolVar(&logSimple, "log-simple", false, "use a human-readable text log handler instead of JSON")
	flag.Parse()

	level, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if logSimple {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	var cfg *confdconfig.Config
	if configPath != "" {
		cfg, err = confdconfig.LoadFile(configPath, logger)
	} else {
		cfg, err = confdconfig.Load(logger)
	}
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// A schema version mismatch is the one failure mode spec.md §7
	// calls out as a startup-aborting fatal error; everything else the
	// daemon encounters while running is logged and survived.
	st, err := store.Open(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("open property store: %w", err)
	}
	defer st.Close()
	logger.Info("property store opened", "path", cfg.StoragePath)

	srv, err := rpcserver.Listen(cfg.SocketPath, cfg.SocketMode, st, cfg.Gate, logger)
	if err != nil {
		return fmt.Errorf("start rpc listener: %w", err)
	}
	defer srv.Close()
	logger.Info("rpc listener started", "socket", cfg.SocketPath, "mode", cfg.SocketMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("rpc server: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid -log-level %q: must be debug, info, warn, or error", s)
	}
}
