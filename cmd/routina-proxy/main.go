// Package main provides the credential-holding forwarding server for
// routina. The CLI talks to this process; only this process talks to the
// upstream providers.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mfierros/routina/internal/config"
	"github.com/mfierros/routina/internal/metrics"
	"github.com/mfierros/routina/internal/proxy"
)

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	flag.Parse()

	cfg := config.Load()
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	// The only place provider credentials exist. A missing key keeps the
	// server up and fails the corresponding endpoint per request.
	proxyCfg := proxy.Config{
		ChatAPIKey:     os.Getenv("OPENAI_API_KEY"),
		SearchAPIKey:   os.Getenv("BING_API_KEY"),
		ChatUpstream:   os.Getenv("ROUTINA_CHAT_UPSTREAM"),
		SearchUpstream: os.Getenv("ROUTINA_SEARCH_UPSTREAM"),
	}
	if proxyCfg.ChatAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, chat forwarding disabled")
	}
	if proxyCfg.SearchAPIKey == "" {
		logger.Warn("BING_API_KEY not set, search forwarding disabled")
	}

	srv := proxy.New(proxyCfg, logger, metrics.NewCollector())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := proxy.ListenAndServe(ctx, *addr, srv, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
