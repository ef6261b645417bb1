package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/felixgeelhaar/codequest/internal/mcp"
)

// cmdMCP starts the MCP server against the daemon
func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	httpAddr := fs.String("http", "", "serve over HTTP on this address instead of stdio")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the protocol
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	c := newClient(cfg)
	defer c.Close()
	if !isRunning(cfg) {
		return fmt.Errorf("daemon not running at %s (run 'codequest start' first)", cfg.Backend.URL)
	}

	srv := mcpserver.NewServer(mcpserver.Config{
		Backend:       c,
		Filters:       c.FilterStore(),
		Recommender:   newScorer(cfg),
		UserID:        cfg.Backend.UserID,
		FeedbackDelay: cfg.Quiz.FeedbackDelay(),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *httpAddr != "" {
		return srv.ServeHTTP(ctx, *httpAddr)
	}
	return srv.ServeStdio(ctx)
}
