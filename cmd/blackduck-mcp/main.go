// Package main implements the blackduck-mcp server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/secstack/blackduck-mcp/internal/blackduck"
	"github.com/secstack/blackduck-mcp/internal/cli"
	"github.com/secstack/blackduck-mcp/internal/config"
	"github.com/secstack/blackduck-mcp/internal/fixguidance"
	"github.com/secstack/blackduck-mcp/internal/server"
)

func main() {
	cliMode := flag.Bool("cli", false, "Run one command and exit instead of serving MCP")
	configPath := flag.String("config", "", "Path to an optional YAML config file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(server.Version)
		return
	}

	// .env is a convenience for local runs; a missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	// Logs go to stderr: stdout carries the MCP protocol.
	log := slog.New(cfg.Handler(os.Stderr))
	slog.SetDefault(log)

	client := blackduck.New(cfg.URL, cfg.APIToken,
		blackduck.WithLogger(log.With("component", "blackduck")),
		blackduck.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		blackduck.WithRetryMax(cfg.RetryMax),
		blackduck.WithTrustCert(cfg.TrustCert),
		blackduck.WithRateLimit(cfg.RateLimit),
	)
	pipeline := fixguidance.New(client, log.With("component", "fixguidance"))

	ctx := context.Background()
	if *cliMode {
		os.Exit(cli.Run(ctx, client, pipeline, flag.Args()))
	}

	log.Info("starting MCP server", "version", server.Version, "hub", cfg.URL)
	if err := server.Run(ctx, client, pipeline, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
