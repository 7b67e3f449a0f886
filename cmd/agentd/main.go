// Command agentd is the CLI for the Agent service: a single stateless HTTP
// surface around the Agent Orchestrator (spec.md §6), grounded on the
// teacher's cmd/hector kong-based entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/raven-ai/assistant/pkg/agentcore"
	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/logger"
	"github.com/raven-ai/assistant/pkg/server"
	"github.com/raven-ai/assistant/pkg/wiring"
)

// CLI defines the agentd command-line interface.
type CLI struct {
	Serve ServeCmd `cmd:"" help:"Start the Agent HTTP server."`

	Config string `short:"c" help:"Path to YAML config file." type:"path"`
}

// ServeCmd starts the Agent HTTP server.
type ServeCmd struct {
	Addr       string `help:"Override the configured listen address."`
	PromptFile string `help:"Override the configured prompt file path."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("agentd: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("agentd: invalid config: %w", err)
	}
	if c.Addr != "" {
		cfg.Agent.Addr = c.Addr
	}
	if c.PromptFile != "" {
		cfg.PromptFile = c.PromptFile
	}

	logger.Init(logger.ParseLevel(cfg.LogLevel), os.Stderr)

	shutdownTracing, err := wiring.InitTracing(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("agentd: init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	recorder, err := wiring.NewMetricsRecorder()
	if err != nil {
		return fmt.Errorf("agentd: init metrics: %w", err)
	}

	promptCache := agentcore.NewPromptCache(cfg.PromptFile)
	factory := wiring.NewModelClientFactory(cfg)

	srv := server.NewAgentServer(factory, promptCache, cfg.PromptFile)
	srv.Metrics = recorder

	httpServer := &http.Server{Addr: cfg.Agent.Addr, Handler: srv.Routes()}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("agentd listening on %s\n", cfg.Agent.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("agentd: serve: %w", err)
	}
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentd"),
		kong.Description("Agent service: single-turn tool-calling HTTP API."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
