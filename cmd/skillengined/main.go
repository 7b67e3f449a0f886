// Command skillengined is the CLI for the Skill Engine service: retrieval,
// skill-step execution, the asynchronous Learner, and Feedback Repair
// (spec.md §4.4-§4.9), grounded on the teacher's cmd/hector kong-based
// entrypoint.
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

// CLI defines the skillengined command-line interface.
type CLI struct {
	Serve ServeCmd `cmd:"" help:"Start the Skill Engine HTTP server."`

	Config string `short:"c" help:"Path to YAML config file." type:"path"`
}

// ServeCmd starts the Skill Engine HTTP server.
type ServeCmd struct {
	Addr string `help:"Override the configured listen address."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("skillengined: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("skillengined: invalid config: %w", err)
	}
	if c.Addr != "" {
		cfg.SkillEngine.Addr = c.Addr
	}

	logger.Init(logger.ParseLevel(cfg.LogLevel), os.Stderr)

	// Root context for the Learner's detached goroutines: survives any one
	// request's cancellation, dies only with the process (spec.md §5, §9).
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	shutdownTracing, err := wiring.InitTracing(rootCtx, cfg)
	if err != nil {
		return fmt.Errorf("skillengined: init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	store, closeStore, index, err := wiring.OpenStore(rootCtx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	emb := wiring.NewEmbedder(cfg)
	_ = index // index lives inside store; kept for future direct use (e.g. reindex tooling)

	recorder, err := wiring.NewMetricsRecorder()
	if err != nil {
		return fmt.Errorf("skillengined: init metrics: %w", err)
	}

	promptCache := agentcore.NewPromptCache(cfg.PromptFile)
	factory := wiring.NewModelClientFactory(cfg)

	srv := server.NewSkillEngineServer(factory, promptCache, store, emb, cfg.Thresholds, cfg.Caps, rootCtx)
	srv.Metrics = recorder

	httpServer := &http.Server{Addr: cfg.SkillEngine.Addr, Handler: srv.Routes()}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("skillengined listening on %s (vector backend: %s)\n", cfg.SkillEngine.Addr, wiring.BackendName(cfg))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("skillengined: serve: %w", err)
	}
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("skillengined"),
		kong.Description("Skill Engine service: retrieval, execution, learning, and feedback repair."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
