// Package wiring centralises the constructors every command-line entrypoint
// needs from a loaded config.Config: the Skill Store (vector-backend
// selection included), the Embedding Provider, and the per-request Model
// Client factory. Kept separate from any one cmd/ so agentd, skillengined,
// and skillctl build identical components from the same config.
package wiring

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/embedder"
	"github.com/raven-ai/assistant/pkg/metrics"
	"github.com/raven-ai/assistant/pkg/model"
	"github.com/raven-ai/assistant/pkg/registry"
	"github.com/raven-ai/assistant/pkg/server"
	"github.com/raven-ai/assistant/pkg/skillstore"
	"github.com/raven-ai/assistant/pkg/tracing"
)

// embedderFactory builds an Embedding Provider from config; registered by
// provider name so NewEmbedder is a lookup rather than a growing switch.
type embedderFactory func(config.Config) embedder.Provider

// embedderFactories is populated once at package init and never mutated
// afterward, so concurrent reads from NewEmbedder need no further locking
// beyond what registry.BaseRegistry already provides.
var embedderFactories = registry.NewBaseRegistry[embedderFactory]()

func init() {
	must := func(name string, f embedderFactory) {
		if err := embedderFactories.Register(name, f); err != nil {
			panic(err)
		}
	}
	must("openai", func(cfg config.Config) embedder.Provider {
		return embedder.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.Dimension, cfg.Embedding.MaxChars)
	})
	must("stub", func(cfg config.Config) embedder.Provider {
		return embedder.NewStubEmbedder(cfg.Embedding.Dimension)
	})
}

// InitTracing installs the global OpenTelemetry TracerProvider per
// cfg.Tracing, returning the shutdown func every cmd/ entrypoint must defer
// to flush buffered spans before exit.
func InitTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	return tracing.Init(ctx, cfg.Tracing)
}

// NewMetricsRecorder builds the agent/learner metrics recorder, registering
// its instruments with the process's default Prometheus registerer so they
// surface on the same /metrics endpoint as the HTTP middleware's counters.
func NewMetricsRecorder() (*metrics.Recorder, error) {
	return metrics.Init()
}

// OpenStore wires the Skill Store to the configured vector backend:
// pgvector shares the same *sql.DB (so it's only available under postgres),
// qdrant runs as an independent collection, and an empty backend leaves
// retrieval permanently missing (spec.md §9).
func OpenStore(ctx context.Context, cfg config.Config) (skillstore.Store, func() error, skillstore.VectorIndex, error) {
	switch cfg.Vector.Backend {
	case "qdrant":
		idx, err := skillstore.NewQdrantIndex(cfg.Vector.QdrantURL, 6334, "", "assistant_skills", cfg.Vector.Dimension)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("wiring: qdrant index: %w", err)
		}
		store, closeFn, err := skillstore.OpenFromConfig(ctx, cfg.Database.Dialect, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, idx)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, closeFn, idx, nil
	case "pgvector":
		// PGVectorIndex shares the Skill Store's *sql.DB, so the pool is
		// opened here rather than through OpenFromConfig, and the index is
		// constructed before the schema/index are wired together.
		db, err := sql.Open(cfg.Database.Dialect, cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("wiring: open db: %w", err)
		}
		if cfg.Database.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		}
		if cfg.Database.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("wiring: ping db: %w", err)
		}
		idx, err := skillstore.NewPGVectorIndex(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("wiring: pgvector index: %w", err)
		}
		store, err := skillstore.Open(ctx, db, cfg.Database.Dialect, idx)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return store, db.Close, idx, nil
	default:
		store, closeFn, err := skillstore.OpenFromConfig(ctx, cfg.Database.Dialect, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, skillstore.NoopIndex{})
		if err != nil {
			return nil, nil, nil, err
		}
		return store, closeFn, skillstore.NoopIndex{}, nil
	}
}

// NewEmbedder builds the Embedding Provider by provider name: falls back to
// "stub" when no backing provider/key is configured, so a dev deployment
// degrades to always-dissimilar embeddings instead of failing to start
// (spec.md §9), and again if an unregistered provider name is configured.
func NewEmbedder(cfg config.Config) embedder.Provider {
	name := cfg.Embedding.Provider
	if name == "" || cfg.Embedding.APIKey == "" {
		name = "stub"
	}
	factory, ok := embedderFactories.Get(name)
	if !ok {
		factory, _ = embedderFactories.Get("stub")
	}
	return factory(cfg)
}

// NewModelClientFactory returns the per-request Model Client constructor:
// API key and base URL are caller-supplied in the request body (spec.md
// §6), not process config, so the client itself cannot be built once at
// startup.
func NewModelClientFactory(cfg config.Config) server.ModelClientFactory {
	return func(apiKey, baseURL string, timeoutMs int) model.Client {
		timeout := cfg.Model.Timeout
		if timeoutMs > 0 {
			timeout = time.Duration(timeoutMs) * time.Millisecond
		}
		if baseURL == "" {
			baseURL = cfg.Model.BaseURL
		}
		return model.NewOpenAIClient(apiKey, baseURL, timeout, cfg.Model.MaxRetries)
	}
}

// BackendName renders the configured vector backend for a startup log line.
func BackendName(cfg config.Config) string {
	if cfg.Vector.Backend == "" {
		return "none"
	}
	return cfg.Vector.Backend
}
