// Package config loads the assistant's configuration: defaults, an optional
// YAML file, and environment variable overrides, the way the teacher's
// pkg/config layers loader stages.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/raven-ai/assistant/pkg/tracing"
)

// Thresholds holds the tunables from spec.md §6 — never hardcoded past this
// struct, so an operator can retune them without a rebuild.
type Thresholds struct {
	MatchSimilarity   float64 `yaml:"match_similarity_threshold" mapstructure:"match_similarity_threshold"`
	MatchDistance     float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
	MergeSimilarity   float64 `yaml:"merge_similarity_threshold" mapstructure:"merge_similarity_threshold"`
	MergeSimilarityEps float64 `yaml:"merge_similarity_eps" mapstructure:"merge_similarity_eps"`
	Generalization    float64 `yaml:"generalization_threshold" mapstructure:"generalization_threshold"`
}

// Caps holds the bounded-cardinality limits from spec.md §3/§6.
type Caps struct {
	MaxSteps          int `yaml:"max_steps" mapstructure:"max_steps"`
	MaxParameters     int `yaml:"max_parameters" mapstructure:"max_parameters"`
	MaxPreconditions  int `yaml:"max_preconditions" mapstructure:"max_preconditions"`
	MaxSuccessCriteria int `yaml:"max_success_criteria" mapstructure:"max_success_criteria"`
	MaxExamples       int `yaml:"max_examples" mapstructure:"max_examples"`
}

// Database configures the Skill Store's SQL backend.
type Database struct {
	Dialect string `yaml:"dialect" mapstructure:"dialect"` // postgres | mysql | sqlite
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns int `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
}

// VectorIndex configures an optional nearest-neighbour backend for C4/C6.
// When Backend is empty, retrieval always misses (spec.md §9 note).
type VectorIndex struct {
	Backend   string `yaml:"backend" mapstructure:"backend"` // "" | pgvector | qdrant
	QdrantURL string `yaml:"qdrant_url" mapstructure:"qdrant_url"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
}

// Embedding configures the Embedding Provider (C5).
type Embedding struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai | stub
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
	MaxChars  int    `yaml:"max_chars" mapstructure:"max_chars"`
}

// Model configures the Model Client (C2) defaults.
type Model struct {
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// Server configures one HTTP surface (agentd or skillengined).
type Server struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Config is the top-level, process-wide configuration.
type Config struct {
	LogLevel   string      `yaml:"log_level" mapstructure:"log_level"`
	PromptFile string      `yaml:"prompt_file" mapstructure:"prompt_file"`
	Thresholds Thresholds  `yaml:"thresholds" mapstructure:"thresholds"`
	Caps       Caps        `yaml:"caps" mapstructure:"caps"`
	Database   Database    `yaml:"database" mapstructure:"database"`
	Vector     VectorIndex `yaml:"vector" mapstructure:"vector"`
	Embedding  Embedding   `yaml:"embedding" mapstructure:"embedding"`
	Model      Model       `yaml:"model" mapstructure:"model"`
	Agent      Server      `yaml:"agent_server" mapstructure:"agent_server"`
	SkillEngine Server     `yaml:"skill_engine_server" mapstructure:"skill_engine_server"`
	Tracing    tracing.Config `yaml:"tracing" mapstructure:"tracing"`
}

// Defaults returns the spec-mandated default thresholds/caps plus sane
// operational defaults for everything else.
func Defaults() Config {
	return Config{
		LogLevel:   "info",
		PromptFile: "prompt.txt",
		Thresholds: Thresholds{
			MatchSimilarity:    0.75,
			MatchDistance:      0.25,
			MergeSimilarity:    0.75,
			MergeSimilarityEps: 0.05,
			Generalization:     0.75,
		},
		Caps: Caps{
			MaxSteps:           8,
			MaxParameters:      12,
			MaxPreconditions:   8,
			MaxSuccessCriteria: 8,
			MaxExamples:        6,
		},
		Database: Database{
			Dialect:      "sqlite",
			DSN:          "assistant.db",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Embedding: Embedding{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			BaseURL:   "https://api.openai.com/v1",
			Dimension: 1536,
			MaxChars:  4000,
		},
		Model: Model{
			BaseURL:    "https://api.openai.com/v1",
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
		Agent:       Server{Addr: ":8080"},
		SkillEngine: Server{Addr: ":8081"},
		Tracing: tracing.Config{
			Enabled:      false,
			SamplingRate: 1,
			ServiceName:  "assistant",
		},
	}
}

// Load layers defaults, an optional YAML file, and environment overrides
// prefixed ASSISTANT_ (e.g. ASSISTANT_LOG_LEVEL, ASSISTANT_DATABASE_DSN),
// mirroring the teacher's defaults -> file -> env precedence.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			var fileMap map[string]any
			if err := yaml.Unmarshal(raw, &fileMap); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				Result:           &cfg,
				WeaklyTypedInput: true,
				TagName:          "mapstructure",
			})
			if err != nil {
				return cfg, fmt.Errorf("config: build decoder: %w", err)
			}
			if err := dec.Decode(fileMap); err != nil {
				return cfg, fmt.Errorf("config: decode %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides reads a small fixed set of ASSISTANT_* variables: the
// ones operators actually need to flip without editing the YAML file
// (secrets, DSN, log level). Everything else is file/default-only.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ASSISTANT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ASSISTANT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("ASSISTANT_DATABASE_DIALECT"); v != "" {
		cfg.Database.Dialect = v
	}
	if v := os.Getenv("ASSISTANT_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("ASSISTANT_VECTOR_BACKEND"); v != "" {
		cfg.Vector.Backend = v
	}
	if v := os.Getenv("ASSISTANT_VECTOR_QDRANT_URL"); v != "" {
		cfg.Vector.QdrantURL = v
	}
	if v := os.Getenv("ASSISTANT_AGENT_ADDR"); v != "" {
		cfg.Agent.Addr = v
	}
	if v := os.Getenv("ASSISTANT_SKILL_ENGINE_ADDR"); v != "" {
		cfg.SkillEngine.Addr = v
	}
	if v := os.Getenv("ASSISTANT_MODEL_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Model.MaxRetries = n
		}
	}
}

// Validate rejects a configuration that cannot run: thresholds out of
// [0,1], a non-positive caps.max_steps, or an unsupported dialect. The
// other caps are not checked.
func (c Config) Validate() error {
	for name, t := range map[string]float64{
		"match_similarity_threshold":  c.Thresholds.MatchSimilarity,
		"match_threshold":             c.Thresholds.MatchDistance,
		"merge_similarity_threshold":  c.Thresholds.MergeSimilarity,
		"generalization_threshold":    c.Thresholds.Generalization,
	} {
		if t < 0 || t > 1 {
			return fmt.Errorf("config: %s must be in [0,1], got %v", name, t)
		}
	}
	switch strings.ToLower(c.Database.Dialect) {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database dialect %q", c.Database.Dialect)
	}
	if c.Caps.MaxSteps <= 0 {
		return fmt.Errorf("config: caps.max_steps must be positive")
	}
	return nil
}
