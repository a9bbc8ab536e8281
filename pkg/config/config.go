// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads settings from defaults, an optional YAML file,
// CEOBOT_* environment variables and --set overrides, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides: CEOBOT_LLM_API_KEY sets llm.api_key.
const EnvPrefix = "CEOBOT_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	LLM       LLMConfig       `koanf:"llm"`
	Fallback  FallbackConfig  `koanf:"fallback"`
	Cache     CacheConfig     `koanf:"cache"`
	Index     IndexConfig     `koanf:"index"`
	History   HistoryConfig   `koanf:"history"`
	Server    ServerConfig    `koanf:"server"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type DatasetConfig struct {
	// Path is a CSV file. SQLiteDSN, when set, is used instead.
	Path      string `koanf:"path"`
	SQLiteDSN string `koanf:"sqlite_dsn"`
	Table     string `koanf:"table"`
	// WatchInterval polls the source for changes; zero disables reloads.
	WatchInterval time.Duration `koanf:"watch_interval"`
	// ReferenceDate is "now" for store vintages: 2006-01-02, 2006-01 or Mon-YY.
	ReferenceDate string `koanf:"reference_date"`
}

type LLMConfig struct {
	Provider    string        `koanf:"provider"` // ollama, openai, gemini, anthropic, mock
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	Retries     int           `koanf:"retries"`
}

type FallbackConfig struct {
	Mode       string `koanf:"mode"` // context, retrieval, program
	SampleRows int    `koanf:"sample_rows"`
	TopK       int    `koanf:"top_k"`
	Guard      bool   `koanf:"guard"`
}

type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Size    int           `koanf:"size"`
	TTL     time.Duration `koanf:"ttl"`
}

type IndexConfig struct {
	Enabled         bool    `koanf:"enabled"`
	Provider        string  `koanf:"provider"` // inmemory, qdrant
	QdrantAddr      string  `koanf:"qdrant_addr"`
	Collection      string  `koanf:"collection"`
	RowsCollection  string  `koanf:"rows_collection"`
	Embedder        string  `koanf:"embedder"` // ollama, hash
	EmbedderBaseURL string  `koanf:"embedder_base_url"`
	EmbedderModel   string  `koanf:"embedder_model"`
	Threshold       float64 `koanf:"threshold"`
	Templates       string  `koanf:"templates"`
}

type HistoryConfig struct {
	MaxMessages int           `koanf:"max_messages"`
	MaxSessions int           `koanf:"max_sessions"`
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "text",

	"telemetry.exporter":      "none",
	"telemetry.otlp_endpoint": "",
	"telemetry.otlp_insecure": false,

	"dataset.path":           "",
	"dataset.sqlite_dsn":     "",
	"dataset.table":          "sales",
	"dataset.watch_interval": "0s",
	"dataset.reference_date": "",

	"llm.provider":    "ollama",
	"llm.model":       "llama3.1",
	"llm.base_url":    "http://localhost:11434",
	"llm.api_key":     "",
	"llm.temperature": 0.2,
	"llm.timeout":     "60s",
	"llm.retries":     1,

	"fallback.mode":        "context",
	"fallback.sample_rows": 100,
	"fallback.top_k":       5,
	"fallback.guard":       true,

	"cache.enabled": true,
	"cache.size":    1024,
	"cache.ttl":     "1h",

	"index.enabled":           false,
	"index.provider":          "inmemory",
	"index.qdrant_addr":       "localhost:6334",
	"index.collection":        "qsr_ceo_questions",
	"index.rows_collection":   "qsr_ceo_rows",
	"index.embedder":          "ollama",
	"index.embedder_base_url": "http://localhost:11434",
	"index.embedder_model":    "nomic-embed-text",
	"index.threshold":         0.92,
	"index.templates":         "",

	"history.max_messages": 50,
	"history.max_sessions": 10000,
	"history.idle_timeout": "24h",

	"server.addr": ":8080",
}

// Load reads defaults, the YAML file at path (if any) and the environment.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithCLI is Load driven by command-line style arguments: --config PATH
// and repeated --set key=value. Values are parsed as JSON when possible,
// otherwise taken as strings. Unrelated arguments are ignored.
func LoadWithCLI(args []string) (*Config, error) {
	path, sets, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(path, sets)
}

// LoadWithOverrides is Load followed by key=value overrides.
func LoadWithOverrides(path string, sets []string) (*Config, error) {
	overrides := make(map[string]any, len(sets))
	for _, s := range sets {
		key, value, err := parseSet(s)
		if err != nil {
			return nil, err
		}
		overrides[key] = value
	}
	return load(path, overrides)
}

func load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("--set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps CEOBOT_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

func parseCLIOverrides(args []string) (string, map[string]any, error) {
	var path string
	sets := make(map[string]any)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--config requires a value")
			}
			i++
			path = args[i]
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		case arg == "--set":
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--set requires a value")
			}
			i++
			key, value, err := parseSet(args[i])
			if err != nil {
				return "", nil, err
			}
			sets[key] = value
		case strings.HasPrefix(arg, "--set="):
			key, value, err := parseSet(strings.TrimPrefix(arg, "--set="))
			if err != nil {
				return "", nil, err
			}
			sets[key] = value
		}
	}
	return path, sets, nil
}

func parseSet(s string) (string, any, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid --set %q, want key=value", s)
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return key, v, nil
	}
	return key, raw, nil
}

// ResolvedAPIKey returns llm.api_key, or the provider's conventional
// environment variable when it is empty.
func (c LLMConfig) ResolvedAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.Provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			return v
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}
