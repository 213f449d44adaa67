// Package config loads vtlookup settings from defaults, an optional YAML
// file, .env files and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// maxPageSize is the most related objects the API returns per page.
const maxPageSize = 40

const (
	BackendVirusTotal = "virustotal"
	BackendNeo4j      = "neo4j"
)

// Config contains every tunable of the lookup client and its surfaces.
// Use DefaultConfig() to get sensible defaults, then override as needed.
type Config struct {
	// VirusTotal API
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`     // default: https://www.virustotal.com/api/v3
	HTTPTimeout time.Duration `yaml:"http_timeout"` // default: 30s
	PageSize    int           `yaml:"page_size"`    // relationship page size, 1..40 (default: 40)

	// Graph submission backend: "virustotal" or "neo4j"
	GraphBackend string `yaml:"graph_backend"`

	Neo4j Neo4jConfig `yaml:"neo4j"`

	// DuckDB result store; empty keeps results in memory
	DuckDBPath          string `yaml:"duckdb_path"`
	DuckDBThreads       int    `yaml:"duckdb_threads"`         // 0 = DuckDB default
	DuckDBMemoryLimitGB int    `yaml:"duckdb_memory_limit_gb"` // 0 = DuckDB default

	// Response cache; empty disables it
	RedisURL string        `yaml:"redis_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // default: 24h

	HTTPAddr      string        `yaml:"http_addr"`      // default: :8080
	WatchInterval time.Duration `yaml:"watch_interval"` // default: 15m

	// Gemini, for natural-language graph questions
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
}

// Neo4jConfig locates the graph database. An empty URI disables it.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Enabled reports whether a Neo4j URI is configured.
func (n Neo4jConfig) Enabled() bool { return n.URI != "" }

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://www.virustotal.com/api/v3",
		HTTPTimeout:  30 * time.Second,
		PageSize:     maxPageSize,
		GraphBackend: BackendVirusTotal,
		Neo4j: Neo4jConfig{
			User:     "neo4j",
			Database: "neo4j",
		},
		CacheTTL:      24 * time.Hour,
		HTTPAddr:      ":8080",
		WatchInterval: 15 * time.Minute,
		GeminiModel:   "flash",
	}
}

// WithAPIKey returns a copy of the config with the given API key.
func (c Config) WithAPIKey(key string) Config {
	c.APIKey = key
	return c
}

// WithBaseURL returns a copy of the config with a modified API base URL.
func (c Config) WithBaseURL(u string) Config {
	c.BaseURL = u
	return c
}

// WithGraphBackend returns a copy of the config with a modified graph backend.
func (c Config) WithGraphBackend(name string) Config {
	c.GraphBackend = name
	return c
}

// WithDuckDBPath returns a copy of the config storing results at path.
func (c Config) WithDuckDBPath(path string) Config {
	c.DuckDBPath = path
	return c
}

// WithRedisURL returns a copy of the config caching responses in Redis.
func (c Config) WithRedisURL(u string) Config {
	c.RedisURL = u
	return c
}

// WithHTTPAddr returns a copy of the config with a modified listen address.
func (c Config) WithHTTPAddr(addr string) Config {
	c.HTTPAddr = addr
	return c
}

// Validate checks if the configuration is valid and returns an error if not.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigError{Field: "APIKey", Message: "must not be empty (set VT_API_KEY)"}
	}
	if c.BaseURL == "" {
		return &ConfigError{Field: "BaseURL", Message: "must not be empty"}
	}
	if c.HTTPTimeout <= 0 {
		return &ConfigError{Field: "HTTPTimeout", Message: "must be positive"}
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		return &ConfigError{Field: "PageSize", Message: fmt.Sprintf("must be between 1 and %d", maxPageSize)}
	}
	switch c.GraphBackend {
	case BackendVirusTotal:
	case BackendNeo4j:
		if !c.Neo4j.Enabled() {
			return &ConfigError{Field: "Neo4j.URI", Message: "required by the neo4j graph backend"}
		}
	default:
		return &ConfigError{Field: "GraphBackend", Message: fmt.Sprintf("unknown backend %q", c.GraphBackend)}
	}
	if c.DuckDBThreads < 0 || c.DuckDBMemoryLimitGB < 0 {
		return &ConfigError{Field: "DuckDB", Message: "threads and memory limit must not be negative"}
	}
	if c.RedisURL != "" && c.CacheTTL <= 0 {
		return &ConfigError{Field: "CacheTTL", Message: "must be positive"}
	}
	if c.WatchInterval <= 0 {
		return &ConfigError{Field: "WatchInterval", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}

// Load builds a Config. path names an optional YAML file; envFiles are
// loaded with godotenv before the environment is read. Without envFiles a
// ./.env is loaded when present. Variables already set in the environment
// are never overridden by .env files.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Field: key, Message: "must be a duration such as 30s"}
		}
		*dst = d
		return nil
	}

	str("VT_API_KEY", &c.APIKey)
	str("VT_BASE_URL", &c.BaseURL)
	str("VT_GRAPH_BACKEND", &c.GraphBackend)
	str("NEO4J_URI", &c.Neo4j.URI)
	str("NEO4J_USER", &c.Neo4j.User)
	str("NEO4J_PASSWORD", &c.Neo4j.Password)
	str("NEO4J_DATABASE", &c.Neo4j.Database)
	str("DUCKDB_PATH", &c.DuckDBPath)
	str("REDIS_URL", &c.RedisURL)
	str("VTLOOKUP_HTTP_ADDR", &c.HTTPAddr)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)

	for key, dst := range map[string]*int{
		"VT_PAGE_SIZE":           &c.PageSize,
		"DUCKDB_THREADS":         &c.DuckDBThreads,
		"DUCKDB_MEMORY_LIMIT_GB": &c.DuckDBMemoryLimitGB,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: key, Message: "must be an integer"}
		}
		*dst = n
	}
	if err := dur("VT_CACHE_TTL", &c.CacheTTL); err != nil {
		return err
	}
	if err := dur("VT_HTTP_TIMEOUT", &c.HTTPTimeout); err != nil {
		return err
	}
	return dur("VTLOOKUP_WATCH_INTERVAL", &c.WatchInterval)
}
