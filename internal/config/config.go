package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/etabench/etabench/internal/eta"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 4000
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabase     = "eta_dashboard"
	DefaultMongoCollection   = "eta_records"
	DefaultThresholdPct      = 10.0
	DefaultBroadcastInterval = 5 * time.Second
)

// Config holds the full configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and metrics endpoint
	// listen on (default 4000).
	HTTPPort int `yaml:"http_port"`

	// Auth configures API-key authentication on the REST surface.
	Auth AuthConfig `yaml:"auth"`

	// Mongo locates the benchmark document store.
	Mongo MongoConfig `yaml:"mongo"`

	// Pipeline holds the classification tunables.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// CORSOrigins lists allowed origins for browser clients. Default: ["*"].
	CORSOrigins []string `yaml:"cors_origins"`

	// BroadcastInterval is how often the WebSocket hub pushes stats. Default 5s.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the environment variable holding the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header the key is read from. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// MongoConfig locates the benchmark collection.
type MongoConfig struct {
	// URIEnv names an environment variable holding the connection URI; it
	// takes precedence over URI so credentials stay out of the file.
	URIEnv string `yaml:"uri_env"`

	// URI is the connection string used when URIEnv is empty or unset.
	URI string `yaml:"uri"`

	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// EffectiveURI resolves the connection string, preferring the environment.
func (m MongoConfig) EffectiveURI() string {
	if m.URIEnv != "" {
		if uri := os.Getenv(m.URIEnv); uri != "" {
			return uri
		}
	}
	return m.URI
}

// PipelineConfig holds the classification tunables.
type PipelineConfig struct {
	// ThresholdPct is the Similar band in percentage points (default 10).
	ThresholdPct float64 `yaml:"threshold_pct"`

	// DefaultComparison is the provider compared when a request names none.
	DefaultComparison string `yaml:"default_comparison"`
}

// Comparison returns the default compared provider.
func (p PipelineConfig) Comparison() eta.Provider {
	return eta.Provider(p.DefaultComparison)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Mongo: MongoConfig{
				URI:        DefaultMongoURI,
				Database:   DefaultMongoDatabase,
				Collection: DefaultMongoCollection,
			},
			Pipeline: PipelineConfig{
				ThresholdPct:      DefaultThresholdPct,
				DefaultComparison: string(eta.ProviderMappls),
			},
			CORSOrigins:       []string{"*"},
			BroadcastInterval: DefaultBroadcastInterval,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Mongo.Database == "" || s.Mongo.Collection == "" {
		return fmt.Errorf("server.mongo.database and server.mongo.collection are required")
	}
	if s.Pipeline.ThresholdPct <= 0 {
		return fmt.Errorf("server.pipeline.threshold_pct must be positive, got %v", s.Pipeline.ThresholdPct)
	}
	cmp := s.Pipeline.Comparison()
	if !cmp.Valid() || cmp == eta.ProviderGoogle {
		return fmt.Errorf("server.pipeline.default_comparison %q must be a non-reference provider", s.Pipeline.DefaultComparison)
	}
	if s.BroadcastInterval < 0 {
		return fmt.Errorf("server.broadcast_interval must not be negative")
	}
	return nil
}
