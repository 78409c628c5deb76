package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etabench/etabench/internal/eta"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server: {}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := cfg.Server
	if s.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port = %d, want %d", s.HTTPPort, DefaultHTTPPort)
	}
	if s.Mongo.Database != DefaultMongoDatabase || s.Mongo.Collection != DefaultMongoCollection {
		t.Errorf("mongo defaults = %+v", s.Mongo)
	}
	if s.Pipeline.ThresholdPct != DefaultThresholdPct {
		t.Errorf("threshold = %v, want %v", s.Pipeline.ThresholdPct, DefaultThresholdPct)
	}
	if s.Pipeline.Comparison() != eta.ProviderMappls {
		t.Errorf("default comparison = %q, want mappls", s.Pipeline.DefaultComparison)
	}
	if s.BroadcastInterval != DefaultBroadcastInterval {
		t.Errorf("broadcast_interval = %v", s.BroadcastInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  http_port: 8080
  auth:
    mode: apikey
    key_env: ETABENCH_API_KEY
    header: x-bench-key
  mongo:
    database: benchmarks
    collection: runs
  pipeline:
    threshold_pct: 15
    default_comparison: oauth2
  broadcast_interval: 2s
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := cfg.Server
	if s.HTTPPort != 8080 || s.Mongo.Database != "benchmarks" || s.Mongo.Collection != "runs" {
		t.Errorf("overrides lost: %+v", s)
	}
	if s.Pipeline.ThresholdPct != 15 || s.Pipeline.Comparison() != eta.ProviderOAuth2 {
		t.Errorf("pipeline = %+v", s.Pipeline)
	}
	if s.Auth.EffectiveHeader() != "x-bench-key" {
		t.Errorf("header = %q", s.Auth.EffectiveHeader())
	}
	if s.BroadcastInterval != 2*time.Second {
		t.Errorf("broadcast_interval = %v", s.BroadcastInterval)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad port", "server:\n  http_port: 70000\n", "http_port"},
		{"bad auth mode", "server:\n  auth:\n    mode: otp\n", "auth.mode"},
		{"zero threshold", "server:\n  pipeline:\n    threshold_pct: 0\n", "threshold_pct"},
		{"reference as comparison", "server:\n  pipeline:\n    default_comparison: google\n", "default_comparison"},
		{"unknown comparison", "server:\n  pipeline:\n    default_comparison: acme\n", "default_comparison"},
		{"blank collection", "server:\n  mongo:\n    collection: \"\"\n", "collection"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load accepted a missing file")
	}
}

func TestAuthKey_ResolvedFromEnv(t *testing.T) {
	t.Setenv("ETABENCH_TEST_KEY", "s3cret")
	a := AuthConfig{Mode: "apikey", KeyEnv: "ETABENCH_TEST_KEY"}
	if a.Key() != "s3cret" {
		t.Errorf("Key = %q", a.Key())
	}
	if (AuthConfig{}).Key() != "" {
		t.Error("empty KeyEnv should resolve to empty key")
	}
}

func TestMongoURI_EnvPrecedence(t *testing.T) {
	t.Setenv("ETABENCH_TEST_MONGO", "mongodb://bench:27017")
	m := MongoConfig{URIEnv: "ETABENCH_TEST_MONGO", URI: "mongodb://file:27017"}
	if got := m.EffectiveURI(); got != "mongodb://bench:27017" {
		t.Errorf("EffectiveURI = %q, want env value", got)
	}
	m.URIEnv = ""
	if got := m.EffectiveURI(); got != "mongodb://file:27017" {
		t.Errorf("EffectiveURI = %q, want file value", got)
	}
}
