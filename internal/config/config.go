package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures the backend endpoint, account hints, local storage,
// and the reconciliation cadence.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Account   AccountConfig   `yaml:"account"`
	Storage   StorageConfig   `yaml:"storage"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	// Base URL of the automation backend. Empty means same-origin in the
	// original web client; the CLI needs an explicit host. If empty, read
	// from env XENGAGE_BASE_URL.
	BaseURL string `yaml:"baseURL"`
}

type AccountConfig struct {
	Email string `yaml:"email"`
}

type StorageConfig struct {
	// Local action journal. Never holds credentials.
	DBPath string `yaml:"dbPath"`
	// Bearer token + profile between CLI invocations.
	SessionPath string `yaml:"sessionPath"`
}

type ReconcileConfig struct {
	// Seconds between reconciliation ticks while authenticated.
	IntervalSeconds int `yaml:"intervalSeconds"`
}

type MetricsConfig struct {
	// Address for the optional /metrics server, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Server:    ServerConfig{BaseURL: "http://localhost:8000"},
		Account:   AccountConfig{Email: ""},
		Storage:   StorageConfig{DBPath: "./xengage.db", SessionPath: "./xengage.session.json"},
		Reconcile: ReconcileConfig{IntervalSeconds: 60},
		Metrics:   MetricsConfig{Addr: ""},
	}
}

// Interval returns the reconciliation cadence, defaulting to 60s.
func (c Config) Interval() time.Duration {
	if c.Reconcile.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Reconcile.IntervalSeconds) * time.Second
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = os.Getenv("XENGAGE_BASE_URL")
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = os.Getenv("XENGAGE_DB")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
