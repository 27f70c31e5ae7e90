// Package config loads and validates the client configuration from YAML,
// with environment overrides for values that should not live on disk.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/M3kH/gigi-sub006/internal/domain"
)

// Config is the top-level client configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Gitea  GiteaConfig  `yaml:"gitea"`
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
}

// ServerConfig points at the realtime backend.
type ServerConfig struct {
	URL               string        `yaml:"url"`
	Token             string        `yaml:"token"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	DialTimeout       time.Duration `yaml:"dial_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
}

// GiteaConfig points at the Gitea REST API.
type GiteaConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"`
	RequestsPerMin float64       `yaml:"requests_per_min"`
	Burst          int           `yaml:"burst"`
	CBMaxFailures  uint32        `yaml:"cb_max_failures"`
	CBTimeout      time.Duration `yaml:"cb_timeout"`
	CBInterval     time.Duration `yaml:"cb_interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a config with every default applied.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			URL:               "ws://localhost:3000/ws",
			HeartbeatInterval: 30 * time.Second,
			DialTimeout:       10 * time.Second,
			WriteTimeout:      5 * time.Second,
		},
		Gitea: GiteaConfig{
			BaseURL:        "http://localhost:3000",
			RequestsPerMin: 120,
			Burst:          10,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads the config file at path, merges it over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfigLoad, path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfigLoad, path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets secrets and deploy-specific values come from the
// environment instead of the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GIGI_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("GIGI_SERVER_TOKEN"); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv("GIGI_GITEA_URL"); v != "" {
		cfg.Gitea.BaseURL = v
	}
	if v := os.Getenv("GIGI_GITEA_TOKEN"); v != "" {
		cfg.Gitea.Token = v
	}
	if v := os.Getenv("GIGI_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("GIGI_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("GIGI_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}
