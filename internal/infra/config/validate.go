package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors so callers see every
// problem at once.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateGitea(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateServer(cfg *Config, ve *ValidationError) {
	u, err := url.Parse(cfg.Server.URL)
	if err != nil || u.Host == "" {
		ve.Add("server.url %q is not a valid URL", cfg.Server.URL)
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		ve.Add("server.url scheme must be ws or wss, got %q", u.Scheme)
	}
	if cfg.Server.HeartbeatInterval <= 0 {
		ve.Add("server.heartbeat_interval must be > 0")
	}
	if cfg.Server.DialTimeout <= 0 {
		ve.Add("server.dial_timeout must be > 0")
	}
	if cfg.Server.WriteTimeout <= 0 {
		ve.Add("server.write_timeout must be > 0")
	}
}

func validateGitea(cfg *Config, ve *ValidationError) {
	u, err := url.Parse(cfg.Gitea.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		ve.Add("gitea.base_url %q must be an absolute URL", cfg.Gitea.BaseURL)
	}
	if cfg.Gitea.RequestsPerMin <= 0 {
		ve.Add("gitea.requests_per_min must be > 0")
	}
	if cfg.Gitea.Burst <= 0 {
		ve.Add("gitea.burst must be > 0")
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json":
	default:
		ve.Add("logger.format %q is not one of text, json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is not one of noop, stdout", cfg.Tracer.Exporter)
	}
}
