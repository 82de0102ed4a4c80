// Package config manages Navign daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete navign-server configuration.
type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Auth    AuthConfig    `koanf:"auth"`
	Unlock  UnlockConfig  `koanf:"unlock"`
}

// HTTPConfig holds the REST server configuration (spec §6).
type HTTPConfig struct {
	// Addr is the HTTP listen address (e.g., ":8443").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// AuthConfig holds the JWT bearer authentication configuration for the
// unlocker HTTP surface (spec §6).
type AuthConfig struct {
	// JWTSecret signs and validates bearer tokens.
	JWTSecret string `koanf:"jwt_secret"`
}

// UnlockConfig holds the unlock-instance lifecycle parameters (spec §4.5).
// They are loaded and validated here but read by no other package:
// unlocker.Service uses its own InstanceWindow constant, and
// beacon.Validator a fixed threshold of 5 and replay.RetentionWindow as its
// clock tolerance.
type UnlockConfig struct {
	// InstanceWindow bounds how long an unreferenced unlock instance may
	// live before it expires (spec §4.6: "unreferenced instances expire
	// after 3 minutes").
	InstanceWindow time.Duration `koanf:"instance_window"`

	// RateLimitThreshold is the number of consecutive failed proof
	// validations (spec §4.4 step 1) after which a beacon starts
	// rejecting attempts outright.
	RateLimitThreshold int `koanf:"rate_limit_threshold"`

	// ClockTolerance bounds how far a proof's timestamp may drift from
	// the beacon's clock before it is rejected (spec §4.4 step 2).
	ClockTolerance time.Duration `koanf:"clock_tolerance"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr: ":8443",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Unlock: UnlockConfig{
			InstanceWindow:     3 * time.Minute,
			RateLimitThreshold: 5,
			ClockTolerance:     30 * time.Second,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for Navign configuration.
// Variables are named NAVIGN_<section>_<key>, e.g., NAVIGN_HTTP_ADDR.
const envPrefix = "NAVIGN_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (NAVIGN_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	NAVIGN_HTTP_ADDR       -> http.addr
//	NAVIGN_METRICS_ADDR    -> metrics.addr
//	NAVIGN_METRICS_PATH    -> metrics.path
//	NAVIGN_LOG_LEVEL       -> log.level
//	NAVIGN_LOG_FORMAT      -> log.format
//
// Every underscore after the prefix becomes a dot, so keys that contain an
// underscore (auth.jwt_secret and the unlock.* keys) cannot be set from the
// environment: NAVIGN_AUTH_JWT_SECRET maps to auth.jwt.secret.
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	// Load environment variable overrides on top of YAML.
	// NAVIGN_HTTP_ADDR -> http.addr (strip prefix, lowercase, _ -> .).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms NAVIGN_HTTP_ADDR -> http.addr.
// Strips the NAVIGN_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"http.addr":                   defaults.HTTP.Addr,
		"metrics.addr":                defaults.Metrics.Addr,
		"metrics.path":                defaults.Metrics.Path,
		"log.level":                   defaults.Log.Level,
		"log.format":                  defaults.Log.Format,
		"auth.jwt_secret":             defaults.Auth.JWTSecret,
		"unlock.instance_window":      defaults.Unlock.InstanceWindow.String(),
		"unlock.rate_limit_threshold": defaults.Unlock.RateLimitThreshold,
		"unlock.clock_tolerance":      defaults.Unlock.ClockTolerance.String(),
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyHTTPAddr indicates the HTTP listen address is empty.
	ErrEmptyHTTPAddr = errors.New("http.addr must not be empty")

	// ErrEmptyJWTSecret indicates the JWT signing secret is empty.
	ErrEmptyJWTSecret = errors.New("auth.jwt_secret must not be empty")

	// ErrInvalidRateLimitThreshold indicates the rate limit threshold is
	// not positive.
	ErrInvalidRateLimitThreshold = errors.New("unlock.rate_limit_threshold must be >= 1")

	// ErrInvalidClockTolerance indicates the clock tolerance is not
	// positive.
	ErrInvalidClockTolerance = errors.New("unlock.clock_tolerance must be > 0")

	// ErrInvalidInstanceWindow indicates the instance expiry window is
	// not positive.
	ErrInvalidInstanceWindow = errors.New("unlock.instance_window must be > 0")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.HTTP.Addr == "" {
		return ErrEmptyHTTPAddr
	}

	if cfg.Auth.JWTSecret == "" {
		return ErrEmptyJWTSecret
	}

	if cfg.Unlock.RateLimitThreshold < 1 {
		return ErrInvalidRateLimitThreshold
	}

	if cfg.Unlock.ClockTolerance <= 0 {
		return ErrInvalidClockTolerance
	}

	if cfg.Unlock.InstanceWindow <= 0 {
		return ErrInvalidInstanceWindow
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
