// Package config loads runtime configuration: built-in defaults, an
// optional .env file, then RICOCHET_* environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the runtime configuration shared by the CLI commands.
type Config struct {
	// Callback listeners.
	HTTPHost    string
	HTTPPort    int
	DNSPort     int
	CallbackURL string // external base URL substituted into payloads
	MetricsAddr string // empty disables the metrics listener

	// Injection client.
	Rate      float64
	Burst     int
	Timeout   time.Duration
	ProxyURL  string
	VerifyTLS bool

	// Polling loop.
	PollBaseInterval  time.Duration
	PollMaxInterval   time.Duration
	PollBackoffFactor float64
	PollTimeout       time.Duration

	DatabasePath string // empty means the per-user default
	LogLevel     string
	LogFormat    string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		HTTPHost:          "0.0.0.0",
		HTTPPort:          8880,
		DNSPort:           53,
		Rate:              10,
		Burst:             1,
		Timeout:           10 * time.Second,
		PollBaseInterval:  5 * time.Second,
		PollMaxInterval:   60 * time.Second,
		PollBackoffFactor: 1.5,
		PollTimeout:       time.Hour,
		LogLevel:          "info",
		LogFormat:         "auto",
	}
}

// Load builds the effective configuration. A .env file in the working
// directory is loaded first so deployments can pin overrides without
// touching the process environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env from current directory")
	}

	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	envString("RICOCHET_HTTP_HOST", &cfg.HTTPHost)
	envInt("RICOCHET_HTTP_PORT", &cfg.HTTPPort)
	envInt("RICOCHET_DNS_PORT", &cfg.DNSPort)
	envString("RICOCHET_CALLBACK_URL", &cfg.CallbackURL)
	envString("RICOCHET_METRICS_ADDR", &cfg.MetricsAddr)

	envFloat("RICOCHET_RATE", &cfg.Rate)
	envInt("RICOCHET_BURST", &cfg.Burst)
	envDuration("RICOCHET_TIMEOUT", &cfg.Timeout)
	envString("RICOCHET_PROXY", &cfg.ProxyURL)
	envBool("RICOCHET_VERIFY_TLS", &cfg.VerifyTLS)

	envDuration("RICOCHET_POLL_INTERVAL", &cfg.PollBaseInterval)
	envDuration("RICOCHET_POLL_MAX_INTERVAL", &cfg.PollMaxInterval)
	envFloat("RICOCHET_POLL_BACKOFF", &cfg.PollBackoffFactor)
	envDuration("RICOCHET_POLL_TIMEOUT", &cfg.PollTimeout)

	envString("RICOCHET_DB_PATH", &cfg.DatabasePath)
	envString("RICOCHET_LOG_LEVEL", &cfg.LogLevel)
	envString("RICOCHET_LOG_FORMAT", &cfg.LogFormat)
}

// DefaultCallbackURL derives the payload base URL from the listener
// settings when no external URL is configured.
func (c Config) DefaultCallbackURL() string {
	if c.CallbackURL != "" {
		return c.CallbackURL
	}
	host := c.HTTPHost
	if host == "0.0.0.0" || host == "" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.HTTPPort)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("var", name).Str("value", v).Msg("Ignoring non-integer environment value")
		return
	}
	*dst = n
}

func envFloat(name string, dst *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("var", name).Str("value", v).Msg("Ignoring non-numeric environment value")
		return
	}
	*dst = f
}

func envBool(name string, dst *bool) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("var", name).Str("value", v).Msg("Ignoring non-boolean environment value")
		return
	}
	*dst = b
}

func envDuration(name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("var", name).Str("value", v).Msg("Ignoring unparsable duration value")
		return
	}
	*dst = d
}
