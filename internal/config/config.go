// Package config loads runtime configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds everything the binary needs at startup. Values come
// from PLANWRIGHT_* environment variables; unset variables fall back
// to the defaults below.
type Config struct {
	// ServerHost and ServerPort are the HTTP API bind address.
	ServerHost string
	ServerPort int

	// SandboxInterpreter is the interpreter used for script steps.
	SandboxInterpreter string
	// SandboxTimeout is the default per-script timeout.
	SandboxTimeout time.Duration

	// LLMBaseURL and LLMModel configure the Ollama client.
	LLMBaseURL string
	LLMModel   string

	// ProjectsDir is where managed projects are created.
	ProjectsDir string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerHost:         envOr("PLANWRIGHT_HOST", "127.0.0.1"),
		ServerPort:         8086,
		SandboxInterpreter: envOr("PLANWRIGHT_INTERPRETER", "python"),
		SandboxTimeout:     10 * time.Second,
		LLMBaseURL:         envOr("PLANWRIGHT_OLLAMA_URL", "http://localhost:11434"),
		LLMModel:           envOr("PLANWRIGHT_OLLAMA_MODEL", "llama3"),
		ProjectsDir:        envOr("PLANWRIGHT_PROJECTS_DIR", "managed_projects"),
		LogLevel:           envOr("PLANWRIGHT_LOG_LEVEL", "info"),
	}

	if v := os.Getenv("PLANWRIGHT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PLANWRIGHT_PORT %q", v)
		}
		cfg.ServerPort = port
	}
	if v := os.Getenv("PLANWRIGHT_SANDBOX_TIMEOUT"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid PLANWRIGHT_SANDBOX_TIMEOUT %q", v)
		}
		cfg.SandboxTimeout = time.Duration(secs * float64(time.Second))
	}
	return cfg, nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// NewLogger builds a production zap logger at the configured level.
// Unknown levels fall back to info.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(c.LogLevel); err == nil {
		level = parsed
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
