// Package config resolves labelpatch settings from the environment. A .env
// file in the working directory is read first and never overrides variables
// that are already set.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/strongdm/labelpatch/internal/dotenv"
)

const DefaultFile = "Comprehensive_Mastodon_Test.json"

const (
	EnvFile      = "LABELPATCH_FILE"
	EnvTopology  = "LABELPATCH_TOPOLOGY"
	EnvLogLevel  = "LABELPATCH_LOG_LEVEL"
	EnvLogFormat = "LABELPATCH_LOG_FORMAT"
)

type Config struct {
	// File is the workflow path or glob to patch in place.
	File string
	// TopologyPath optionally replaces the built-in test table.
	TopologyPath string
	LogLevel     string
	LogFormat    string
}

// Load reads envPath (usually ".env") and then the environment. The result is
// not validated: callers apply flag overrides first and then call Validate.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := dotenv.Load(envPath); err != nil {
			return nil, err
		}
	}
	cfg := &Config{
		File:         envOrDefault(EnvFile, DefaultFile),
		TopologyPath: envOrDefault(EnvTopology, ""),
		LogLevel:     envOrDefault(EnvLogLevel, "warn"),
		LogFormat:    envOrDefault(EnvLogFormat, "console"),
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (want debug|info|warn|error)", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q (want console|json)", c.LogFormat)
	}
	if strings.TrimSpace(c.File) == "" {
		return fmt.Errorf("workflow file is empty")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}
