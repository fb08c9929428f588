package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvFile, EnvTopology, EnvLogLevel, EnvLogFormat} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, cfg.File)
	assert.Equal(t, "", cfg.TopologyPath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvFile, "flows/*.json")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "flows/*.json", cfg.File)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_DotEnvDoesNotClobberEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogFormat, "json")
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		EnvTopology+"=topology.yaml\n"+EnvLogFormat+"=console\n"), 0o644))

	cfg, err := Load(envPath)
	require.NoError(t, err)
	assert.Equal(t, "topology.yaml", cfg.TopologyPath)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_DefersValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "chatty")

	cfg, err := Load("")
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	cfg.LogLevel = "info"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := map[string]Config{
		"log level":  {File: "x.json", LogLevel: "loud", LogFormat: "console"},
		"log format": {File: "x.json", LogLevel: "warn", LogFormat: "xml"},
		"empty file": {File: " ", LogLevel: "warn", LogFormat: "json"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}
}
