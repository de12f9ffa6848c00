package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigFile(t *testing.T) {
	resetFlags(t)

	tests := []struct {
		name     string
		cfgValue string
		want     string
	}{
		{name: "empty config file", cfgValue: "", want: ""},
		{name: "custom config file", cfgValue: "/path/to/custom.yaml", want: "/path/to/custom.yaml"},
		{name: "config file with spaces", cfgValue: "/path/to/my config.yaml", want: "/path/to/my config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgFile = tt.cfgValue
			assert.Equal(t, tt.want, GetConfigFile())
		})
	}
}

func TestGetCLIOverrides(t *testing.T) {
	resetFlags(t)

	logLevel = "debug"
	logFormat = "text"
	minElapsedMs = 100
	baseDir = "/opt/app"
	metricsAddr = ":9090"

	assert.Equal(t, CLIOverrides{
		LogLevel:     "debug",
		LogFormat:    "text",
		MinElapsedMs: 100,
		BaseDir:      "/opt/app",
		MetricsAddr:  ":9090",
	}, GetCLIOverrides())
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	resetFlags(t)

	cfgFile = writeConfig(t, sqliteConfig)
	minElapsedMs = 250
	logLevel = "warn"
	baseDir = "/srv/manifests"

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Sharding.MinCommandElapsedMilliseconds)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/srv/manifests", cfg.Sharding.BaseDir)
	assert.Len(t, cfg.DataSources, 2)
}

func TestLoadConfigMissingFile(t *testing.T) {
	resetFlags(t)

	cfgFile = "/nonexistent/goshard.yaml"
	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
