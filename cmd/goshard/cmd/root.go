package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goshard/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	logLevel     string
	logFormat    string
	minElapsedMs int
	baseDir      string
	metricsAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "goshard",
	Short: "Sharding runtime for GORM data sources",
	Long: `Goshard hosts the lifecycle scaffolding of a sharded database layer:
write-once sharding configuration, entity type discovery, command
diagnostics and database context leak monitoring.

Features:
  - Exactly-once sharding configuration shared by every component
  - Cached entity type discovery from assembly manifests
  - Slow command logging across all data sources
  - Periodic warnings for database contexts that are never released
  - Prometheus metrics endpoint`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "goshard.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Sharding overrides
	rootCmd.PersistentFlags().IntVar(&minElapsedMs, "min-elapsed-ms", 0,
		"Override the minimum command duration that is logged, in milliseconds")
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "",
		"Override the directory scanned for assembly manifests")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "",
		"Override the Prometheus listen address (empty disables the endpoint)")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel     string
	LogFormat    string
	MinElapsedMs int
	BaseDir      string
	MetricsAddr  string
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		MinElapsedMs: minElapsedMs,
		BaseDir:      baseDir,
		MetricsAddr:  metricsAddr,
	}
}

// loadConfig reads the config file and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	o := GetCLIOverrides()
	cfg.ApplyOverrides(o.LogLevel, o.LogFormat, o.MinElapsedMs, o.BaseDir, o.MetricsAddr)
	return cfg, nil
}
