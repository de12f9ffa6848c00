// Package config provides configuration structures and loading for GoShard.
package config

import "time"

// Database types understood by the data source layer.
const (
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Default group and abstract database names, used when a data source or
// entity rule does not name one.
const (
	DefaultAbsDbName   = "BaseDb"
	DefaultDbGroupName = "BaseDbGroup"
)

// Config represents the complete application configuration.
type Config struct {
	DataSources []DataSourceConfig `yaml:"data_sources" mapstructure:"data_sources"`
	Entities    []EntityRuleConfig `yaml:"entities" mapstructure:"entities"`
	Sharding    ShardingConfig     `yaml:"sharding" mapstructure:"sharding"`
	Logging     LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// DataSourceConfig represents one physical database behind a group.
//
// DSN takes precedence; when it is empty the connection string is built
// from the discrete fields for the configured Type.
type DataSourceConfig struct {
	Name               string `yaml:"name" mapstructure:"name"`
	Group              string `yaml:"group" mapstructure:"group"`
	Type               string `yaml:"type" mapstructure:"type"` // mysql, postgres, sqlite
	Role               string `yaml:"role" mapstructure:"role"` // readwrite, read, write
	DSN                string `yaml:"dsn" mapstructure:"dsn"`
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// EntityRuleConfig describes how one entity is spread across a group.
type EntityRuleConfig struct {
	Entity      string `yaml:"entity" mapstructure:"entity"`
	Table       string `yaml:"table" mapstructure:"table"`
	Group       string `yaml:"group" mapstructure:"group"`
	ShardColumn string `yaml:"shard_column" mapstructure:"shard_column"`
	Strategy    string `yaml:"strategy" mapstructure:"strategy"` // mod or none
	Shards      int    `yaml:"shards" mapstructure:"shards"`
}

// ShardingConfig holds the knobs of the sharding runtime itself.
type ShardingConfig struct {
	// MinCommandElapsedMilliseconds suppresses command diagnostics that
	// finished faster than this.
	MinCommandElapsedMilliseconds int `yaml:"min_command_elapsed_milliseconds" mapstructure:"min_command_elapsed_milliseconds"`
	// AssemblyNames restricts entity type discovery to assemblies whose
	// name contains one of these substrings. Empty means no restriction.
	AssemblyNames []string      `yaml:"assembly_names" mapstructure:"assembly_names"`
	BaseDir       string        `yaml:"base_dir" mapstructure:"base_dir"`
	LeakThreshold time.Duration `yaml:"leak_threshold" mapstructure:"leak_threshold"`
	LeakInterval  time.Duration `yaml:"leak_interval" mapstructure:"leak_interval"`
	MetricsAddr   string        `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // comma separated: stdout, stderr, file paths
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Sharding: ShardingConfig{
			MinCommandElapsedMilliseconds: 0,
			LeakThreshold:                 5 * time.Minute,
			LeakInterval:                  5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// MinCommandElapsed returns the command diagnostics threshold as a duration.
func (s ShardingConfig) MinCommandElapsed() time.Duration {
	return time.Duration(s.MinCommandElapsedMilliseconds) * time.Millisecond
}

// GetDataSource retrieves a data source configuration by name.
func (c *Config) GetDataSource(name string) (*DataSourceConfig, bool) {
	for i := range c.DataSources {
		if c.DataSources[i].Name == name {
			return &c.DataSources[i], true
		}
	}
	return nil, false
}

// GroupName returns the data source group, falling back to the default group.
func (ds *DataSourceConfig) GroupName() string {
	if ds.Group == "" {
		return DefaultDbGroupName
	}
	return ds.Group
}

// GroupName returns the entity's group, falling back to the default group.
func (er *EntityRuleConfig) GroupName() string {
	if er.Group == "" {
		return DefaultDbGroupName
	}
	return er.Group
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, minElapsedMs int, baseDir, metricsAddr string) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if minElapsedMs > 0 {
		c.Sharding.MinCommandElapsedMilliseconds = minElapsedMs
	}
	if baseDir != "" {
		c.Sharding.BaseDir = baseDir
	}
	if metricsAddr != "" {
		c.Sharding.MetricsAddr = metricsAddr
	}
}
