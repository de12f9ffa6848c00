package config

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/dbsmedya/goshard/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if len(c.DataSources) == 0 {
		errors = append(errors, ValidationError{
			Field:   "data_sources",
			Message: "at least one data source must be defined",
		})
	}

	seen := make(map[string]bool)
	groups := make(map[string]bool)
	for i := range c.DataSources {
		ds := &c.DataSources[i]
		prefix := fmt.Sprintf("data_sources[%d]", i)
		errors = append(errors, c.validateDataSource(prefix, ds)...)
		if ds.Name != "" {
			if seen[ds.Name] {
				errors = append(errors, ValidationError{
					Field:   prefix + ".name",
					Message: fmt.Sprintf("duplicate data source name %q", ds.Name),
				})
			}
			seen[ds.Name] = true
		}
		groups[ds.GroupName()] = true
	}

	for i := range c.Entities {
		prefix := fmt.Sprintf("entities[%d]", i)
		errors = append(errors, c.validateEntity(prefix, &c.Entities[i], groups)...)
	}

	errors = append(errors, c.validateSharding()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDataSource(prefix string, ds *DataSourceConfig) ValidationErrors {
	var errors ValidationErrors

	if ds.Name == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".name",
			Message: "name is required",
		})
	}

	validTypes := map[string]bool{DatabaseMySQL: true, DatabasePostgres: true, DatabaseSQLite: true}
	if !validTypes[ds.Type] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".type",
			Message: "type must be 'mysql', 'postgres', or 'sqlite'",
		})
	}

	validRoles := map[string]bool{"readwrite": true, "read": true, "write": true, "": true}
	if !validRoles[ds.Role] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".role",
			Message: "role must be 'readwrite', 'read', or 'write'",
		})
	}

	// Discrete fields are only needed when no DSN is given.
	if ds.DSN == "" && ds.Type != DatabaseSQLite {
		if ds.Host == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".host",
				Message: "host is required when dsn is empty",
			})
		}
		if ds.Port <= 0 || ds.Port > 65535 {
			errors = append(errors, ValidationError{
				Field:   prefix + ".port",
				Message: "port must be between 1 and 65535",
			})
		}
		if ds.User == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".user",
				Message: "user is required when dsn is empty",
			})
		}
	}
	if ds.DSN == "" && ds.Type == DatabaseSQLite && ds.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database path is required for sqlite when dsn is empty",
		})
	}

	if ds.DSN != "" && ds.Type == DatabaseMySQL {
		if _, err := mysql.ParseDSN(ds.DSN); err != nil {
			errors = append(errors, ValidationError{
				Field:   prefix + ".dsn",
				Message: fmt.Sprintf("invalid mysql dsn: %v", err),
			})
		}
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[ds.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if ds.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if ds.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateEntity(prefix string, er *EntityRuleConfig, groups map[string]bool) ValidationErrors {
	var errors ValidationErrors

	if er.Entity == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".entity",
			Message: "entity is required",
		})
	}

	if er.Table != "" && !sqlutil.IsValidIdentifier(er.Table) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".table",
			Message: fmt.Sprintf("table %q contains invalid characters", er.Table),
		})
	}

	if !groups[er.GroupName()] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".group",
			Message: fmt.Sprintf("group %q has no data sources", er.GroupName()),
		})
	}

	switch er.Strategy {
	case "", "none":
	case "mod":
		if er.ShardColumn == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".shard_column",
				Message: "shard_column is required for the mod strategy",
			})
		}
		if er.Shards <= 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + ".shards",
				Message: "shards must be positive for the mod strategy",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   prefix + ".strategy",
			Message: "strategy must be 'mod' or 'none'",
		})
	}

	return errors
}

func (c *Config) validateSharding() ValidationErrors {
	var errors ValidationErrors

	if c.Sharding.MinCommandElapsedMilliseconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "sharding.min_command_elapsed_milliseconds",
			Message: "min_command_elapsed_milliseconds cannot be negative",
		})
	}

	if c.Sharding.LeakThreshold < 0 {
		errors = append(errors, ValidationError{
			Field:   "sharding.leak_threshold",
			Message: "leak_threshold cannot be negative",
		})
	}

	if c.Sharding.LeakInterval < 0 {
		errors = append(errors, ValidationError{
			Field:   "sharding.leak_interval",
			Message: "leak_interval cannot be negative",
		})
	}

	for i, name := range c.Sharding.AssemblyNames {
		if strings.TrimSpace(name) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("sharding.assembly_names[%d]", i),
				Message: "assembly name filter cannot be empty",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
