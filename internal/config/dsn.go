package config

import (
	"fmt"
	"strings"
)

// ConnectionString returns the DSN for the data source, building it from
// the discrete fields when DSN is empty.
func (ds *DataSourceConfig) ConnectionString() (string, error) {
	if ds.DSN != "" {
		return ds.DSN, nil
	}

	switch ds.Type {
	case DatabaseMySQL:
		return BuildMySQLDSN(ds), nil
	case DatabasePostgres:
		return BuildPostgresDSN(ds), nil
	case DatabaseSQLite:
		if ds.Database == "" {
			return "", fmt.Errorf("sqlite data source %q has no database path", ds.Name)
		}
		return ds.Database, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", ds.Type)
	}
}

// BuildMySQLDSN constructs a MySQL DSN from configuration.
func BuildMySQLDSN(ds *DataSourceConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		ds.User,
		ds.Password,
		ds.Host,
		ds.Port,
	)

	if ds.Database != "" {
		dsn += ds.Database
	}

	params := "?parseTime=true"
	switch ds.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// BuildPostgresDSN constructs a key/value Postgres DSN from configuration.
func BuildPostgresDSN(ds *DataSourceConfig) string {
	parts := []string{
		"host=" + ds.Host,
		fmt.Sprintf("port=%d", ds.Port),
		"user=" + ds.User,
	}
	if ds.Password != "" {
		parts = append(parts, "password="+ds.Password)
	}
	if ds.Database != "" {
		parts = append(parts, "dbname="+ds.Database)
	}

	switch ds.TLS {
	case "disable":
		parts = append(parts, "sslmode=disable")
	case "required":
		parts = append(parts, "sslmode=require")
	case "preferred", "":
		parts = append(parts, "sslmode=prefer")
	}

	return strings.Join(parts, " ")
}
