package config

import "testing"

func TestBuildMySQLDSN(t *testing.T) {
	tests := []struct {
		name     string
		ds       *DataSourceConfig
		expected string
	}{
		{
			name: "basic DSN",
			ds: &DataSourceConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				Database: "testdb",
				TLS:      "preferred",
			},
			expected: "root:secret@tcp(localhost:3306)/testdb?parseTime=true&tls=preferred",
		},
		{
			name: "DSN without database",
			ds: &DataSourceConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
			},
			expected: "root:secret@tcp(localhost:3306)/?parseTime=true&tls=preferred",
		},
		{
			name: "DSN with TLS disabled",
			ds: &DataSourceConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				Database: "testdb",
				TLS:      "disable",
			},
			expected: "root:secret@tcp(localhost:3306)/testdb?parseTime=true&tls=false",
		},
		{
			name: "DSN with TLS required",
			ds: &DataSourceConfig{
				Host:     "db.example.com",
				Port:     3307,
				User:     "app",
				Password: "p@ss",
				Database: "shard_1",
				TLS:      "required",
			},
			expected: "app:p@ss@tcp(db.example.com:3307)/shard_1?parseTime=true&tls=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildMySQLDSN(tt.ds); got != tt.expected {
				t.Errorf("BuildMySQLDSN() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	ds := &DataSourceConfig{
		Host:     "pg",
		Port:     5432,
		User:     "app",
		Password: "secret",
		Database: "shard_0",
		TLS:      "disable",
	}

	expected := "host=pg port=5432 user=app password=secret dbname=shard_0 sslmode=disable"
	if got := BuildPostgresDSN(ds); got != expected {
		t.Errorf("BuildPostgresDSN() = %q, expected %q", got, expected)
	}
}

func TestConnectionString(t *testing.T) {
	explicit := &DataSourceConfig{Type: DatabaseMySQL, DSN: "custom-dsn", Host: "ignored"}
	if got, err := explicit.ConnectionString(); err != nil || got != "custom-dsn" {
		t.Errorf("expected explicit DSN, got %q (%v)", got, err)
	}

	sqlite := &DataSourceConfig{Type: DatabaseSQLite, Database: "/tmp/app.db"}
	if got, err := sqlite.ConnectionString(); err != nil || got != "/tmp/app.db" {
		t.Errorf("expected sqlite path, got %q (%v)", got, err)
	}

	noPath := &DataSourceConfig{Name: "x", Type: DatabaseSQLite}
	if _, err := noPath.ConnectionString(); err == nil {
		t.Error("expected error for sqlite without path")
	}

	unknown := &DataSourceConfig{Type: "oracle"}
	if _, err := unknown.ConnectionString(); err == nil {
		t.Error("expected error for unsupported type")
	}
}
