// Package database opens the GORM connections behind each configured data
// source and hands out handle-tracked sessions.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dbsmedya/goshard/internal/config"
	"github.com/dbsmedya/goshard/internal/diagnostics"
	"github.com/dbsmedya/goshard/internal/handle"
	"github.com/dbsmedya/goshard/internal/logger"
	"github.com/dbsmedya/goshard/internal/sharding"
)

// Manager handles database connections for every data source of a Provider.
type Manager struct {
	provider sharding.Provider
	bus      *diagnostics.Bus
	registry *handle.Registry
	logger   *logger.Logger

	maxRetries int
	backoff    time.Duration

	mu    sync.RWMutex
	dbs   map[string]*gorm.DB
	order []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetry sets the connection attempts and the initial backoff.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(m *Manager) {
		if maxRetries > 0 {
			m.maxRetries = maxRetries
		}
		if backoff > 0 {
			m.backoff = backoff
		}
	}
}

// NewManager creates a new database manager. Connections are opened by
// Connect or Open.
func NewManager(provider sharding.Provider, bus *diagnostics.Bus, registry *handle.Registry, log *logger.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.NewDefault()
	}
	if bus == nil {
		bus = diagnostics.NewBus(diagnostics.WithBusLogger(log))
	}
	if registry == nil {
		registry = handle.NewRegistry()
	}
	m := &Manager{
		provider:   provider,
		bus:        bus,
		registry:   registry,
		logger:     log.WithComponent("database"),
		maxRetries: 3,
		backoff:    time.Second,
		dbs:        make(map[string]*gorm.DB),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect establishes connections to all data sources of the provider.
// On failure every connection opened so far is closed.
func (m *Manager) Connect(ctx context.Context) error {
	if m.provider == nil {
		return sharding.ErrNotInitialized
	}

	for _, group := range m.provider.Groups() {
		for _, ds := range m.provider.DataSources(group) {
			if err := m.Open(ctx, ds); err != nil {
				_ = m.Close()
				return fmt.Errorf("failed to connect to data source %q in group %q: %w", ds.Name, group, err)
			}
		}
	}
	return nil
}

// Open connects a single data source.
func (m *Manager) Open(ctx context.Context, ds sharding.DataSource) error {
	dialector, err := Dialector(ds.Type, ds.DSN)
	if err != nil {
		return err
	}

	db, err := m.connectWithRetry(ctx, ds.Name, dialector)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if ds.MaxConnections > 0 {
		sqlDB.SetMaxOpenConns(ds.MaxConnections)
	}
	if ds.MaxIdleConnections > 0 {
		sqlDB.SetMaxIdleConns(ds.MaxIdleConnections)
	}
	sqlDB.SetConnMaxLifetime(10 * time.Minute)

	return m.add(ds.Name, db)
}

// OpenConn attaches an existing connection pool as a data source.
func (m *Manager) OpenConn(name, dbType string, conn *sql.DB) error {
	dialector, err := ConnDialector(dbType, conn)
	if err != nil {
		return err
	}

	db, err := gorm.Open(dialector, m.gormConfig(name))
	if err != nil {
		return fmt.Errorf("failed to open %s connection %q: %w", dbType, name, err)
	}
	return m.add(name, db)
}

func (m *Manager) add(name string, db *gorm.DB) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.dbs[name]; exists {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		return fmt.Errorf("data source %q is already open", name)
	}
	m.dbs[name] = db
	m.order = append(m.order, name)
	m.logger.Infof("Data source %s connected", name)
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, name string, dialector gorm.Dialector) (*gorm.DB, error) {
	var err error
	backoff := m.backoff

	for i := 0; i < m.maxRetries; i++ {
		var db *gorm.DB
		db, err = gorm.Open(dialector, m.gormConfig(name))
		if err == nil {
			if err = ping(ctx, db); err == nil {
				return db, nil
			}
		}

		m.logger.Warnf("Connection attempt %d/%d to %s failed: %v", i+1, m.maxRetries, name, err)
		if !retryable(err) {
			return nil, fmt.Errorf("connection to %s rejected: %w", name, err)
		}

		if i < m.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", m.maxRetries, err)
}

// ping checks a freshly opened connection and closes it on failure.
func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return err
	}
	return nil
}

// Access denied and unknown database errors will not go away by retrying.
func retryable(err error) bool {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045, 1049:
			return false
		}
	}
	return true
}

func (m *Manager) gormConfig(name string) *gorm.Config {
	return &gorm.Config{
		Logger: NewTracer(name, m.bus, m.logger, gormlogger.Warn),
	}
}

// Dialector returns the GORM dialector for a database type and DSN.
func Dialector(dbType, dsn string) (gorm.Dialector, error) {
	switch dbType {
	case config.DatabaseMySQL:
		return mysql.Open(dsn), nil
	case config.DatabasePostgres:
		return postgres.Open(dsn), nil
	case config.DatabaseSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
}

// ConnDialector returns the GORM dialector wrapping an existing pool.
func ConnDialector(dbType string, conn *sql.DB) (gorm.Dialector, error) {
	switch dbType {
	case config.DatabaseMySQL:
		return mysql.New(mysql.Config{Conn: conn, SkipInitializeWithVersion: true}), nil
	case config.DatabasePostgres:
		return postgres.New(postgres.Config{Conn: conn}), nil
	case config.DatabaseSQLite:
		return &sqlite.Dialector{Conn: conn}, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
}

// DB returns the connection of a data source.
func (m *Manager) DB(name string) (*gorm.DB, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	db, ok := m.dbs[name]
	return db, ok
}

// Names returns the open data sources in the order they were opened.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Registry returns the handle registry sessions are tracked in.
func (m *Manager) Registry() *handle.Registry {
	return m.registry
}

// Close closes all database connections gracefully, newest first.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.order) - 1; i >= 0; i-- {
		name := m.order[i]
		sqlDB, err := m.dbs[name].DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", name, err))
		}
	}
	m.dbs = make(map[string]*gorm.DB)
	m.order = nil

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// Ping verifies all connections are alive.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range m.order {
		sqlDB, err := m.dbs[name].DB()
		if err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	return nil
}
