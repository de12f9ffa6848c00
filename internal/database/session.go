package database

import (
	"context"
	"fmt"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/dbsmedya/goshard/internal/handle"
)

// Session is a database context handle. It stays registered in the handle
// registry until Close is called, so forgotten sessions show up as leaks.
type Session struct {
	DB *gorm.DB

	source   string
	token    handle.Token
	registry *handle.Registry
	closed   atomic.Bool
}

// Session opens a tracked session on the named data source.
func (m *Manager) Session(ctx context.Context, name string) (*Session, error) {
	db, ok := m.DB(name)
	if !ok {
		return nil, fmt.Errorf("data source %q is not open", name)
	}

	token := m.registry.RegisterSource(name, handle.CaptureStack())
	return &Session{
		DB:       db.WithContext(ctx),
		source:   name,
		token:    token,
		registry: m.registry,
	}, nil
}

// Source returns the data source name.
func (s *Session) Source() string {
	return s.source
}

// Token returns the handle token of the session.
func (s *Session) Token() handle.Token {
	return s.token
}

// Close releases the session handle. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.registry.Unregister(s.token)
	}
	return nil
}
