package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goshard/internal/handle"
	"github.com/dbsmedya/goshard/internal/logger"
)

func TestSessionTracksHandle(t *testing.T) {
	registry := handle.NewRegistry()
	m := NewManager(nil, nil, registry, logger.NewNop())
	require.NoError(t, m.Open(context.Background(), memorySource("local")))
	defer m.Close()

	session, err := m.Session(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, "local", session.Source())

	records := registry.Snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, session.Token(), records[0].ID)
	assert.Equal(t, "local", records[0].Source)
	assert.Contains(t, records[0].CreateStackTrace, "TestSessionTracksHandle")

	var one int
	require.NoError(t, session.DB.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	require.NoError(t, session.Close())
	assert.Equal(t, 0, registry.Len())

	// Second close is a no-op.
	require.NoError(t, session.Close())
	assert.Equal(t, 0, registry.Len())
}

func TestSessionUnknownSource(t *testing.T) {
	m := NewManager(nil, nil, nil, logger.NewNop())
	_, err := m.Session(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(nil, nil, nil, logger.NewNop())
	require.NoError(t, m.Open(context.Background(), memorySource("local")))
	defer m.Close()

	a, err := m.Session(context.Background(), "local")
	require.NoError(t, err)
	b, err := m.Session(context.Background(), "local")
	require.NoError(t, err)
	assert.NotEqual(t, a.Token(), b.Token())
	assert.Equal(t, 2, m.Registry().Len())

	require.NoError(t, a.Close())
	records := m.Registry().Snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, b.Token(), records[0].ID)
	require.NoError(t, b.Close())
}
