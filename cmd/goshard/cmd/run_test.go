package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandStructure(t *testing.T) {
	assert.Equal(t, "run", runCmd.Use)
	assert.NotEmpty(t, runCmd.Short)
	assert.Contains(t, runCmd.Long, "Example:")
	assert.NotNil(t, runCmd.RunE)
}

func TestRunStopsWhenContextDone(t *testing.T) {
	path := writeConfig(t, sqliteConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := executeCommand(t, ctx, "run", "--config", path)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, "data_sources: []\n")

	_, err := executeCommand(t, context.Background(), "run", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestResolveBaseDir(t *testing.T) {
	assert.Equal(t, "/srv/app", resolveBaseDir("/srv/app"))
	assert.NotEmpty(t, resolveBaseDir(""))
}
