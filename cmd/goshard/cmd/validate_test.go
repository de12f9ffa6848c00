package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.Equal(t, "validate", validateCmd.Use)
	assert.Contains(t, validateCmd.Short, "Validate")
	assert.Contains(t, validateCmd.Long, "Example:")
	assert.Contains(t, validateCmd.Long, "goshard validate")
	assert.NotNil(t, validateCmd.RunE)
	assert.NotNil(t, validateCmd.Flags().Lookup("ping"))
}

func TestValidateValidConfig(t *testing.T) {
	path := writeConfig(t, sqliteConfig)

	out, err := executeCommand(t, context.Background(), "validate", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, out, "--- Group: BaseDbGroup ---")
	assert.Contains(t, out, "--- Group: history ---")
	assert.Contains(t, out, "local (sqlite, readwrite)")
	assert.Contains(t, out, "Order -> BaseDbGroup [mod] [orders_0 orders_1 orders_2]")
	assert.Contains(t, out, "=== Validation Complete ===")
	assert.NotContains(t, out, "reachable")
}

func TestValidateWithPing(t *testing.T) {
	path := writeConfig(t, sqliteConfig)

	out, err := executeCommand(t, context.Background(), "validate", "--config", path, "--ping")
	require.NoError(t, err)
	assert.Contains(t, out, "All data sources reachable")
}

func TestValidateInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
data_sources:
  - name: shard0
    type: oracle
entities:
  - entity: Order
    group: missing
`)

	out, err := executeCommand(t, context.Background(), "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, out, "data_sources[0].type")
	assert.Contains(t, out, "entities[0].group")
}
