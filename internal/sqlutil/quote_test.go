package sqlutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "orders", true},
		{"underscore and digits", "order_items_2", true},
		{"empty", "", false},
		{"backtick", "orders`", false},
		{"space", "order items", false},
		{"semicolon", "orders;DROP", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIdentifier(tt.input))
		})
	}
}

func TestShardTableName(t *testing.T) {
	name, err := ShardTableName("orders", 3)
	require.NoError(t, err)
	assert.Equal(t, "orders_3", name)

	_, err = ShardTableName("bad-name", 0)
	require.Error(t, err)

	var idErr *InvalidIdentifierError
	require.True(t, errors.As(err, &idErr))
	assert.Equal(t, "bad-name", idErr.Name)
	assert.Contains(t, err.Error(), "invalid identifier")
}
