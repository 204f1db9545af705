package grant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken_URLSafe(t *testing.T) {
	token, err := NewToken(32)
	require.NoError(t, err)

	// Tokens ride in URL path segments; they must never need escaping
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "=")
	assert.False(t, strings.ContainsAny(token, "?&#%"))
}

func TestNewToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewToken(32)
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
