package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileID(t *testing.T) {
	t.Run("round-trips decimal names", func(t *testing.T) {
		for _, name := range []string{"0", "1", "42"} {
			id, err := ParseProfileID(name)
			require.NoError(t, err)
			assert.Equal(t, name, id.String())
		}
	})

	t.Run("rejects invalid names", func(t *testing.T) {
		for _, name := range []string{"", "abc", "-1", "+1", "01", "1x", "1.0"} {
			_, err := ParseProfileID(name)
			assert.Error(t, err, "name %q", name)
		}
	})
}

func TestParseAccountID(t *testing.T) {
	id, err := ParseAccountID("7")
	require.NoError(t, err)
	assert.Equal(t, AccountID(7), id)

	_, err = ParseAccountID("007")
	assert.Error(t, err)
}

func TestNewBookID(t *testing.T) {
	a := NewBookID("urn:isbn:123")
	b := NewBookID("urn:isbn:123")
	c := NewBookID("urn:isbn:124")

	assert.Equal(t, a, b, "same entry identity must derive the same key")
	assert.NotEqual(t, a, c)
	assert.Len(t, string(a), 64)
}
