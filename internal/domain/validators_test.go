package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDisplayName(t *testing.T) {
	for _, name := range []string{"abc", "player_1", "Some-Name", "aaaaaaaaaaaaaaaaaaaa"} {
		assert.NoError(t, ValidateDisplayName(name), name)
	}
	for _, name := range []string{"", "ab", "aaaaaaaaaaaaaaaaaaaaa", "with space", "émile", "semi;colon"} {
		assert.Error(t, ValidateDisplayName(name), name)
	}
}

func TestValidatePlayerSet(t *testing.T) {
	t.Run("within bounds", func(t *testing.T) {
		assert.NoError(t, ValidatePlayerSet([]string{"a", "b"}, 2, 4))
	})
	t.Run("too few", func(t *testing.T) {
		assert.Error(t, ValidatePlayerSet([]string{"a"}, 2, 4))
	})
	t.Run("too many", func(t *testing.T) {
		assert.Error(t, ValidatePlayerSet([]string{"a", "b", "c"}, 1, 2))
	})
	t.Run("duplicate", func(t *testing.T) {
		assert.Error(t, ValidatePlayerSet([]string{"a", "a"}, 1, 4))
	})
	t.Run("empty id", func(t *testing.T) {
		assert.Error(t, ValidatePlayerSet([]string{"a", ""}, 1, 4))
	})
}
