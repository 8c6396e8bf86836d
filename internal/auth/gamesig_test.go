package auth

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := sha256.Sum256([]byte("game-shared-secret"))
	body := []byte(`{"contractId":"c1","playerIds":["a","b"]}`)

	sig := SignBody(secret[:], body)
	assert.Equal(t, strings.ToLower(sig), sig, "signature must be lowercase hex")
	assert.Len(t, sig, 64)

	assert.True(t, VerifySignature(secret[:], body, sig))
}

func TestVerifySignature_RejectsTamperedBody(t *testing.T) {
	secret := sha256.Sum256([]byte("game-shared-secret"))
	sig := SignBody(secret[:], []byte(`{"contractId":"c1"}`))

	assert.False(t, VerifySignature(secret[:], []byte(`{"contractId":"c2"}`), sig))
}

func TestVerifySignature_RejectsWrongKey(t *testing.T) {
	secret := sha256.Sum256([]byte("game-shared-secret"))
	other := sha256.Sum256([]byte("a-different-secret"))
	body := []byte(`{}`)

	sig := SignBody(secret[:], body)
	assert.False(t, VerifySignature(other[:], body, sig))
}

func TestVerifySignature_RejectsMalformedSignature(t *testing.T) {
	secret := sha256.Sum256([]byte("game-shared-secret"))
	body := []byte(`{}`)

	for _, sig := range []string{"", "zz", strings.ToUpper(SignBody(secret[:], body))} {
		assert.False(t, VerifySignature(secret[:], body, sig), "sig %q", sig)
	}
}

func TestDeriveDisplayName(t *testing.T) {
	t.Run("clean name passes through", func(t *testing.T) {
		assert.Equal(t, "Ada_Lovelace", deriveDisplayName("Ada Lovelace", 0))
	})

	t.Run("long name truncated", func(t *testing.T) {
		name := deriveDisplayName("this-name-is-way-too-long-to-keep", 0)
		assert.LessOrEqual(t, len(name), 20)
	})

	t.Run("empty claim falls back to generated handle", func(t *testing.T) {
		name := deriveDisplayName("", 0)
		assert.True(t, strings.HasPrefix(name, "player_"), "got %q", name)
	})

	t.Run("retry appends suffix", func(t *testing.T) {
		first := deriveDisplayName("Ada", 1)
		assert.True(t, strings.HasPrefix(first, "Ada_"), "got %q", first)
		assert.LessOrEqual(t, len(first), 20)
	})
}
