package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "identity-test-secret-identity-test-secret"
	testIssuer = "pluto-identity"
)

func TestIdentityVerifier_ValidToken(t *testing.T) {
	v := NewIdentityVerifier(testSecret, testIssuer)

	tokenString, err := MintIdentityToken(testSecret, testIssuer, "auth0|abc123", "Ada Lovelace", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc123", claims.Subject)
	assert.Equal(t, "Ada Lovelace", claims.Name)
}

func TestIdentityVerifier_WrongSecret(t *testing.T) {
	v := NewIdentityVerifier(testSecret, testIssuer)

	tokenString, err := MintIdentityToken("some-other-secret-some-other-secret!", testIssuer, "auth0|abc123", "", time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(tokenString)
	assert.Error(t, err)
}

func TestIdentityVerifier_WrongIssuer(t *testing.T) {
	v := NewIdentityVerifier(testSecret, testIssuer)

	tokenString, err := MintIdentityToken(testSecret, "someone-else", "auth0|abc123", "", time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(tokenString)
	assert.Error(t, err)
}

func TestIdentityVerifier_Expired(t *testing.T) {
	v := NewIdentityVerifier(testSecret, testIssuer)

	tokenString, err := MintIdentityToken(testSecret, testIssuer, "auth0|abc123", "", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(tokenString)
	assert.Error(t, err)
}

func TestIdentityVerifier_EmptySubject(t *testing.T) {
	v := NewIdentityVerifier(testSecret, testIssuer)

	tokenString, err := MintIdentityToken(testSecret, testIssuer, "", "", time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(tokenString)
	assert.Error(t, err)
}

func TestIdentityVerifier_Garbage(t *testing.T) {
	v := NewIdentityVerifier(testSecret, testIssuer)

	_, err := v.Verify("not.a.jwt")
	assert.Error(t, err)
}
