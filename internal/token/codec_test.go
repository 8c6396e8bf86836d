package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() Payload {
	return Payload{
		SessionID:  "9f1c2a34-0000-4000-8000-000000000001",
		ContractID: "9f1c2a34-0000-4000-8000-000000000002",
		PlayerIDs:  []string{"9f1c2a34-0000-4000-8000-0000000000aa", "9f1c2a34-0000-4000-8000-0000000000bb"},
		TotalPot:   "200",
		ExpiresAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		IssuedAt:   1767322800,
	}
}

func TestCodec_MintVerifyRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret-test-secret-test-secret!")

	tokenString, err := codec.Mint(testPayload())
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(tokenString, ".")))

	decoded, err := codec.Verify(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "9f1c2a34-0000-4000-8000-000000000001", decoded.SessionID)
	assert.Equal(t, "9f1c2a34-0000-4000-8000-000000000002", decoded.ContractID)
	assert.Len(t, decoded.PlayerIDs, 2)
	assert.Equal(t, "200", decoded.TotalPot)
	assert.True(t, decoded.ExpiresAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestCodec_MintRequiresSessionID(t *testing.T) {
	codec := NewCodec("test-secret-test-secret-test-secret!")
	p := testPayload()
	p.SessionID = ""

	_, err := codec.Mint(p)
	assert.Error(t, err)
}

func TestCodec_VerifyRejectsTamperedBody(t *testing.T) {
	codec := NewCodec("test-secret-test-secret-test-secret!")
	tokenString, err := codec.Mint(testPayload())
	require.NoError(t, err)

	parts := strings.Split(tokenString, ".")
	// Swap the body for one signed under nothing.
	tampered := parts[0] + ".eyJzZXNzaW9uSWQiOiJvdGhlciJ9." + parts[2]

	_, err = codec.Verify(tampered)
	assert.Error(t, err)
}

func TestCodec_VerifyRejectsWrongSecret(t *testing.T) {
	minter := NewCodec("test-secret-test-secret-test-secret!")
	verifier := NewCodec("different-secret-different-secret!!!")

	tokenString, err := minter.Mint(testPayload())
	require.NoError(t, err)

	_, err = verifier.Verify(tokenString)
	assert.Error(t, err)
}

func TestCodec_VerifyRejectsGarbage(t *testing.T) {
	codec := NewCodec("test-secret-test-secret-test-secret!")

	for _, input := range []string{
		"",
		"not-a-token",
		"a.b",
		"a.b.c.d",
		"!!!.???.***",
	} {
		_, err := codec.Verify(input)
		assert.Error(t, err, "input %q", input)
	}
}
