// Package token implements the session-token codec: a self-contained,
// integrity-protected capability naming a session, verifiable without
// session-store I/O.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// header is fixed: the codec only speaks HMAC-SHA256.
const header = `{"alg":"HS256","typ":"JWT"}`

// Payload is the token body. TotalPot travels as a decimal string and
// ExpiresAt as RFC 3339; ExpiresAt is informational — the session row is
// authoritative.
type Payload struct {
	SessionID  string    `json:"sessionId"`
	ContractID string    `json:"contractId"`
	PlayerIDs  []string  `json:"playerIds"`
	TotalPot   string    `json:"totalPot"`
	ExpiresAt  time.Time `json:"expiresAt"`
	IssuedAt   int64     `json:"iat"`
}

// Codec mints and verifies session tokens with a process-wide secret.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec from the session-token secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Mint produces a `header.body.tag` token for the given payload.
func (c *Codec) Mint(p Payload) (string, error) {
	if p.SessionID == "" {
		return "", fmt.Errorf("mint: session id is required")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("mint: marshal payload: %w", err)
	}

	headerB64 := base64.RawURLEncoding.EncodeToString([]byte(header))
	bodyB64 := base64.RawURLEncoding.EncodeToString(body)
	signingInput := headerB64 + "." + bodyB64
	tag := base64.RawURLEncoding.EncodeToString(c.sign(signingInput))

	return signingInput + "." + tag, nil
}

// Verify checks the tag in constant time and returns the decoded payload.
// Any malformed or tampered token yields the same opaque error.
func (c *Codec) Verify(tokenString string) (*Payload, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, errNotAToken()
	}
	headerB64, bodyB64, tagB64 := parts[0], parts[1], parts[2]

	headerJSON, err := base64.RawURLEncoding.DecodeString(headerB64)
	if err != nil || string(headerJSON) != header {
		return nil, errNotAToken()
	}

	tag, err := base64.RawURLEncoding.DecodeString(tagB64)
	if err != nil {
		return nil, errNotAToken()
	}
	expected := c.sign(headerB64 + "." + bodyB64)
	if !hmac.Equal(expected, tag) {
		return nil, errNotAToken()
	}

	bodyJSON, err := base64.RawURLEncoding.DecodeString(bodyB64)
	if err != nil {
		return nil, errNotAToken()
	}
	var p Payload
	if err := json.Unmarshal(bodyJSON, &p); err != nil {
		return nil, errNotAToken()
	}
	if p.SessionID == "" {
		return nil, errNotAToken()
	}
	return &p, nil
}

func (c *Codec) sign(data string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func errNotAToken() error {
	return fmt.Errorf("not a valid session token")
}
