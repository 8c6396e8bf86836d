//go:build integration

package testutil

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/auth"
)

// PlayerToken mints an identity-provider bearer token for the given external
// auth id. First use of a token provisions the user on the fly.
func (env *TestEnv) PlayerToken(externalAuthID, name string) string {
	env.t.Helper()
	token, err := auth.MintIdentityToken(TestIdentitySecret, TestIdentityIssuer, externalAuthID, name, time.Hour)
	if err != nil {
		env.t.Fatalf("PlayerToken: %v", err)
	}
	return token
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional bearer token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("AuthGET %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("AuthGET %s: %v", path, err)
	}
	return resp
}

// GamePOST performs a POST request signed the way a game backend signs:
// MAC over the raw body keyed by the SHA-256 digest of the shared secret.
func (env *TestEnv) GamePOST(path string, body interface{}, gameID uuid.UUID, secret string) *http.Response {
	env.t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		env.t.Fatalf("GamePOST %s: encode: %v", path, err)
	}

	digest := sha256.Sum256([]byte(secret))

	req, err := http.NewRequest("POST", env.Server.URL+path, bytes.NewReader(raw))
	if err != nil {
		env.t.Fatalf("GamePOST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Game-Id", gameID.String())
	req.Header.Set("X-Pluto-Signature", auth.SignBody(digest[:], raw))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("GamePOST %s: %v", path, err)
	}
	return resp
}

// GameGET performs a signed GET request; the MAC covers the empty body.
func (env *TestEnv) GameGET(path string, gameID uuid.UUID, secret string) *http.Response {
	env.t.Helper()
	digest := sha256.Sum256([]byte(secret))

	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("GameGET %s: new request: %v", path, err)
	}
	req.Header.Set("X-Game-Id", gameID.String())
	req.Header.Set("X-Pluto-Signature", auth.SignBody(digest[:], nil))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("GameGET %s: %v", path, err)
	}
	return resp
}

// DecodeBody decodes a JSON response body into out and closes it.
func (env *TestEnv) DecodeBody(resp *http.Response, out interface{}) {
	env.t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		env.t.Fatalf("decode response: %v", err)
	}
}

// SeedGame inserts an active game registered with the given shared secret
// and returns its id.
func (env *TestEnv) SeedGame(secret string) uuid.UUID {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gameID := uuid.New()
	digest := sha256.Sum256([]byte(secret))
	_, err := env.Pool.Exec(ctx, `
		INSERT INTO games (id, name, client_secret_digest, is_active)
		VALUES ($1, $2, $3, true)`,
		gameID, fmt.Sprintf("test-game-%s", gameID.String()[:8]), hex.EncodeToString(digest[:]))
	if err != nil {
		env.t.Fatalf("SeedGame: %v", err)
	}
	return gameID
}

// SeedContract inserts an active contract for the given game and returns its id.
func (env *TestEnv) SeedContract(gameID uuid.UUID, entryFee int64, feeBps, minPlayers, maxPlayers, ttlSeconds int) uuid.UUID {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	contractID := uuid.New()
	_, err := env.Pool.Exec(ctx, `
		INSERT INTO contracts (id, game_id, name, entry_fee, platform_fee_bps, min_players, max_players, ttl_seconds, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)`,
		contractID, gameID, fmt.Sprintf("test-contract-%s", contractID.String()[:8]),
		entryFee, feeBps, minPlayers, maxPlayers, ttlSeconds)
	if err != nil {
		env.t.Fatalf("SeedContract: %v", err)
	}
	return contractID
}

// ProvisionPlayer makes an authenticated request so first-login provisioning
// runs, then returns the user's id and bearer token.
func (env *TestEnv) ProvisionPlayer(externalAuthID, name string) (uuid.UUID, string) {
	env.t.Helper()
	token := env.PlayerToken(externalAuthID, name)

	resp := env.AuthGET("/v1/me/balance", token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("ProvisionPlayer: expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var userID uuid.UUID
	err := env.Pool.QueryRow(ctx,
		"SELECT id FROM users WHERE external_auth_id = $1", externalAuthID).Scan(&userID)
	if err != nil {
		env.t.Fatalf("ProvisionPlayer: lookup: %v", err)
	}
	return userID, token
}

// FundUser credits a user's balance directly with a DEPOSIT ledger entry.
func (env *TestEnv) FundUser(userID uuid.UUID, amount int64) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := env.Pool.Begin(ctx)
	if err != nil {
		env.t.Fatalf("FundUser: begin: %v", err)
	}
	defer tx.Rollback(ctx)

	var balanceAfter int64
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING balance::bigint`, userID, amount).Scan(&balanceAfter)
	if err != nil {
		env.t.Fatalf("FundUser: update balance: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_entries (user_id, type, amount, balance_after, description)
		VALUES ($1, 'DEPOSIT', $2, $3, 'test funding')`,
		userID, amount, balanceAfter)
	if err != nil {
		env.t.Fatalf("FundUser: insert entry: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		env.t.Fatalf("FundUser: commit: %v", err)
	}
}

// Balances reads a user's balance and locked balance as int64.
func (env *TestEnv) Balances(userID uuid.UUID) (balance, locked int64) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := env.Pool.QueryRow(ctx,
		"SELECT balance::bigint, locked_balance::bigint FROM users WHERE id = $1", userID).
		Scan(&balance, &locked)
	if err != nil {
		env.t.Fatalf("Balances: %v", err)
	}
	return balance, locked
}

// ExpireSessionNow rewinds a session's expiry so the sweeper picks it up.
func (env *TestEnv) ExpireSessionNow(sessionID uuid.UUID) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx,
		"UPDATE game_sessions SET expires_at = now() - interval '1 second' WHERE id = $1", sessionID)
	if err != nil {
		env.t.Fatalf("ExpireSessionNow: %v", err)
	}
}
