package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/repository"
)

const (
	gameIDHeader    = "X-Game-Id"
	signatureHeader = "X-Pluto-Signature"

	// maxSignedBodyBytes caps how much request body the verifier will read.
	maxSignedBodyBytes = 1 << 20
)

// GameVerifier authenticates game backends by a keyed MAC over the raw
// request body. The MAC key is the stored one-way digest of the game's
// shared secret, so the secret itself never touches our storage.
type GameVerifier struct {
	pool  *pgxpool.Pool
	games repository.GameRepository
}

// NewGameVerifier creates a game-backend verifier.
func NewGameVerifier(pool *pgxpool.Pool, games repository.GameRepository) *GameVerifier {
	return &GameVerifier{pool: pool, games: games}
}

// VerifySignature checks sig (lowercase hex) against HMAC-SHA256 of body
// under the game's key. Comparison is constant time.
func VerifySignature(secretDigest, body []byte, sig string) bool {
	expected := SignBody(secretDigest, body)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// AuthenticateGame returns middleware that validates the game MAC headers,
// restores the request body for downstream handlers, and places the game
// in the request context.
func AuthenticateGame(verifier *GameVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gameIDRaw := r.Header.Get(gameIDHeader)
			sig := r.Header.Get(signatureHeader)
			if gameIDRaw == "" || sig == "" {
				writeAuthError(w, domain.ErrUnauthorized("missing game authentication headers"))
				return
			}

			gameID, err := uuid.Parse(gameIDRaw)
			if err != nil {
				writeAuthError(w, domain.ErrUnauthorized("malformed game id"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBodyBytes+1))
			if err != nil {
				writeAuthError(w, domain.ErrUnauthorized("unreadable request body"))
				return
			}
			r.Body.Close()
			if len(body) > maxSignedBodyBytes {
				writeAuthError(w, domain.ErrValidation("request body too large"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			game, err := verifier.games.FindByID(r.Context(), verifier.pool, gameID)
			if err != nil {
				writeAuthError(w, domain.ErrInternal("game lookup failed", err))
				return
			}
			if game == nil {
				writeAuthError(w, domain.ErrNotFound("game", gameID.String()))
				return
			}
			if !game.IsActive {
				writeAuthError(w, domain.ErrGameNotActive(gameID.String()))
				return
			}

			key, err := hex.DecodeString(game.ClientSecretDigest)
			if err != nil {
				writeAuthError(w, domain.ErrInternal("malformed stored secret digest", err))
				return
			}
			if !VerifySignature(key, body, sig) {
				writeAuthError(w, domain.ErrInvalidSignature())
				return
			}

			ctx := context.WithValue(r.Context(), gameKey, game)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SignBody computes the lowercase-hex MAC a game backend must send. Shared
// with tests and local tooling.
func SignBody(secretDigest, body []byte) string {
	mac := hmac.New(sha256.New, secretDigest)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
