package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/plutohub/platform/internal/domain"
)

type contextKey string

const (
	userKey contextKey = "auth_user"
	gameKey contextKey = "auth_game"
)

// UserFromContext extracts the authenticated user from request context.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

// GameFromContext extracts the authenticated game from request context.
func GameFromContext(ctx context.Context) *domain.Game {
	g, _ := ctx.Value(gameKey).(*domain.Game)
	return g
}

// AuthenticatePlayer returns middleware that validates identity-provider
// bearer tokens and resolves (or first-login provisions) the platform user.
func AuthenticatePlayer(verifier *IdentityVerifier, provisioner *Provisioner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, domain.ErrUnauthorized("missing Authorization header"))
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeAuthError(w, domain.ErrUnauthorized("invalid Authorization format"))
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				writeAuthError(w, domain.ErrInvalidToken("bearer token verification failed"))
				return
			}

			user, err := provisioner.Provision(r.Context(), claims.Subject, claims.Name)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError renders the standard error envelope. Kept local so the
// middleware does not depend on the handler package.
func writeAuthError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.ErrInternal("authentication failed", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": appErr})
}
