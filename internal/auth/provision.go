package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/repository"
)

// Provisioner resolves identity-provider subjects to platform users,
// creating the user on first login.
type Provisioner struct {
	pool   *pgxpool.Pool
	users  repository.UserRepository
	outbox repository.OutboxRepository
	logger *slog.Logger
}

// NewProvisioner creates a provisioner.
func NewProvisioner(pool *pgxpool.Pool, users repository.UserRepository, outbox repository.OutboxRepository, logger *slog.Logger) *Provisioner {
	return &Provisioner{pool: pool, users: users, outbox: outbox, logger: logger}
}

// Provision returns the user for the given subject, creating it if this is
// the subject's first login. Safe under concurrent first logins: the loser
// of the insert race re-reads the winner's row.
func (p *Provisioner) Provision(ctx context.Context, externalAuthID, claimedName string) (*domain.User, error) {
	user, err := p.users.FindByExternalAuthID(ctx, p.pool, externalAuthID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		candidate := deriveDisplayName(claimedName, attempt)
		user, err = p.create(ctx, externalAuthID, candidate)
		if err == nil {
			p.logger.Info("provisioned new user",
				"userId", user.ID,
				"displayName", user.DisplayName)
			return user, nil
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) && appErr.Code == "DISPLAY_NAME_TAKEN" {
			continue
		}
		if errors.As(err, &appErr) && appErr.Code == "CONCURRENCY_CONFLICT" {
			// Lost a first-login race on external_auth_id.
			return p.users.FindByExternalAuthID(ctx, p.pool, externalAuthID)
		}
		return nil, err
	}
	return nil, domain.ErrInternal("could not derive a free display name", fmt.Errorf("subject %s", externalAuthID))
}

func (p *Provisioner) create(ctx context.Context, externalAuthID, displayName string) (*domain.User, error) {
	if err := domain.ValidateDisplayName(displayName); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:             uuid.New(),
		ExternalAuthID: externalAuthID,
		DisplayName:    displayName,
		Balances: domain.Balances{
			Balance: domain.Zero,
			Locked:  domain.Zero,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := p.users.Create(ctx, tx, user); err != nil {
		return nil, err
	}
	if err := p.outbox.Insert(ctx, tx, domain.NewUserCreatedEvent(user)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return user, nil
}

var invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// deriveDisplayName turns the identity-provider name claim into a valid
// display name; retries get a random suffix, and an unusable claim falls
// back to a generated handle.
func deriveDisplayName(claimedName string, attempt int) string {
	name := invalidNameChars.ReplaceAllString(strings.TrimSpace(claimedName), "_")
	if len(name) > 20 {
		name = name[:20]
	}
	if attempt > 0 || domain.ValidateDisplayName(name) != nil {
		suffix := randomSuffix()
		if name == "" || domain.ValidateDisplayName(name) != nil {
			return "player_" + suffix
		}
		if len(name) > 20-1-len(suffix) {
			name = name[:20-1-len(suffix)]
		}
		return name + "_" + suffix
	}
	return name
}

func randomSuffix() string {
	id := uuid.New()
	return hex.EncodeToString(id[:3])
}
