package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/plutohub/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UserRepository provides access to users and their balance pair.
type UserRepository interface {
	// FindByID returns a user by internal id, or nil.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error)

	// FindByExternalAuthID returns a user by identity-provider subject, or nil.
	FindByExternalAuthID(ctx context.Context, db DBTX, externalAuthID string) (*domain.User, error)

	// FindByExternalAuthIDs resolves a batch of subjects; missing ids are
	// simply absent from the result map.
	FindByExternalAuthIDs(ctx context.Context, db DBTX, externalAuthIDs []string) (map[string]*domain.User, error)

	// Create inserts a new user. Display-name uniqueness is case-insensitive;
	// a conflict surfaces as DISPLAY_NAME_TAKEN.
	Create(ctx context.Context, db DBTX, user *domain.User) error

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the user.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error)

	// CompareAndUpdate conditionally replaces the balance pair; fails with
	// CONCURRENCY_CONFLICT if the current row does not match expected.
	CompareAndUpdate(ctx context.Context, db DBTX, id uuid.UUID, expected, next domain.Balances) (*domain.User, error)

	// UpdateBalancesInTx unconditionally replaces the balance pair. The caller
	// must hold the row lock via LockForUpdate.
	UpdateBalancesInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, next domain.Balances) (*domain.User, error)
}

// LedgerRepository provides access to the append-only ledger_entries table.
type LedgerRepository interface {
	// Append inserts a single immutable entry and returns it with id and timestamp.
	Append(ctx context.Context, db DBTX, entry domain.LedgerEntry) (*domain.LedgerEntry, error)

	// AppendMany inserts a batch of entries. Callers wrap it in a transaction
	// for all-or-nothing semantics.
	AppendMany(ctx context.Context, db DBTX, entries []domain.LedgerEntry) ([]domain.LedgerEntry, error)

	// History returns a user's entries ordered created_at DESC (id tiebreak)
	// plus the total entry count for pagination.
	History(ctx context.Context, db DBTX, userID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error)

	// BySession returns all entries referencing a session, created_at ASC.
	BySession(ctx context.Context, db DBTX, sessionID uuid.UUID) ([]domain.LedgerEntry, error)
}

// GameRepository provides access to the games catalog.
type GameRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Game, error)
	Create(ctx context.Context, db DBTX, game *domain.Game) error
}

// ContractRepository provides access to the contracts catalog.
type ContractRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Contract, error)
	ListActive(ctx context.Context, db DBTX) ([]domain.Contract, error)
	Create(ctx context.Context, db DBTX, contract *domain.Contract) error
}

// SessionRepository provides access to game_sessions and session_players.
type SessionRepository interface {
	// Insert persists a new session with its players.
	Insert(ctx context.Context, db DBTX, session *domain.GameSession) error

	// FindByID returns a session with players loaded, or nil.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.GameSession, error)

	// LockForUpdate locks the session row and returns it with players loaded.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.GameSession, error)

	// UpdateStatus transitions the session; settledAt is set for SETTLED.
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.SessionStatus, settledAt *time.Time) error

	// UpdatePlayerOutcome records a player's settlement outcome.
	UpdatePlayerOutcome(ctx context.Context, db DBTX, sessionID, userID uuid.UUID, isWinner bool, winAmount domain.Amount) error

	// ListExpired returns ids of PENDING/ACTIVE sessions with expires_at < now.
	ListExpired(ctx context.Context, db DBTX, now time.Time, limit int) ([]uuid.UUID, error)

	// LiveSessionForUsers returns the id of a PENDING/ACTIVE session of the
	// contract that any of the users already participates in, or uuid.Nil.
	LiveSessionForUsers(ctx context.Context, db DBTX, contractID uuid.UUID, userIDs []uuid.UUID) (uuid.UUID, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the state change).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events, oldest first.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, error)

	// MarkPublished stamps events as published.
	MarkPublished(ctx context.Context, db DBTX, eventIDs []uuid.UUID) error
}
