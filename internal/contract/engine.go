// Package contract implements the lock-and-settle engine: the state machine
// that takes an escrow from Execute through Settle, Cancel or Expire, with
// all balance and ledger effects committed in one serializable transaction.
package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/repository"
	"github.com/plutohub/platform/internal/token"
)

// Engine orchestrates Execute/Settle/Cancel/Expire. Each operation runs in a
// single serializable transaction; user rows are locked in sorted userId
// order to keep lock acquisition deadlock-free.
type Engine struct {
	pool      *pgxpool.Pool
	users     repository.UserRepository
	ledger    repository.LedgerRepository
	contracts repository.ContractRepository
	sessions  repository.SessionRepository
	outbox    repository.OutboxRepository
	codec     *token.Codec

	// platformAccountID is the user row that collects platform fees.
	platformAccountID uuid.UUID

	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a contract engine.
func NewEngine(
	pool *pgxpool.Pool,
	users repository.UserRepository,
	ledger repository.LedgerRepository,
	contracts repository.ContractRepository,
	sessions repository.SessionRepository,
	outbox repository.OutboxRepository,
	codec *token.Codec,
	platformAccountID uuid.UUID,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		pool:              pool,
		users:             users,
		ledger:            ledger,
		contracts:         contracts,
		sessions:          sessions,
		outbox:            outbox,
		codec:             codec,
		platformAccountID: platformAccountID,
		logger:            logger,
		now:               time.Now,
	}
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// SessionByID returns a session snapshot with players loaded, or nil.
func (e *Engine) SessionByID(ctx context.Context, id uuid.UUID) (*domain.GameSession, error) {
	return e.sessions.FindByID(ctx, e.pool, id)
}

// SessionForGame returns a session snapshot after verifying the calling game
// owns its contract. Read-only; no locks taken.
func (e *Engine) SessionForGame(ctx context.Context, gameID, sessionID uuid.UUID) (*domain.GameSession, error) {
	session, err := e.sessions.FindByID(ctx, e.pool, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound("session", sessionID.String())
	}
	contract, err := e.contracts.FindByID(ctx, e.pool, session.ContractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrInternal("session references missing contract", nil)
	}
	if contract.GameID != gameID {
		return nil, domain.ErrForbidden("session belongs to another game")
	}
	return session, nil
}

// AuditSessionByID replays a session's ledger trail against the conservation
// invariants. Diagnostic surface for operators and integration tests.
func (e *Engine) AuditSessionByID(ctx context.Context, id uuid.UUID) (*AuditResult, error) {
	session, err := e.sessions.FindByID(ctx, e.pool, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound("session", id.String())
	}
	entries, err := e.ledger.BySession(ctx, e.pool, id)
	if err != nil {
		return nil, err
	}
	result := AuditSession(session, entries, e.platformAccountID)
	return &result, nil
}

// inTx runs fn inside a serializable transaction, committing on nil error.
func (e *Engine) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return domain.ErrInternal("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return asConflict(err)
	}
	if err := tx.Commit(ctx); err != nil {
		if conflict := asConflict(err); conflict != err {
			return conflict
		}
		return domain.ErrInternal("commit transaction", err)
	}
	return nil
}

// asConflict translates serialization failures and deadlocks into
// CONCURRENCY_CONFLICT so racing callers get a retryable 409 instead of a 500.
func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return domain.ErrConcurrencyConflict("operation conflicted with a concurrent update")
	}
	return err
}

// postEntry appends one ledger entry and records its pluto.ledger.posted
// outbox event in the same transaction.
func (e *Engine) postEntry(ctx context.Context, tx pgx.Tx, entry domain.LedgerEntry) (*domain.LedgerEntry, error) {
	appended, err := e.ledger.Append(ctx, tx, entry)
	if err != nil {
		return nil, err
	}
	if err := e.outbox.Insert(ctx, tx, domain.NewLedgerPostedEvent(appended)); err != nil {
		return nil, fmt.Errorf("insert ledger outbox event: %w", err)
	}
	return appended, nil
}

// postEntries is postEntry over a batch.
func (e *Engine) postEntries(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) ([]domain.LedgerEntry, error) {
	appended, err := e.ledger.AppendMany(ctx, tx, entries)
	if err != nil {
		return nil, err
	}
	for i := range appended {
		if err := e.outbox.Insert(ctx, tx, domain.NewLedgerPostedEvent(&appended[i])); err != nil {
			return nil, fmt.Errorf("insert ledger outbox event: %w", err)
		}
	}
	return appended, nil
}

// lockUsers acquires row locks for all ids in sorted order and returns the
// locked users keyed by id.
func (e *Engine) lockUsers(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error) {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	users := make(map[uuid.UUID]*domain.User, len(sorted))
	for _, id := range sorted {
		if _, ok := users[id]; ok {
			continue
		}
		u, err := e.users.LockForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lock user %s: %w", id, err)
		}
		if u == nil {
			return nil, domain.ErrNotFound("user", id.String())
		}
		users[id] = u
	}
	return users, nil
}

// loadLiveSession locks the session row and verifies the caller's game owns
// the contract. Terminal-state handling differs per operation, so it is left
// to the caller.
func (e *Engine) loadLiveSession(ctx context.Context, tx pgx.Tx, sessionID, gameID uuid.UUID) (*domain.GameSession, *domain.Contract, error) {
	session, err := e.sessions.LockForUpdate(ctx, tx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock session: %w", err)
	}
	if session == nil {
		return nil, nil, domain.ErrNotFound("session", sessionID.String())
	}

	contract, err := e.contracts.FindByID(ctx, tx, session.ContractID)
	if err != nil {
		return nil, nil, fmt.Errorf("load contract: %w", err)
	}
	if contract == nil {
		return nil, nil, domain.ErrInternal("session references missing contract", nil)
	}
	if contract.GameID != gameID {
		return nil, nil, domain.ErrForbidden("session belongs to another game")
	}
	return session, contract, nil
}

// verifySessionToken decodes a session token into its session id.
func (e *Engine) verifySessionToken(tokenString string) (uuid.UUID, error) {
	payload, err := e.codec.Verify(tokenString)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken("not a valid session token")
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken("not a valid session token")
	}
	return sessionID, nil
}
