package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/infra"
)

type ledgerRepo struct{}

// NewLedgerRepository returns a pgx-backed LedgerRepository.
func NewLedgerRepository() LedgerRepository {
	return &ledgerRepo{}
}

const entryColumns = `id, user_id, type, amount, balance_after, session_id, description, created_at`

func (r *ledgerRepo) Append(ctx context.Context, db DBTX, entry domain.LedgerEntry) (*domain.LedgerEntry, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO ledger_entries (user_id, type, amount, balance_after, session_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+entryColumns,
		entry.UserID,
		string(entry.Type),
		infra.AmountToNumeric(entry.Amount),
		infra.AmountToNumeric(entry.BalanceAfter),
		entry.SessionID,
		entry.Description,
	)
	return scanEntry(row)
}

func (r *ledgerRepo) AppendMany(ctx context.Context, db DBTX, entries []domain.LedgerEntry) ([]domain.LedgerEntry, error) {
	inserted := make([]domain.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		e, err := r.Append(ctx, db, entry)
		if err != nil {
			return nil, fmt.Errorf("append entry for user %s: %w", entry.UserID, err)
		}
		inserted = append(inserted, *e)
	}
	return inserted, nil
}

func (r *ledgerRepo) History(ctx context.Context, db DBTX, userID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := db.QueryRow(ctx,
		`SELECT count(*) FROM ledger_entries WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	rows, err := db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *ledgerRepo) BySession(ctx context.Context, db DBTX, sessionID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var amountNum, balNum pgtype.Numeric
	err := row.Scan(&e.ID, &e.UserID, &e.Type, &amountNum, &balNum, &e.SessionID, &e.Description, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}

	var convErr error
	e.Amount, convErr = infra.NumericToAmount(amountNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert amount: %w", convErr)
	}
	e.BalanceAfter, convErr = infra.NumericToAmount(balNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert balance_after: %w", convErr)
	}
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var amountNum, balNum pgtype.Numeric
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &amountNum, &balNum, &e.SessionID, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		var convErr error
		e.Amount, convErr = infra.NumericToAmount(amountNum)
		if convErr != nil {
			return nil, convErr
		}
		e.BalanceAfter, convErr = infra.NumericToAmount(balNum)
		if convErr != nil {
			return nil, convErr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
