package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/infra"
)

type userRepo struct{}

// NewUserRepository returns a pgx-backed UserRepository.
func NewUserRepository() UserRepository {
	return &userRepo{}
}

const userColumns = `id, external_auth_id, display_name, balance, locked_balance, created_at, updated_at`

func (r *userRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error) {
	row := db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) FindByExternalAuthID(ctx context.Context, db DBTX, externalAuthID string) (*domain.User, error) {
	row := db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE external_auth_id = $1`, externalAuthID)
	return scanUser(row)
}

func (r *userRepo) FindByExternalAuthIDs(ctx context.Context, db DBTX, externalAuthIDs []string) (map[string]*domain.User, error) {
	rows, err := db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE external_auth_id = ANY($1)`, externalAuthIDs)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make(map[string]*domain.User, len(externalAuthIDs))
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users[u.ExternalAuthID] = u
	}
	return users, rows.Err()
}

func (r *userRepo) Create(ctx context.Context, db DBTX, user *domain.User) error {
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, external_auth_id, display_name, balance, locked_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID,
		user.ExternalAuthID,
		user.DisplayName,
		infra.AmountToNumeric(user.Balance),
		infra.AmountToNumeric(user.Locked),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "users_display_name_lower_key" {
				return domain.ErrDisplayNameTaken(user.DisplayName)
			}
			return domain.ErrConcurrencyConflict("user already exists")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1 FOR UPDATE`, id)
	return scanUser(row)
}

func (r *userRepo) CompareAndUpdate(ctx context.Context, db DBTX, id uuid.UUID, expected, next domain.Balances) (*domain.User, error) {
	if err := next.Validate(); err != nil {
		return nil, err
	}

	row := db.QueryRow(ctx, `
		UPDATE users
		SET balance = $1, locked_balance = $2, updated_at = now()
		WHERE id = $3 AND balance = $4 AND locked_balance = $5
		RETURNING `+userColumns,
		infra.AmountToNumeric(next.Balance),
		infra.AmountToNumeric(next.Locked),
		id,
		infra.AmountToNumeric(expected.Balance),
		infra.AmountToNumeric(expected.Locked),
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrConcurrencyConflict(fmt.Sprintf("balance of user %s changed concurrently", id))
	}
	return u, nil
}

func (r *userRepo) UpdateBalancesInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, next domain.Balances) (*domain.User, error) {
	if err := next.Validate(); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE users
		SET balance = $1, locked_balance = $2, updated_at = now()
		WHERE id = $3
		RETURNING `+userColumns,
		infra.AmountToNumeric(next.Balance),
		infra.AmountToNumeric(next.Locked),
		id,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound("user", id.String())
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u, err := scanUserFrom(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func scanUserRow(rows pgx.Rows) (*domain.User, error) {
	return scanUserFrom(rows.Scan)
}

func scanUserFrom(scan func(dest ...interface{}) error) (*domain.User, error) {
	var u domain.User
	var balNum, lockedNum pgtype.Numeric
	if err := scan(&u.ID, &u.ExternalAuthID, &u.DisplayName, &balNum, &lockedNum, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}

	var convErr error
	u.Balance, convErr = infra.NumericToAmount(balNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert balance: %w", convErr)
	}
	u.Locked, convErr = infra.NumericToAmount(lockedNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert locked_balance: %w", convErr)
	}
	return &u, nil
}
