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

type gameRepo struct{}

// NewGameRepository returns a pgx-backed GameRepository.
func NewGameRepository() GameRepository {
	return &gameRepo{}
}

func (r *gameRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Game, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, client_secret_digest, callback_url, is_active, created_at
		FROM games WHERE id = $1`, id)

	var g domain.Game
	err := row.Scan(&g.ID, &g.Name, &g.ClientSecretDigest, &g.CallbackURL, &g.IsActive, &g.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	return &g, nil
}

func (r *gameRepo) Create(ctx context.Context, db DBTX, game *domain.Game) error {
	_, err := db.Exec(ctx, `
		INSERT INTO games (id, name, client_secret_digest, callback_url, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		game.ID, game.Name, game.ClientSecretDigest, game.CallbackURL, game.IsActive, game.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

type contractRepo struct{}

// NewContractRepository returns a pgx-backed ContractRepository.
func NewContractRepository() ContractRepository {
	return &contractRepo{}
}

const contractColumns = `id, game_id, name, entry_fee, platform_fee_bps, min_players, max_players, ttl_seconds, is_active, created_at`

func (r *contractRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Contract, error) {
	row := db.QueryRow(ctx, `
		SELECT `+contractColumns+`
		FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *contractRepo) ListActive(ctx context.Context, db DBTX) ([]domain.Contract, error) {
	rows, err := db.Query(ctx, `
		SELECT `+contractColumns+`
		FROM contracts WHERE is_active = true
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []domain.Contract
	for rows.Next() {
		c, err := scanContract(rows.Scan)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

func (r *contractRepo) Create(ctx context.Context, db DBTX, contract *domain.Contract) error {
	if err := contract.Validate(); err != nil {
		return err
	}
	_, err := db.Exec(ctx, `
		INSERT INTO contracts (id, game_id, name, entry_fee, platform_fee_bps, min_players, max_players, ttl_seconds, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		contract.ID, contract.GameID, contract.Name,
		infra.AmountToNumeric(contract.EntryFee),
		contract.PlatformFeeBps, contract.MinPlayers, contract.MaxPlayers,
		contract.TTLSeconds, contract.IsActive, contract.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func scanContract(scan func(dest ...interface{}) error) (*domain.Contract, error) {
	var c domain.Contract
	var feeNum pgtype.Numeric
	err := scan(&c.ID, &c.GameID, &c.Name, &feeNum, &c.PlatformFeeBps,
		&c.MinPlayers, &c.MaxPlayers, &c.TTLSeconds, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	var convErr error
	c.EntryFee, convErr = infra.NumericToAmount(feeNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert entry_fee: %w", convErr)
	}
	return &c, nil
}
