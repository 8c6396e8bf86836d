package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/infra"
)

type sessionRepo struct{}

// NewSessionRepository returns a pgx-backed SessionRepository.
func NewSessionRepository() SessionRepository {
	return &sessionRepo{}
}

func (r *sessionRepo) Insert(ctx context.Context, db DBTX, session *domain.GameSession) error {
	_, err := db.Exec(ctx, `
		INSERT INTO game_sessions (id, contract_id, status, total_pot, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.ContractID, string(session.Status),
		infra.AmountToNumeric(session.TotalPot),
		session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for _, p := range session.Players {
		_, err := db.Exec(ctx, `
			INSERT INTO session_players (session_id, user_id, amount_locked, is_winner, win_amount)
			VALUES ($1, $2, $3, $4, $5)`,
			session.ID, p.UserID,
			infra.AmountToNumeric(p.AmountLocked),
			p.IsWinner,
			infra.AmountToNumeric(p.WinAmount))
		if err != nil {
			return fmt.Errorf("insert session player %s: %w", p.UserID, err)
		}
	}
	return nil
}

func (r *sessionRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.GameSession, error) {
	row := db.QueryRow(ctx, `
		SELECT id, contract_id, status, total_pot, expires_at, created_at, settled_at
		FROM game_sessions WHERE id = $1`, id)
	return r.scanWithPlayers(ctx, db, row)
}

func (r *sessionRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.GameSession, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, contract_id, status, total_pot, expires_at, created_at, settled_at
		FROM game_sessions WHERE id = $1 FOR UPDATE`, id)
	return r.scanWithPlayers(ctx, tx, row)
}

func (r *sessionRepo) UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.SessionStatus, settledAt *time.Time) error {
	tag, err := db.Exec(ctx, `
		UPDATE game_sessions SET status = $1, settled_at = $2 WHERE id = $3`,
		string(status), settledAt, id)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("session", id.String())
	}
	return nil
}

func (r *sessionRepo) UpdatePlayerOutcome(ctx context.Context, db DBTX, sessionID, userID uuid.UUID, isWinner bool, winAmount domain.Amount) error {
	tag, err := db.Exec(ctx, `
		UPDATE session_players SET is_winner = $1, win_amount = $2
		WHERE session_id = $3 AND user_id = $4`,
		isWinner, infra.AmountToNumeric(winAmount), sessionID, userID)
	if err != nil {
		return fmt.Errorf("update player outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("session player", userID.String())
	}
	return nil
}

func (r *sessionRepo) ListExpired(ctx context.Context, db DBTX, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := db.Query(ctx, `
		SELECT id FROM game_sessions
		WHERE status IN ('PENDING', 'ACTIVE') AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sessionRepo) LiveSessionForUsers(ctx context.Context, db DBTX, contractID uuid.UUID, userIDs []uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.QueryRow(ctx, `
		SELECT s.id FROM game_sessions s
		JOIN session_players p ON p.session_id = s.id
		WHERE s.contract_id = $1 AND s.status IN ('PENDING', 'ACTIVE') AND p.user_id = ANY($2)
		LIMIT 1`, contractID, userIDs).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("query live sessions: %w", err)
	}
	return id, nil
}

func (r *sessionRepo) scanWithPlayers(ctx context.Context, db DBTX, row pgx.Row) (*domain.GameSession, error) {
	var s domain.GameSession
	var potNum pgtype.Numeric
	err := row.Scan(&s.ID, &s.ContractID, &s.Status, &potNum, &s.ExpiresAt, &s.CreatedAt, &s.SettledAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	s.TotalPot, err = infra.NumericToAmount(potNum)
	if err != nil {
		return nil, fmt.Errorf("convert total_pot: %w", err)
	}

	rows, err := db.Query(ctx, `
		SELECT user_id, amount_locked, is_winner, win_amount
		FROM session_players WHERE session_id = $1
		ORDER BY user_id ASC`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("query session players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.SessionPlayer
		var lockedNum, winNum pgtype.Numeric
		if err := rows.Scan(&p.UserID, &lockedNum, &p.IsWinner, &winNum); err != nil {
			return nil, fmt.Errorf("scan session player: %w", err)
		}
		if p.AmountLocked, err = infra.NumericToAmount(lockedNum); err != nil {
			return nil, fmt.Errorf("convert amount_locked: %w", err)
		}
		if p.WinAmount, err = infra.NumericToAmount(winNum); err != nil {
			return nil, fmt.Errorf("convert win_amount: %w", err)
		}
		s.Players = append(s.Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &s, nil
}
