package contract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/token"
)

// ExecutedPlayer is one participant in an execution response.
type ExecutedPlayer struct {
	UserID       uuid.UUID     `json:"userId"`
	DisplayName  string        `json:"displayName"`
	AmountLocked domain.Amount `json:"amountLocked"`
}

// ExecuteResult is the session summary returned to the game backend.
type ExecuteResult struct {
	SessionID    uuid.UUID        `json:"sessionId"`
	SessionToken string           `json:"sessionToken"`
	Players      []ExecutedPlayer `json:"players"`
	TotalPot     domain.Amount    `json:"totalPot"`
	ExpiresAt    time.Time        `json:"expiresAt"`
}

// Execute locks every player's entry fee, opens a PENDING session, and mints
// the session token that authorizes its eventual settlement. All effects
// commit atomically or not at all.
func (e *Engine) Execute(ctx context.Context, gameID, contractID uuid.UUID, externalAuthIDs []string) (*ExecuteResult, error) {
	contract, err := e.contracts.FindByID(ctx, e.pool, contractID)
	if err != nil {
		return nil, domain.ErrInternal("contract lookup failed", err)
	}
	if contract == nil {
		return nil, domain.ErrNotFound("contract", contractID.String())
	}
	if !contract.IsActive {
		return nil, domain.ErrInvalidState("contract is not active")
	}
	if contract.GameID != gameID {
		return nil, domain.ErrForbidden("contract belongs to another game")
	}
	if err := domain.ValidatePlayerSet(externalAuthIDs, contract.MinPlayers, contract.MaxPlayers); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	var result *ExecuteResult
	err = e.inTx(ctx, func(tx pgx.Tx) error {
		byExternal, err := e.users.FindByExternalAuthIDs(ctx, tx, externalAuthIDs)
		if err != nil {
			return fmt.Errorf("resolve players: %w", err)
		}
		userIDs := make([]uuid.UUID, 0, len(externalAuthIDs))
		for _, extID := range externalAuthIDs {
			u, ok := byExternal[extID]
			if !ok {
				return domain.ErrNotFound("user", extID)
			}
			userIDs = append(userIDs, u.ID)
		}

		locked, err := e.lockUsers(ctx, tx, userIDs)
		if err != nil {
			return err
		}

		// A retried Execute must not double-lock the same stakes: any player
		// still in a live session of this contract blocks the whole call.
		liveID, err := e.sessions.LiveSessionForUsers(ctx, tx, contract.ID, userIDs)
		if err != nil {
			return fmt.Errorf("check live sessions: %w", err)
		}
		if liveID != uuid.Nil {
			return domain.ErrDuplicateExecution(
				fmt.Sprintf("a player is already in live session %s of this contract", liveID))
		}

		for _, id := range userIDs {
			u := locked[id]
			if u.Available().Cmp(contract.EntryFee) < 0 {
				return domain.ErrInsufficientFunds(contract.EntryFee, u.Available())
			}
		}

		now := e.now().UTC()
		session := &domain.GameSession{
			ID:         uuid.New(),
			ContractID: contract.ID,
			Status:     domain.SessionPending,
			TotalPot:   contract.EntryFee.MulInt(int64(len(userIDs))),
			ExpiresAt:  now.Add(time.Duration(contract.TTLSeconds) * time.Second),
			CreatedAt:  now,
		}
		for _, id := range userIDs {
			session.Players = append(session.Players, domain.SessionPlayer{
				UserID:       id,
				AmountLocked: contract.EntryFee,
				WinAmount:    domain.Zero,
			})
		}
		if err := e.sessions.Insert(ctx, tx, session); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		players := make([]ExecutedPlayer, 0, len(userIDs))
		for _, id := range userIDs {
			u := locked[id]
			next := domain.Balances{
				Balance: u.Balance,
				Locked:  u.Locked.Add(contract.EntryFee),
			}
			updated, err := e.users.UpdateBalancesInTx(ctx, tx, id, next)
			if err != nil {
				return err
			}
			if contract.EntryFee.IsPositive() {
				entry := domain.NewLedgerEntry(id, domain.EntryLock, contract.EntryFee,
					updated.Balance, &session.ID, "entry fee locked")
				if _, err := e.postEntry(ctx, tx, entry); err != nil {
					return err
				}
			}
			players = append(players, ExecutedPlayer{
				UserID:       id,
				DisplayName:  u.DisplayName,
				AmountLocked: contract.EntryFee,
			})
		}

		if err := e.outbox.Insert(ctx, tx, domain.NewSessionEvent(domain.EventSessionExecuted, session, gameID)); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}

		playerIDs := make([]string, 0, len(userIDs))
		for _, id := range userIDs {
			playerIDs = append(playerIDs, id.String())
		}
		sessionToken, err := e.codec.Mint(token.Payload{
			SessionID:  session.ID.String(),
			ContractID: contract.ID.String(),
			PlayerIDs:  playerIDs,
			TotalPot:   session.TotalPot.String(),
			ExpiresAt:  session.ExpiresAt,
			IssuedAt:   now.Unix(),
		})
		if err != nil {
			return domain.ErrInternal("mint session token", err)
		}

		result = &ExecuteResult{
			SessionID:    session.ID,
			SessionToken: sessionToken,
			Players:      players,
			TotalPot:     session.TotalPot,
			ExpiresAt:    session.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session executed",
		"sessionId", result.SessionID,
		"contractId", contract.ID,
		"players", len(result.Players),
		"totalPot", result.TotalPot.String())
	return result, nil
}
