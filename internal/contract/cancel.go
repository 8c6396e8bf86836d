package contract

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/plutohub/platform/internal/domain"
)

// RefundedPlayer is one released stake in a cancellation response.
type RefundedPlayer struct {
	UserID         uuid.UUID     `json:"userId"`
	AmountRefunded domain.Amount `json:"amountRefunded"`
}

// CancelResult summarizes a committed cancellation.
type CancelResult struct {
	SessionID       uuid.UUID        `json:"sessionId"`
	RefundedPlayers []RefundedPlayer `json:"refundedPlayers"`
}

// Cancel releases every stake of a live session and closes it as CANCELLED.
// No fee is charged; total balances are unchanged.
func (e *Engine) Cancel(ctx context.Context, gameID uuid.UUID, sessionToken, reason string) (*CancelResult, error) {
	sessionID, err := e.verifySessionToken(sessionToken)
	if err != nil {
		return nil, err
	}

	description := "stake released: session cancelled"
	if reason != "" {
		description = "stake released: " + reason
	}

	var result *CancelResult
	err = e.inTx(ctx, func(tx pgx.Tx) error {
		session, _, err := e.loadLiveSession(ctx, tx, sessionID, gameID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return terminalConflict(session)
		}

		r, err := e.refund(ctx, tx, session, gameID, domain.SessionCancelled, description)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session cancelled", "sessionId", result.SessionID, "reason", reason)
	return result, nil
}

// Expire is Cancel driven by the sweeper: no token, no game check, terminal
// status EXPIRED. A session that reached a terminal state since the sweep
// listed it is skipped silently.
func (e *Engine) Expire(ctx context.Context, sessionID uuid.UUID) error {
	var expired bool
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		session, err := e.sessions.LockForUpdate(ctx, tx, sessionID)
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if session == nil {
			return domain.ErrNotFound("session", sessionID.String())
		}
		if session.Status.IsTerminal() {
			return nil
		}
		if e.now().UTC().Before(session.ExpiresAt) {
			// Raced with a TTL extension or a stale sweep listing.
			return nil
		}

		contract, err := e.contracts.FindByID(ctx, tx, session.ContractID)
		if err != nil {
			return fmt.Errorf("load contract: %w", err)
		}
		if contract == nil {
			return domain.ErrInternal("session references missing contract", nil)
		}

		if _, err := e.refund(ctx, tx, session, contract.GameID, domain.SessionExpired, "stake released: session expired"); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return err
	}
	if expired {
		e.logger.Info("session expired", "sessionId", sessionID)
	}
	return nil
}

// refund performs the shared Cancel/Expire effects: UNLOCK every stake and
// move the session to the given terminal status.
func (e *Engine) refund(ctx context.Context, tx pgx.Tx, session *domain.GameSession, gameID uuid.UUID, terminal domain.SessionStatus, description string) (*CancelResult, error) {
	ids := make([]uuid.UUID, 0, len(session.Players))
	for _, p := range session.Players {
		ids = append(ids, p.UserID)
	}
	locked, err := e.lockUsers(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	refunded := make([]RefundedPlayer, 0, len(session.Players))
	for _, p := range session.Players {
		u := locked[p.UserID]

		lockedBal, err := u.Locked.Sub(p.AmountLocked)
		if err != nil {
			return nil, domain.ErrInternal("stake exceeds locked balance", err)
		}
		next := domain.Balances{Balance: u.Balance, Locked: lockedBal}
		updated, err := e.users.UpdateBalancesInTx(ctx, tx, p.UserID, next)
		if err != nil {
			return nil, err
		}
		if p.AmountLocked.IsPositive() {
			entry := domain.NewLedgerEntry(p.UserID, domain.EntryUnlock, p.AmountLocked,
				updated.Balance, &session.ID, description)
			if _, err := e.postEntry(ctx, tx, entry); err != nil {
				return nil, err
			}
		}
		refunded = append(refunded, RefundedPlayer{UserID: p.UserID, AmountRefunded: p.AmountLocked})
	}

	if err := e.sessions.UpdateStatus(ctx, tx, session.ID, terminal, nil); err != nil {
		return nil, err
	}

	session.Status = terminal
	evtType := domain.EventSessionCancelled
	if terminal == domain.SessionExpired {
		evtType = domain.EventSessionExpired
	}
	if err := e.outbox.Insert(ctx, tx, domain.NewSessionEvent(evtType, session, gameID)); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return &CancelResult{SessionID: session.ID, RefundedPlayers: refunded}, nil
}

// terminalConflict maps a terminal session status to its deterministic
// conflict error.
func terminalConflict(session *domain.GameSession) error {
	if session.Status == domain.SessionSettled {
		return domain.ErrAlreadySettled(session.ID.String())
	}
	return domain.ErrInvalidState(fmt.Sprintf("session %s is %s", session.ID, session.Status))
}
