package contract

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/plutohub/platform/internal/domain"
)

// SettledWinner is one winner's payout in a settlement response.
type SettledWinner struct {
	UserID    uuid.UUID     `json:"userId"`
	WinAmount domain.Amount `json:"winAmount"`
}

// SettleResult summarizes a committed settlement.
type SettleResult struct {
	SessionID            uuid.UUID       `json:"sessionId"`
	Winners              []SettledWinner `json:"winners"`
	PlatformFeeCollected domain.Amount   `json:"platformFeeCollected"`
}

// Settle resolves a live session: every stake is consumed, winners are paid
// from the prize pool, and the platform fee lands on the platform account.
// Exactly one terminal transition can commit; a retry observes the terminal
// status and gets the matching conflict error with no side effects.
func (e *Engine) Settle(ctx context.Context, gameID uuid.UUID, sessionToken string, results []domain.PlayerResult) (*SettleResult, error) {
	sessionID, err := e.verifySessionToken(sessionToken)
	if err != nil {
		return nil, err
	}

	var result *SettleResult
	err = e.inTx(ctx, func(tx pgx.Tx) error {
		session, contract, err := e.loadLiveSession(ctx, tx, sessionID, gameID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return terminalConflict(session)
		}

		now := e.now().UTC()
		if now.After(session.ExpiresAt) {
			return domain.ErrSessionExpired(sessionID.String())
		}

		dist, err := ComputeDistribution(session, contract, results)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(session.Players)+1)
		for _, p := range session.Players {
			ids = append(ids, p.UserID)
		}
		if dist.PlatformFee.IsPositive() {
			ids = append(ids, e.platformAccountID)
		}
		locked, err := e.lockUsers(ctx, tx, ids)
		if err != nil {
			return err
		}

		winAmounts := make(map[uuid.UUID]domain.Amount, len(dist.Winners))
		for _, w := range dist.Winners {
			winAmounts[w.UserID] = w.Amount
		}

		// Stakes are consumed first, then prizes credited, per player in
		// session order so each balanceAfter snapshot is exact.
		for _, p := range session.Players {
			u := locked[p.UserID]

			balance, err := u.Balance.Sub(p.AmountLocked)
			if err != nil {
				return domain.ErrInternal("stake exceeds balance", err)
			}
			lockedBal, err := u.Locked.Sub(p.AmountLocked)
			if err != nil {
				return domain.ErrInternal("stake exceeds locked balance", err)
			}

			var entries []domain.LedgerEntry
			if p.AmountLocked.IsPositive() {
				entries = append(entries, domain.NewLedgerEntry(p.UserID, domain.EntryLose, p.AmountLocked,
					balance, &session.ID, "stake consumed at settlement"))
			}

			win, isWinner := winAmounts[p.UserID]
			if isWinner && win.IsPositive() {
				balance = balance.Add(win)
				entries = append(entries, domain.NewLedgerEntry(p.UserID, domain.EntryWin, win,
					balance, &session.ID, "prize payout"))
			}

			next := domain.Balances{Balance: balance, Locked: lockedBal}
			if _, err := e.users.UpdateBalancesInTx(ctx, tx, p.UserID, next); err != nil {
				return err
			}
			if _, err := e.postEntries(ctx, tx, entries); err != nil {
				return err
			}
			if err := e.sessions.UpdatePlayerOutcome(ctx, tx, session.ID, p.UserID, isWinner, win); err != nil {
				return err
			}
		}

		if dist.PlatformFee.IsPositive() {
			platform := locked[e.platformAccountID]
			next := domain.Balances{
				Balance: platform.Balance.Add(dist.PlatformFee),
				Locked:  platform.Locked,
			}
			updated, err := e.users.UpdateBalancesInTx(ctx, tx, e.platformAccountID, next)
			if err != nil {
				return err
			}
			fee := domain.NewLedgerEntry(e.platformAccountID, domain.EntryFee, dist.PlatformFee,
				updated.Balance, &session.ID, "platform fee")
			if _, err := e.postEntry(ctx, tx, fee); err != nil {
				return err
			}
		}

		if err := e.sessions.UpdateStatus(ctx, tx, session.ID, domain.SessionSettled, &now); err != nil {
			return err
		}

		session.Status = domain.SessionSettled
		session.SettledAt = &now
		for i := range session.Players {
			win, ok := winAmounts[session.Players[i].UserID]
			session.Players[i].IsWinner = ok
			if ok {
				session.Players[i].WinAmount = win
			}
		}
		if err := e.outbox.Insert(ctx, tx, domain.NewSessionEvent(domain.EventSessionSettled, session, gameID)); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}

		winners := make([]SettledWinner, 0, len(dist.Winners))
		for _, w := range dist.Winners {
			winners = append(winners, SettledWinner{UserID: w.UserID, WinAmount: w.Amount})
		}
		result = &SettleResult{
			SessionID:            session.ID,
			Winners:              winners,
			PlatformFeeCollected: dist.PlatformFee,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session settled",
		"sessionId", result.SessionID,
		"winners", len(result.Winners),
		"platformFee", result.PlatformFeeCollected.String())
	return result, nil
}
