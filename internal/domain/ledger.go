package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryType enumerates the ledger entry types.
type EntryType string

const (
	EntryLock     EntryType = "LOCK"
	EntryUnlock   EntryType = "UNLOCK"
	EntryWin      EntryType = "WIN"
	EntryLose     EntryType = "LOSE"
	EntryFee      EntryType = "FEE"
	EntryDeposit  EntryType = "DEPOSIT"
	EntryWithdraw EntryType = "WITHDRAW"
)

// BalanceEffect returns the signed effect of an entry type on the user's
// total balance: +1 credit, -1 debit, 0 none. LOCK and UNLOCK only shift
// funds between available and locked.
func (t EntryType) BalanceEffect() int {
	switch t {
	case EntryWin, EntryFee, EntryDeposit:
		return 1
	case EntryLose, EntryWithdraw:
		return -1
	default:
		return 0
	}
}

// LockedEffect returns the signed effect of an entry type on the user's
// locked balance.
func (t EntryType) LockedEffect() int {
	switch t {
	case EntryLock:
		return 1
	case EntryUnlock, EntryLose:
		return -1
	default:
		return 0
	}
}

// LedgerEntry is an immutable, append-only record of a balance-changing
// event. BalanceAfter snapshots the user's total balance after the entry.
type LedgerEntry struct {
	ID           uuid.UUID  `json:"entryId"`
	UserID       uuid.UUID  `json:"userId"`
	Type         EntryType  `json:"type"`
	Amount       Amount     `json:"amount"`
	BalanceAfter Amount     `json:"balanceAfter"`
	SessionID    *uuid.UUID `json:"sessionId,omitempty"`
	Description  *string    `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// NewLedgerEntry builds an entry draft for insertion. The repository assigns
// ID and CreatedAt.
func NewLedgerEntry(userID uuid.UUID, typ EntryType, amount, balanceAfter Amount, sessionID *uuid.UUID, description string) LedgerEntry {
	e := LedgerEntry{
		UserID:       userID,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		SessionID:    sessionID,
	}
	if description != "" {
		e.Description = &description
	}
	return e
}
