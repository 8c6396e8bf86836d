package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates the session state machine. PENDING and ACTIVE are
// live; SETTLED, CANCELLED and EXPIRED are terminal and frozen.
type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"
	SessionActive    SessionStatus = "ACTIVE"
	SessionSettled   SessionStatus = "SETTLED"
	SessionCancelled SessionStatus = "CANCELLED"
	SessionExpired   SessionStatus = "EXPIRED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionSettled, SessionCancelled, SessionExpired:
		return true
	}
	return false
}

// SessionPlayer is one participant's stake and outcome in a session.
// AmountLocked is recorded at lock time, never re-derived from the contract.
type SessionPlayer struct {
	UserID       uuid.UUID `json:"userId"`
	AmountLocked Amount    `json:"amountLocked"`
	IsWinner     bool      `json:"isWinner"`
	WinAmount    Amount    `json:"winAmount"`
}

// GameSession is a contract execution: the escrow record from lock through
// settle, cancel or expiry.
type GameSession struct {
	ID         uuid.UUID       `json:"sessionId"`
	ContractID uuid.UUID       `json:"contractId"`
	Status     SessionStatus   `json:"status"`
	TotalPot   Amount          `json:"totalPot"`
	Players    []SessionPlayer `json:"players"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	CreatedAt  time.Time       `json:"createdAt"`
	SettledAt  *time.Time      `json:"settledAt,omitempty"`
}

// Player returns the session player with the given user id, or nil.
func (s *GameSession) Player(userID uuid.UUID) *SessionPlayer {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			return &s.Players[i]
		}
	}
	return nil
}

// PlayerResult is one entry of a settlement result set.
type PlayerResult struct {
	PlayerID  uuid.UUID `json:"playerId"`
	IsWinner  bool      `json:"isWinner"`
	WinAmount *Amount   `json:"winAmount,omitempty"`
}
