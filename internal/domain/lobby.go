package domain

import (
	"time"

	"github.com/google/uuid"
)

// LobbyStatus enumerates the lobby state machine.
type LobbyStatus string

const (
	LobbyWaiting  LobbyStatus = "WAITING"
	LobbyStarting LobbyStatus = "STARTING"
	LobbyInGame   LobbyStatus = "IN_GAME"
	LobbyClosed   LobbyStatus = "CLOSED"
)

// IsTerminal reports whether the lobby admits no further membership changes.
func (s LobbyStatus) IsTerminal() bool {
	return s == LobbyClosed
}

// LobbyPlayer is a lobby member.
type LobbyPlayer struct {
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Lobby is a per-contract waiting room. A user is in at most one lobby with
// non-terminal status.
type Lobby struct {
	ID         uuid.UUID     `json:"lobbyId"`
	ContractID uuid.UUID     `json:"contractId"`
	Status     LobbyStatus   `json:"status"`
	Players    []LobbyPlayer `json:"players"`
	CreatedAt  time.Time     `json:"createdAt"`
}
