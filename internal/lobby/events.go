package lobby

import (
	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/domain"
)

// Typed events delivered over the lobby stream. The type tag is the wire
// contract; clients switch on it.

// PlayerJoinedEvent announces a new lobby member.
type PlayerJoinedEvent struct {
	Type   string             `json:"type"`
	Player domain.LobbyPlayer `json:"player"`
}

// PlayerLeftEvent announces a departure.
type PlayerLeftEvent struct {
	Type     string    `json:"type"`
	PlayerID uuid.UUID `json:"playerId"`
}

// LobbyStartingEvent announces the lobby reached capacity; the game backend
// reacts to it by executing the contract.
type LobbyStartingEvent struct {
	Type      string `json:"type"`
	Countdown int    `json:"countdown"`
}

// GameStartedEvent announces the session created for this lobby.
type GameStartedEvent struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"sessionId"`
}

// LobbyClosedEvent announces the lobby is gone.
type LobbyClosedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func playerJoined(p domain.LobbyPlayer) PlayerJoinedEvent {
	return PlayerJoinedEvent{Type: "player_joined", Player: p}
}

func playerLeft(userID uuid.UUID) PlayerLeftEvent {
	return PlayerLeftEvent{Type: "player_left", PlayerID: userID}
}

func lobbyStarting(countdown int) LobbyStartingEvent {
	return LobbyStartingEvent{Type: "lobby_starting", Countdown: countdown}
}

func gameStarted(sessionID uuid.UUID) GameStartedEvent {
	return GameStartedEvent{Type: "game_started", SessionID: sessionID}
}

func lobbyClosed(reason string) LobbyClosedEvent {
	return LobbyClosedEvent{Type: "lobby_closed", Reason: reason}
}
