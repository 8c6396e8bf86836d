// Package lobby implements the per-contract waiting rooms and the event
// fan-out that drives game starts.
package lobby

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/policy"
)

// ContractLoader resolves a contract by id, nil when absent. Decouples the
// manager from the storage layer.
type ContractLoader func(ctx context.Context, id uuid.UUID) (*domain.Contract, error)

// startingCountdown is the countdown advertised with lobby_starting.
const startingCountdown = 5

// JoinResult is what a successful Join reports back to the player.
type JoinResult struct {
	LobbyID      uuid.UUID          `json:"lobbyId"`
	ContractID   uuid.UUID          `json:"contractId"`
	Status       domain.LobbyStatus `json:"status"`
	Position     int                `json:"position"`
	PlayersCount int                `json:"playersCount"`
	MinPlayers   int                `json:"minPlayers"`
	MaxPlayers   int                `json:"maxPlayers"`
	IsReady      bool               `json:"isReady"`
}

// Summary is the list-view projection of a lobby.
type Summary struct {
	LobbyID      uuid.UUID          `json:"lobbyId"`
	ContractID   uuid.UUID          `json:"contractId"`
	Status       domain.LobbyStatus `json:"status"`
	PlayersCount int                `json:"playersCount"`
	MaxPlayers   int                `json:"maxPlayers"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type entry struct {
	lobby    *domain.Lobby
	contract *domain.Contract
}

// Manager is the in-process lobby registry. All membership mutation happens
// under one mutex; DB reads (contract lookup, balance precheck input) happen
// before the lock is taken.
type Manager struct {
	mu         sync.Mutex
	lobbies    map[uuid.UUID]*entry    // lobbyID -> entry
	byUser     map[uuid.UUID]uuid.UUID // userID -> non-terminal lobbyID
	byContract map[uuid.UUID]uuid.UUID // contractID -> open lobbyID

	loadContract ContractLoader
	hub          *Hub
	logger       *slog.Logger
}

// NewManager creates a lobby manager.
func NewManager(loadContract ContractLoader, hub *Hub, logger *slog.Logger) *Manager {
	return &Manager{
		lobbies:      make(map[uuid.UUID]*entry),
		byUser:       make(map[uuid.UUID]uuid.UUID),
		byContract:   make(map[uuid.UUID]uuid.UUID),
		loadContract: loadContract,
		hub:          hub,
		logger:       logger,
	}
}

// Join admits a user into the waiting lobby for a contract, creating the
// lobby if none is open. The funds check is an advisory precheck; no money
// is locked here.
func (m *Manager) Join(ctx context.Context, user *domain.User, contractID uuid.UUID) (*JoinResult, error) {
	contract, err := m.loadContract(ctx, contractID)
	if err != nil {
		return nil, domain.ErrInternal("contract lookup failed", err)
	}
	if contract == nil {
		return nil, domain.ErrNotFound("contract", contractID.String())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var current *domain.Lobby
	if lobbyID, ok := m.byUser[user.ID]; ok {
		if e, ok := m.lobbies[lobbyID]; ok {
			current = e.lobby
		}
	}

	target := m.openLobbyLocked(contractID)
	var targetLobby *domain.Lobby
	if target != nil {
		targetLobby = target.lobby
	}

	eval := policy.EvaluateAdmission(policy.AdmissionRequest{
		Contract:       contract,
		Lobby:          targetLobby,
		User:           user,
		AlreadyInLobby: current,
	})
	if !eval.Allowed {
		return nil, eval.Denial
	}

	if target == nil {
		target = &entry{
			lobby: &domain.Lobby{
				ID:         uuid.New(),
				ContractID: contractID,
				Status:     domain.LobbyWaiting,
				CreatedAt:  time.Now().UTC(),
			},
			contract: contract,
		}
		m.lobbies[target.lobby.ID] = target
		m.byContract[contractID] = target.lobby.ID
	}

	player := domain.LobbyPlayer{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		JoinedAt:    time.Now().UTC(),
	}
	target.lobby.Players = append(target.lobby.Players, player)
	m.byUser[user.ID] = target.lobby.ID

	m.hub.Broadcast(target.lobby.ID, playerJoined(player))

	if len(target.lobby.Players) == contract.MaxPlayers {
		target.lobby.Status = domain.LobbyStarting
		m.hub.Broadcast(target.lobby.ID, lobbyStarting(startingCountdown))
		m.logger.Info("lobby starting",
			"lobbyId", target.lobby.ID,
			"contractId", contractID,
			"players", len(target.lobby.Players))
	}

	return &JoinResult{
		LobbyID:      target.lobby.ID,
		ContractID:   contractID,
		Status:       target.lobby.Status,
		Position:     len(target.lobby.Players),
		PlayersCount: len(target.lobby.Players),
		MinPlayers:   contract.MinPlayers,
		MaxPlayers:   contract.MaxPlayers,
		IsReady:      len(target.lobby.Players) >= contract.MinPlayers,
	}, nil
}

// Leave removes the user from their current lobby. An empty lobby closes.
func (m *Manager) Leave(userID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lobbyID, ok := m.byUser[userID]
	if !ok {
		return uuid.Nil, domain.ErrNotFound("lobby", "for user "+userID.String())
	}
	e, ok := m.lobbies[lobbyID]
	if !ok {
		delete(m.byUser, userID)
		return uuid.Nil, domain.ErrNotFound("lobby", lobbyID.String())
	}
	if e.lobby.Status == domain.LobbyInGame {
		return uuid.Nil, domain.ErrInvalidState("cannot leave a lobby whose game is running")
	}

	players := e.lobby.Players[:0]
	for _, p := range e.lobby.Players {
		if p.UserID != userID {
			players = append(players, p)
		}
	}
	e.lobby.Players = players
	delete(m.byUser, userID)

	m.hub.Broadcast(lobbyID, playerLeft(userID))

	if len(e.lobby.Players) == 0 {
		m.closeLocked(e, "empty")
	} else if e.lobby.Status == domain.LobbyStarting {
		// A departure during the countdown reopens the lobby.
		e.lobby.Status = domain.LobbyWaiting
	}
	return lobbyID, nil
}

// MarkGameStarted transitions the contract's starting lobby to IN_GAME and
// announces the session. Called after contract execution commits.
func (m *Manager) MarkGameStarted(contractID, sessionID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.openLobbyLocked(contractID)
	if e == nil {
		return
	}
	e.lobby.Status = domain.LobbyInGame
	m.hub.Broadcast(e.lobby.ID, gameStarted(sessionID))
}

// CloseForContract closes the contract's open lobby, if any, releasing its
// members. Called after the session reaches a terminal state.
func (m *Manager) CloseForContract(contractID uuid.UUID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.openLobbyLocked(contractID)
	if e == nil {
		return
	}
	m.closeLocked(e, reason)
}

// Get returns a snapshot of a lobby, or nil.
func (m *Manager) Get(lobbyID uuid.UUID) *domain.Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lobbies[lobbyID]
	if !ok {
		return nil
	}
	return snapshot(e.lobby)
}

// List returns summaries of all open lobbies, optionally filtered by
// contract.
func (m *Manager) List(contractID *uuid.UUID) []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := make([]Summary, 0, len(m.lobbies))
	for _, e := range m.lobbies {
		if contractID != nil && e.lobby.ContractID != *contractID {
			continue
		}
		summaries = append(summaries, Summary{
			LobbyID:      e.lobby.ID,
			ContractID:   e.lobby.ContractID,
			Status:       e.lobby.Status,
			PlayersCount: len(e.lobby.Players),
			MaxPlayers:   e.contract.MaxPlayers,
			CreatedAt:    e.lobby.CreatedAt,
		})
	}
	return summaries
}

// openLobbyLocked returns the contract's open (non-terminal) lobby entry.
func (m *Manager) openLobbyLocked(contractID uuid.UUID) *entry {
	lobbyID, ok := m.byContract[contractID]
	if !ok {
		return nil
	}
	e, ok := m.lobbies[lobbyID]
	if !ok || e.lobby.Status.IsTerminal() {
		return nil
	}
	return e
}

// closeLocked transitions a lobby to CLOSED and drops it from the indexes.
func (m *Manager) closeLocked(e *entry, reason string) {
	e.lobby.Status = domain.LobbyClosed
	m.hub.Broadcast(e.lobby.ID, lobbyClosed(reason))

	for _, p := range e.lobby.Players {
		if m.byUser[p.UserID] == e.lobby.ID {
			delete(m.byUser, p.UserID)
		}
	}
	if m.byContract[e.lobby.ContractID] == e.lobby.ID {
		delete(m.byContract, e.lobby.ContractID)
	}
	delete(m.lobbies, e.lobby.ID)

	m.logger.Info("lobby closed", "lobbyId", e.lobby.ID, "reason", reason)
}

func snapshot(l *domain.Lobby) *domain.Lobby {
	cp := *l
	cp.Players = append([]domain.LobbyPlayer(nil), l.Players...)
	return &cp
}
