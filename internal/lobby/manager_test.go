package lobby

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedContract(min, max int) *domain.Contract {
	return &domain.Contract{
		ID:         uuid.New(),
		GameID:     uuid.New(),
		Name:       "duel",
		EntryFee:   domain.NewAmount(100),
		MinPlayers: min,
		MaxPlayers: max,
		TTLSeconds: 300,
		IsActive:   true,
	}
}

func newTestManager(contracts ...*domain.Contract) *Manager {
	byID := make(map[uuid.UUID]*domain.Contract)
	for _, c := range contracts {
		byID[c.ID] = c
	}
	loader := func(_ context.Context, id uuid.UUID) (*domain.Contract, error) {
		return byID[id], nil
	}
	return NewManager(loader, NewHub(testLogger()), testLogger())
}

func richUser(name string) *domain.User {
	return &domain.User{
		ID:          uuid.New(),
		DisplayName: name,
		Balances: domain.Balances{
			Balance: domain.NewAmount(1_000),
			Locked:  domain.Zero,
		},
	}
}

func TestManager_JoinCreatesLobby(t *testing.T) {
	contract := fixedContract(2, 4)
	m := newTestManager(contract)

	res, err := m.Join(context.Background(), richUser("alice"), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LobbyWaiting, res.Status)
	assert.Equal(t, 1, res.Position)
	assert.False(t, res.IsReady)
}

func TestManager_JoinUnknownContract(t *testing.T) {
	m := newTestManager()

	_, err := m.Join(context.Background(), richUser("alice"), uuid.New())
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestManager_SecondJoinSharesLobby(t *testing.T) {
	contract := fixedContract(2, 4)
	m := newTestManager(contract)

	first, err := m.Join(context.Background(), richUser("alice"), contract.ID)
	require.NoError(t, err)
	second, err := m.Join(context.Background(), richUser("bob"), contract.ID)
	require.NoError(t, err)

	assert.Equal(t, first.LobbyID, second.LobbyID)
	assert.Equal(t, 2, second.Position)
	assert.True(t, second.IsReady, "minPlayers reached")
}

func TestManager_RejoinRejected(t *testing.T) {
	contract := fixedContract(2, 4)
	m := newTestManager(contract)
	alice := richUser("alice")

	_, err := m.Join(context.Background(), alice, contract.ID)
	require.NoError(t, err)

	_, err = m.Join(context.Background(), alice, contract.ID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ALREADY_IN_LOBBY", appErr.Code)
}

func TestManager_FullLobbyStartsAndRejectsLateJoin(t *testing.T) {
	contract := fixedContract(2, 2)
	m := newTestManager(contract)

	_, err := m.Join(context.Background(), richUser("alice"), contract.ID)
	require.NoError(t, err)
	second, err := m.Join(context.Background(), richUser("bob"), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LobbyStarting, second.Status)

	// The starting lobby no longer accepts members.
	_, err = m.Join(context.Background(), richUser("carol"), contract.ID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LOBBY_NOT_READY", appErr.Code)
}

func TestManager_InsufficientFundsPrecheck(t *testing.T) {
	contract := fixedContract(2, 4)
	m := newTestManager(contract)

	poor := richUser("poor")
	poor.Balances.Balance = domain.NewAmount(10)

	_, err := m.Join(context.Background(), poor, contract.ID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INSUFFICIENT_FUNDS", appErr.Code)
}

func TestManager_LeaveClosesEmptyLobby(t *testing.T) {
	contract := fixedContract(2, 4)
	m := newTestManager(contract)
	alice := richUser("alice")

	res, err := m.Join(context.Background(), alice, contract.ID)
	require.NoError(t, err)

	left, err := m.Leave(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, res.LobbyID, left)
	assert.Nil(t, m.Get(res.LobbyID))

	// A fresh join opens a new lobby.
	res2, err := m.Join(context.Background(), alice, contract.ID)
	require.NoError(t, err)
	assert.NotEqual(t, res.LobbyID, res2.LobbyID)
}

func TestManager_LeaveWithoutLobby(t *testing.T) {
	m := newTestManager()

	_, err := m.Leave(uuid.New())
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestManager_LeaveDuringCountdownReopensLobby(t *testing.T) {
	contract := fixedContract(2, 2)
	m := newTestManager(contract)
	alice, bob := richUser("alice"), richUser("bob")

	_, err := m.Join(context.Background(), alice, contract.ID)
	require.NoError(t, err)
	res, err := m.Join(context.Background(), bob, contract.ID)
	require.NoError(t, err)
	require.Equal(t, domain.LobbyStarting, res.Status)

	_, err = m.Leave(bob.ID)
	require.NoError(t, err)

	lobby := m.Get(res.LobbyID)
	require.NotNil(t, lobby)
	assert.Equal(t, domain.LobbyWaiting, lobby.Status)
	assert.Len(t, lobby.Players, 1)
}

func TestManager_MarkGameStartedAndClose(t *testing.T) {
	contract := fixedContract(1, 2)
	m := newTestManager(contract)
	alice := richUser("alice")

	res, err := m.Join(context.Background(), alice, contract.ID)
	require.NoError(t, err)

	sessionID := uuid.New()
	m.MarkGameStarted(contract.ID, sessionID)

	lobby := m.Get(res.LobbyID)
	require.NotNil(t, lobby)
	assert.Equal(t, domain.LobbyInGame, lobby.Status)

	// Members cannot walk out mid-game.
	_, err = m.Leave(alice.ID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_STATE", appErr.Code)

	m.CloseForContract(contract.ID, "session settled")
	assert.Nil(t, m.Get(res.LobbyID))

	// Membership released: alice can join again.
	_, err = m.Join(context.Background(), alice, contract.ID)
	assert.NoError(t, err)
}

func TestManager_ListFiltersByContract(t *testing.T) {
	c1 := fixedContract(2, 4)
	c2 := fixedContract(2, 4)
	m := newTestManager(c1, c2)

	_, err := m.Join(context.Background(), richUser("alice"), c1.ID)
	require.NoError(t, err)
	_, err = m.Join(context.Background(), richUser("bob"), c2.ID)
	require.NoError(t, err)

	assert.Len(t, m.List(nil), 2)

	filtered := m.List(&c1.ID)
	require.Len(t, filtered, 1)
	assert.Equal(t, c1.ID, filtered[0].ContractID)
	assert.Equal(t, 1, filtered[0].PlayersCount)
	assert.Equal(t, 4, filtered[0].MaxPlayers)
}
