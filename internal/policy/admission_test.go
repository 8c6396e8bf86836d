package policy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContract() *domain.Contract {
	return &domain.Contract{
		ID:         uuid.New(),
		GameID:     uuid.New(),
		Name:       "duel",
		EntryFee:   domain.NewAmount(100),
		MinPlayers: 2,
		MaxPlayers: 4,
		TTLSeconds: 300,
		IsActive:   true,
	}
}

func testUser(balance int64) *domain.User {
	return &domain.User{
		ID: uuid.New(),
		Balances: domain.Balances{
			Balance: domain.NewAmount(balance),
			Locked:  domain.Zero,
		},
	}
}

func TestEvaluateAdmission_Allows(t *testing.T) {
	eval := EvaluateAdmission(AdmissionRequest{
		Contract: testContract(),
		User:     testUser(100),
	})
	assert.True(t, eval.Allowed)
	assert.Nil(t, eval.Denial)
}

func TestEvaluateAdmission_InactiveContract(t *testing.T) {
	contract := testContract()
	contract.IsActive = false

	eval := EvaluateAdmission(AdmissionRequest{Contract: contract, User: testUser(100)})
	require.False(t, eval.Allowed)
	assert.Equal(t, "INVALID_STATE", eval.Denial.Code)
}

func TestEvaluateAdmission_AlreadyInLobby(t *testing.T) {
	eval := EvaluateAdmission(AdmissionRequest{
		Contract:       testContract(),
		User:           testUser(100),
		AlreadyInLobby: &domain.Lobby{ID: uuid.New(), Status: domain.LobbyWaiting},
	})
	require.False(t, eval.Allowed)
	assert.Equal(t, "ALREADY_IN_LOBBY", eval.Denial.Code)
}

func TestEvaluateAdmission_ClosedLobbyDoesNotBlockRejoin(t *testing.T) {
	eval := EvaluateAdmission(AdmissionRequest{
		Contract:       testContract(),
		User:           testUser(100),
		AlreadyInLobby: &domain.Lobby{ID: uuid.New(), Status: domain.LobbyClosed},
	})
	assert.True(t, eval.Allowed)
}

func TestEvaluateAdmission_LobbyFull(t *testing.T) {
	contract := testContract()
	lobby := &domain.Lobby{ID: uuid.New(), Status: domain.LobbyWaiting}
	for i := 0; i < contract.MaxPlayers; i++ {
		lobby.Players = append(lobby.Players, domain.LobbyPlayer{UserID: uuid.New(), JoinedAt: time.Now()})
	}

	eval := EvaluateAdmission(AdmissionRequest{Contract: contract, Lobby: lobby, User: testUser(100)})
	require.False(t, eval.Allowed)
	assert.Equal(t, "LOBBY_FULL", eval.Denial.Code)
}

func TestEvaluateAdmission_LobbyNotWaiting(t *testing.T) {
	eval := EvaluateAdmission(AdmissionRequest{
		Contract: testContract(),
		Lobby:    &domain.Lobby{ID: uuid.New(), Status: domain.LobbyStarting},
		User:     testUser(100),
	})
	require.False(t, eval.Allowed)
	assert.Equal(t, "LOBBY_NOT_READY", eval.Denial.Code)
}

func TestEvaluateAdmission_InsufficientAvailable(t *testing.T) {
	user := testUser(100)
	user.Locked = domain.NewAmount(50)

	eval := EvaluateAdmission(AdmissionRequest{Contract: testContract(), User: user})
	require.False(t, eval.Allowed)
	assert.Equal(t, "INSUFFICIENT_FUNDS", eval.Denial.Code)
	assert.Equal(t, 402, eval.Denial.Status)
}
