//go:build integration

package integration

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/plutohub/platform/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type joinResponse struct {
	LobbyID      uuid.UUID `json:"lobbyId"`
	ContractID   uuid.UUID `json:"contractId"`
	Status       string    `json:"status"`
	Position     int       `json:"position"`
	PlayersCount int       `json:"playersCount"`
	IsReady      bool      `json:"isReady"`
}

func TestLobbyJoinAndList(t *testing.T) {
	env := testutil.NewTestEnv(t)
	gameID := env.SeedGame(gameSecret)
	contractID := env.SeedContract(gameID, 100, 500, 2, 4, 300)

	aliceID, aliceToken := env.ProvisionPlayer("idp|alice", "alice")
	env.FundUser(aliceID, 1000)

	resp := env.POST("/v1/lobby/join", map[string]interface{}{"contractId": contractID}, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var joined joinResponse
	env.DecodeBody(resp, &joined)
	assert.Equal(t, contractID, joined.ContractID)
	assert.Equal(t, "WAITING", joined.Status)
	assert.Equal(t, 1, joined.Position)
	assert.False(t, joined.IsReady)

	resp = env.GET("/v1/lobbies?contractId=" + contractID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lobbies []struct {
		LobbyID      uuid.UUID `json:"lobbyId"`
		PlayersCount int       `json:"playersCount"`
	}
	env.DecodeBody(resp, &lobbies)
	require.Len(t, lobbies, 1)
	assert.Equal(t, joined.LobbyID, lobbies[0].LobbyID)
	assert.Equal(t, 1, lobbies[0].PlayersCount)
}

func TestLobbyRejectsPoorJoin(t *testing.T) {
	env := testutil.NewTestEnv(t)
	gameID := env.SeedGame(gameSecret)
	contractID := env.SeedContract(gameID, 100, 500, 2, 4, 300)

	_, token := env.ProvisionPlayer("idp|broke", "broke")

	resp := env.POST("/v1/lobby/join", map[string]interface{}{"contractId": contractID}, token)
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var errResp errorResponse
	env.DecodeBody(resp, &errResp)
	assert.Equal(t, "INSUFFICIENT_FUNDS", errResp.Error.Code)
}

func TestLobbyLeave(t *testing.T) {
	env := testutil.NewTestEnv(t)
	gameID := env.SeedGame(gameSecret)
	contractID := env.SeedContract(gameID, 100, 500, 2, 4, 300)

	aliceID, aliceToken := env.ProvisionPlayer("idp|alice", "alice")
	env.FundUser(aliceID, 1000)

	resp := env.POST("/v1/lobby/join", map[string]interface{}{"contractId": contractID}, aliceToken)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.POST("/v1/lobby/leave", nil, aliceToken)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Leaving again: no lobby membership.
	resp = env.POST("/v1/lobby/leave", nil, aliceToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLobbyEventStreamDeliversJoin(t *testing.T) {
	env := testutil.NewTestEnv(t)
	gameID := env.SeedGame(gameSecret)
	contractID := env.SeedContract(gameID, 100, 500, 2, 4, 300)

	aliceID, aliceToken := env.ProvisionPlayer("idp|alice", "alice")
	bobID, bobToken := env.ProvisionPlayer("idp|bob", "bob")
	env.FundUser(aliceID, 1000)
	env.FundUser(bobID, 1000)

	resp := env.POST("/v1/lobby/join", map[string]interface{}{"contractId": contractID}, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var joined joinResponse
	env.DecodeBody(resp, &joined)

	// Open the SSE stream, then have bob join and read the broadcast frame.
	req, err := http.NewRequest("GET", env.Server.URL+"/v1/lobbies/"+joined.LobbyID.String()+"/events", nil)
	require.NoError(t, err)
	client := &http.Client{Timeout: 10 * time.Second}
	stream, err := client.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	resp = env.POST("/v1/lobby/join", map[string]interface{}{"contractId": contractID}, bobToken)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	scanner := bufio.NewScanner(stream.Body)
	deadline := time.After(5 * time.Second)
	frames := make(chan string, 4)
	go func() {
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "data: ") {
				frames <- strings.TrimPrefix(line, "data: ")
			}
		}
	}()

	select {
	case frame := <-frames:
		assert.Contains(t, frame, "player_joined")
	case <-deadline:
		t.Fatal("no event frame received on the stream")
	}
}

func TestLobbyStatusUnknownLobby(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.GET("/v1/lobbies/" + uuid.NewString() + "/status")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSweeperReleasesStrandedLobbyMembers(t *testing.T) {
	env := testutil.NewTestEnv(t)
	gameID := env.SeedGame(gameSecret)
	contractID := env.SeedContract(gameID, 100, 500, 2, 2, 300)

	aliceID, aliceToken := env.ProvisionPlayer("idp|alice", "alice")
	bobID, bobToken := env.ProvisionPlayer("idp|bob", "bob")
	env.FundUser(aliceID, 1000)
	env.FundUser(bobID, 1000)

	resp := env.POST("/v1/lobby/join", map[string]interface{}{"contractId": contractID}, aliceToken)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.POST("/v1/lobby/join", map[string]interface{}{"contractId": contractID}, bobToken)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	exec := executeSession(t, env, gameID, contractID, "idp|alice", "idp|bob")

	// While the game runs, members are pinned to the lobby.
	resp = env.POST("/v1/lobby/leave", nil, aliceToken)
	resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	env.ExpireSessionNow(exec.SessionID)
	env.App.Sweeper.Sweep(context.Background())

	// The sweep closed the lobby: membership is gone and re-joining works.
	resp = env.POST("/v1/lobby/leave", nil, aliceToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.POST("/v1/lobby/join", map[string]interface{}{"contractId": contractID}, bobToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
