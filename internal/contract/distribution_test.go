package contract

import (
	"testing"

	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformFee(t *testing.T) {
	tests := []struct {
		name string
		pot  int64
		bps  int32
		want string
	}{
		{"five percent of 200", 200, 500, "10"},
		{"zero fee", 1000, 0, "0"},
		{"full fee", 1000, 10000, "1000"},
		{"rounds down", 999, 500, "49"},
		{"tiny pot rounds to zero", 1, 500, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee := PlatformFee(domain.NewAmount(tt.pot), tt.bps)
			assert.Equal(t, tt.want, fee.String())
		})
	}
}

func TestSplitPrize(t *testing.T) {
	tests := []struct {
		name  string
		pool  int64
		n     int
		want  []string
	}{
		{"even three-way", 300, 3, []string{"100", "100", "100"}},
		{"even four-way", 1000, 4, []string{"250", "250", "250", "250"}},
		{"remainder to first winners", 1000, 3, []string{"334", "333", "333"}},
		{"single winner", 190, 1, []string{"190"}},
		{"pool smaller than winners", 2, 3, []string{"1", "1", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares := SplitPrize(domain.NewAmount(tt.pool), tt.n)
			got := make([]string, len(shares))
			total := domain.Zero
			for i, s := range shares {
				got[i] = s.String()
				total = total.Add(s)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, domain.NewAmount(tt.pool).String(), total.String(), "shares must sum to the pool")
		})
	}
}

func settledSession(entryFee int64, playerIDs ...uuid.UUID) *domain.GameSession {
	s := &domain.GameSession{
		ID:       uuid.New(),
		Status:   domain.SessionActive,
		TotalPot: domain.NewAmount(entryFee * int64(len(playerIDs))),
	}
	for _, id := range playerIDs {
		s.Players = append(s.Players, domain.SessionPlayer{
			UserID:       id,
			AmountLocked: domain.NewAmount(entryFee),
		})
	}
	return s
}

func TestComputeDistribution_DefaultEvenSplit(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	session := settledSession(100, a, b, c)
	contract := &domain.Contract{PlatformFeeBps: 500}

	dist, err := ComputeDistribution(session, contract, []domain.PlayerResult{
		{PlayerID: a, IsWinner: true},
		{PlayerID: b, IsWinner: true},
		{PlayerID: c, IsWinner: false},
	})
	require.NoError(t, err)

	// pot 300, fee 15, pool 285 → 143 + 142.
	assert.Equal(t, "15", dist.PlatformFee.String())
	assert.Equal(t, "285", dist.PrizePool.String())
	require.Len(t, dist.Winners, 2)
	assert.Equal(t, a, dist.Winners[0].UserID)
	assert.Equal(t, "143", dist.Winners[0].Amount.String())
	assert.Equal(t, "142", dist.Winners[1].Amount.String())
}

func TestComputeDistribution_ExplicitAmounts(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	session := settledSession(100, a, b)
	contract := &domain.Contract{PlatformFeeBps: 0}

	w1 := domain.NewAmount(150)
	w2 := domain.NewAmount(50)
	dist, err := ComputeDistribution(session, contract, []domain.PlayerResult{
		{PlayerID: a, IsWinner: true, WinAmount: &w1},
		{PlayerID: b, IsWinner: true, WinAmount: &w2},
	})
	require.NoError(t, err)
	assert.Equal(t, "150", dist.Winners[0].Amount.String())
	assert.Equal(t, "50", dist.Winners[1].Amount.String())
}

func TestComputeDistribution_ExplicitSumMismatch(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	session := settledSession(100, a, b)
	contract := &domain.Contract{PlatformFeeBps: 0}

	w1 := domain.NewAmount(100)
	w2 := domain.NewAmount(50)
	_, err := ComputeDistribution(session, contract, []domain.PlayerResult{
		{PlayerID: a, IsWinner: true, WinAmount: &w1},
		{PlayerID: b, IsWinner: true, WinAmount: &w2},
	})
	requireValidationError(t, err)
}

func TestComputeDistribution_MixedExplicitRejected(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	session := settledSession(100, a, b)
	contract := &domain.Contract{PlatformFeeBps: 0}

	w1 := domain.NewAmount(200)
	_, err := ComputeDistribution(session, contract, []domain.PlayerResult{
		{PlayerID: a, IsWinner: true, WinAmount: &w1},
		{PlayerID: b, IsWinner: true},
	})
	requireValidationError(t, err)
}

func TestComputeDistribution_NoWinner(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	session := settledSession(100, a, b)
	contract := &domain.Contract{PlatformFeeBps: 0}

	_, err := ComputeDistribution(session, contract, []domain.PlayerResult{
		{PlayerID: a}, {PlayerID: b},
	})
	requireValidationError(t, err)
}

func TestComputeDistribution_ResultSetMustMatchPlayers(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	session := settledSession(100, a, b)
	contract := &domain.Contract{PlatformFeeBps: 0}

	t.Run("omission", func(t *testing.T) {
		_, err := ComputeDistribution(session, contract, []domain.PlayerResult{
			{PlayerID: a, IsWinner: true},
		})
		requireValidationError(t, err)
	})

	t.Run("stranger", func(t *testing.T) {
		_, err := ComputeDistribution(session, contract, []domain.PlayerResult{
			{PlayerID: a, IsWinner: true},
			{PlayerID: uuid.New()},
		})
		requireValidationError(t, err)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := ComputeDistribution(session, contract, []domain.PlayerResult{
			{PlayerID: a, IsWinner: true},
			{PlayerID: a},
		})
		requireValidationError(t, err)
	})
}

func TestComputeDistribution_NonWinnerWithAmountRejected(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	session := settledSession(100, a, b)
	contract := &domain.Contract{PlatformFeeBps: 0}

	w := domain.NewAmount(10)
	_, err := ComputeDistribution(session, contract, []domain.PlayerResult{
		{PlayerID: a, IsWinner: true},
		{PlayerID: b, WinAmount: &w},
	})
	requireValidationError(t, err)
}

func requireValidationError(t *testing.T, err error) {
	t.Helper()
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}
