package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_AllowsByDefault(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	res := cb.Check(context.Background(), "game-a")
	assert.True(t, res.Allowed)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.RecordFailure("game-a")
	cb.RecordFailure("game-a")
	assert.True(t, cb.Check(context.Background(), "game-a").Allowed)

	cb.RecordFailure("game-a")
	res := cb.Check(context.Background(), "game-a")
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "circuit open")
}

func TestCircuitBreaker_IsolatesGames(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)

	cb.RecordFailure("game-a")
	assert.False(t, cb.Check(context.Background(), "game-a").Allowed)
	assert.True(t, cb.Check(context.Background(), "game-b").Allowed)
}

func TestCircuitBreaker_HalfOpenProbeThenClose(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	cb.RecordFailure("game-a")
	assert.False(t, cb.Check(context.Background(), "game-a").Allowed)

	time.Sleep(20 * time.Millisecond)

	// First probe after the reset timeout goes through.
	assert.True(t, cb.Check(context.Background(), "game-a").Allowed)

	cb.RecordSuccess("game-a")
	assert.True(t, cb.Check(context.Background(), "game-a").Allowed)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	cb.RecordFailure("game-a")
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Check(context.Background(), "game-a").Allowed)

	cb.RecordFailure("game-a")
	assert.False(t, cb.Check(context.Background(), "game-a").Allowed)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)

	cb.RecordFailure("game-a")
	cb.RecordSuccess("game-a")
	cb.RecordFailure("game-a")

	assert.True(t, cb.Check(context.Background(), "game-a").Allowed)
}
