package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		a, err := ParseAmount("12345")
		require.NoError(t, err)
		assert.Equal(t, "12345", a.String())
	})

	t.Run("beyond int64", func(t *testing.T) {
		huge := "123456789012345678901234567890"
		a, err := ParseAmount(huge)
		require.NoError(t, err)
		assert.Equal(t, huge, a.String())
	})

	t.Run("rejected inputs", func(t *testing.T) {
		for _, s := range []string{"", "-5", "+5", "1.5", "1e3", " 1", "abc", "0x10"} {
			_, err := ParseAmount(s)
			assert.Error(t, err, "input %q", s)
		}
	})
}

func TestAmountZeroValueIsUsable(t *testing.T) {
	var a Amount
	assert.True(t, a.IsZero())
	assert.False(t, a.IsPositive())
	assert.Equal(t, "0", a.String())
	assert.True(t, a.Equal(Zero))
	assert.Equal(t, "5", a.Add(NewAmount(5)).String())
}

func TestAmountSubUnderflow(t *testing.T) {
	_, err := NewAmount(3).Sub(NewAmount(5))
	assert.Error(t, err)

	r, err := NewAmount(5).Sub(NewAmount(5))
	require.NoError(t, err)
	assert.True(t, r.IsZero())
}

func TestAmountArithmeticDoesNotAlias(t *testing.T) {
	a := NewAmount(10)
	b := a.Add(NewAmount(1))
	assert.Equal(t, "10", a.String())
	assert.Equal(t, "11", b.String())

	c := a.MulInt(3)
	assert.Equal(t, "10", a.String())
	assert.Equal(t, "30", c.String())
}

func TestAmountJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		V Amount `json:"v"`
	}

	data, err := json.Marshal(wrapper{V: NewAmount(987)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"987"}`, string(data))

	var out wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"v":"987"}`), &out))
	assert.Equal(t, "987", out.V.String())

	// Bare numbers and negatives are rejected.
	assert.Error(t, json.Unmarshal([]byte(`{"v":987}`), &out))
	assert.Error(t, json.Unmarshal([]byte(`{"v":"-1"}`), &out))
}

func TestNewAmountPanicsOnNegative(t *testing.T) {
	assert.Panics(t, func() { NewAmount(-1) })
}
