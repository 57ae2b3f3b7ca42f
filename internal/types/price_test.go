package types

import (
	"encoding/json"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(multiplier uint64, decimals uint8) FixedPrice {
	return MustFixedPrice(multiplier, decimals)
}

func TestFixedPriceCmp(t *testing.T) {
	tests := []struct {
		name     string
		a, b     FixedPrice
		expected int
	}{
		{"same decimals less", p(10, 0), p(11, 0), -1},
		{"same decimals greater", p(11, 0), p(10, 0), 1},
		{"same decimals equal", p(11, 0), p(11, 0), 0},
		{"scaled same decimals less", p(10, 10), p(11, 10), -1},
		{"scaled same decimals equal", p(11, 10), p(11, 10), 0},
		{"different decimals equal", p(100, 10), p(10, 9), 0},
		{"different decimals equal reversed", p(10, 9), p(100, 10), 0},
		{"different decimals greater", p(101, 10), p(10, 9), 1},
		{"different decimals less", p(99, 10), p(10, 9), -1},
		{"fewer decimals greater", p(10, 9), p(99, 10), 1},
		{"decimal overflow clamps to less", p(101, 40), p(10, 0), -1},
		{"decimal overflow clamps to less reversed", p(10, 0), p(101, 40), 1},
		{"zero against zero", p(0, 0), p(0, 38), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Cmp(tt.b))
			assert.Equal(t, -tt.expected, tt.b.Cmp(tt.a), "comparison must be antisymmetric")
		})
	}
}

func TestFixedPriceCmpScaleInvariance(t *testing.T) {
	pairs := [][2]FixedPrice{
		{p(10, 0), p(11, 0)},
		{p(100, 10), p(10, 9)},
		{p(101, 10), p(10, 9)},
		{p(12345, 8), p(1, 4)},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		scaledA := FixedPrice{
			Multiplier: a.Multiplier.MulUint64(1000),
			Decimals:   a.Decimals + 3,
		}
		assert.Equal(t, a.Cmp(b), scaledA.Cmp(b), "%s vs %s", a, b)
	}
}

func TestFixedPriceCmpMultiplierOverflow(t *testing.T) {
	// scaling max u128 by 10 no longer fits, so the operand with more decimals is less
	huge := FixedPrice{Multiplier: MaxUint128(), Decimals: 0}
	small := p(1, 1)
	assert.Equal(t, -1, small.Cmp(huge))
	assert.Equal(t, 1, huge.Cmp(small))

	// at exactly 38 decimals 1 * 10^38 still fits
	assert.Equal(t, 0, p(1, 0).Cmp(FixedPrice{
		Multiplier: sdkmath.NewUintFromString("100000000000000000000000000000000000000"),
		Decimals:   38,
	}))
}

func TestNewFixedPriceRejectsOverflow(t *testing.T) {
	_, err := NewFixedPrice(MaxUint128().AddUint64(1), 0)
	require.Error(t, err)

	price, err := NewFixedPrice(MaxUint128(), 2)
	require.NoError(t, err)
	assert.True(t, price.Multiplier.Equal(MaxUint128()))
}

func TestFixedPriceJSON(t *testing.T) {
	var price FixedPrice
	err := json.Unmarshal([]byte(`{"multiplier":"340282366920938463463374607431768211455","decimals":12}`), &price)
	require.NoError(t, err)
	assert.True(t, price.Multiplier.Equal(MaxUint128()))
	assert.Equal(t, uint8(12), price.Decimals)

	raw, err := json.Marshal(p(4200, 6))
	require.NoError(t, err)
	assert.JSONEq(t, `{"multiplier":"4200","decimals":6}`, string(raw))
}

func TestFixedPriceJSONRejectsMissingMultiplier(t *testing.T) {
	var price FixedPrice
	assert.Error(t, json.Unmarshal([]byte(`{"decimals":4}`), &price))
	assert.Error(t, json.Unmarshal([]byte(`{"multiplier":"340282366920938463463374607431768211456","decimals":4}`), &price))
	assert.True(t, FixedPrice{}.IsZero())
	assert.True(t, MustFixedPrice(0, 3).IsZero())
	assert.False(t, MustFixedPrice(1, 3).IsZero())
}
