package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// MaxU128Decimals is the largest decimal distance that can be bridged by
// scaling a 128-bit multiplier. Beyond it the value with more decimals is
// treated as negligible.
const MaxU128Decimals = 38

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	ten        = big.NewInt(10)
)

// MaxUint128 returns 2^128-1.
func MaxUint128() sdkmath.Uint {
	return sdkmath.NewUintFromBigInt(maxUint128)
}

// FitsUint128 reports whether v is representable as an unsigned 128-bit integer.
func FitsUint128(v sdkmath.Uint) bool {
	return v.BigInt().Cmp(maxUint128) <= 0
}

// FixedPrice is the exact quantity Multiplier / 10^Decimals. The zero value is
// not usable, build prices with NewFixedPrice or by decoding JSON.
type FixedPrice struct {
	Multiplier sdkmath.Uint `json:"multiplier"`
	Decimals   uint8        `json:"decimals"`
}

func NewFixedPrice(multiplier sdkmath.Uint, decimals uint8) (FixedPrice, error) {
	if !FitsUint128(multiplier) {
		return FixedPrice{}, fmt.Errorf("price multiplier %s overflows 128 bits", multiplier)
	}
	return FixedPrice{Multiplier: multiplier, Decimals: decimals}, nil
}

// UnmarshalJSON rejects a missing multiplier and multipliers above 128 bits.
func (p *FixedPrice) UnmarshalJSON(data []byte) error {
	var raw struct {
		Multiplier *sdkmath.Uint `json:"multiplier"`
		Decimals   uint8         `json:"decimals"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Multiplier == nil {
		return fmt.Errorf("price multiplier is required")
	}
	parsed, err := NewFixedPrice(*raw.Multiplier, raw.Decimals)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MustFixedPrice is NewFixedPrice for small literal multipliers.
func MustFixedPrice(multiplier uint64, decimals uint8) FixedPrice {
	p, err := NewFixedPrice(sdkmath.NewUint(multiplier), decimals)
	if err != nil {
		panic(err)
	}
	return p
}

// Cmp returns -1, 0 or +1 as p is less than, equal to or greater than other.
//
// The operand with fewer decimals is scaled up to the other's precision. When
// the decimal distance exceeds MaxU128Decimals, or the scaled multiplier no
// longer fits 128 bits, the operand with more decimals is less.
func (p FixedPrice) Cmp(other FixedPrice) int {
	if p.Decimals < other.Decimals {
		return -other.Cmp(p)
	}

	diff := p.Decimals - other.Decimals
	if diff > MaxU128Decimals {
		return -1
	}

	scale := new(big.Int).Exp(ten, big.NewInt(int64(diff)), nil)
	scaled := scale.Mul(scale, other.Multiplier.BigInt())
	if scaled.Cmp(maxUint128) > 0 {
		return -1
	}

	return p.Multiplier.BigInt().Cmp(scaled)
}

func (p FixedPrice) Equal(other FixedPrice) bool {
	return p.Cmp(other) == 0
}

func (p FixedPrice) LT(other FixedPrice) bool {
	return p.Cmp(other) < 0
}

func (p FixedPrice) GTE(other FixedPrice) bool {
	return p.Cmp(other) >= 0
}

// IsZero reports whether p is zero or was never built.
func (p FixedPrice) IsZero() bool {
	return p.Multiplier == (sdkmath.Uint{}) || p.Multiplier.IsZero()
}

func (p FixedPrice) String() string {
	return fmt.Sprintf("%s/%d", p.Multiplier, p.Decimals)
}
