package types

import (
	"fmt"
	"strings"
	"unicode"

	sdkmath "cosmossdk.io/math"
)

// TargetPriceDecimals is the fixed number of decimals a raw target price is
// expressed in, i.e. raw 12345 means 1.2345.
const TargetPriceDecimals = 4

var targetPriceScale = sdkmath.NewUint(10_000)

// SplitTargetPrice splits a raw target price into its integer part and the
// remainder in units of 10^-4.
func SplitTargetPrice(raw sdkmath.Uint) (sdkmath.Uint, uint64) {
	return raw.Quo(targetPriceScale), raw.Mod(targetPriceScale).Uint64()
}

// FormatPriceRemainder renders the fractional part of a target price: the
// remainder is padded to 4 digits and trailing zeros are stripped. A zero
// remainder renders as "0".
func FormatPriceRemainder(remainder uint64) string {
	if remainder == 0 {
		return "0"
	}
	return strings.TrimRight(fmt.Sprintf("%04d", remainder), "0")
}

// FormatTargetPrice renders a raw target price for display, e.g. 12340000 ->
// "1234" and 12345 -> "1.2345".
func FormatTargetPrice(raw sdkmath.Uint) string {
	intPart, remainder := SplitTargetPrice(raw)
	if remainder == 0 {
		return intPart.String()
	}
	return intPart.String() + "." + FormatPriceRemainder(remainder)
}

// CanonicalName drops every whitespace rune from an asset display name.
func CanonicalName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}

func VaultDisplayName(assetName, price string) string {
	return fmt.Sprintf("%s at $%s", assetName, price)
}

func VaultSymbol(assetName, price string) string {
	return fmt.Sprintf("%s@%s", assetName, price)
}

// VaultIdentifier derives the deterministic vault identifier
// "<name>-<int>-<frac>" where frac is the 4-digit zero padded remainder.
func VaultIdentifier(assetName string, raw sdkmath.Uint) string {
	intPart, remainder := SplitTargetPrice(raw)
	return strings.ToLower(fmt.Sprintf("%s-%s-%04d", CanonicalName(assetName), intPart, remainder))
}
