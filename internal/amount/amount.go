package amount

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point scale of LP and reward tokens.
const Decimals = 18

func fromBase(value *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(value, -int32(decimals))
}

// Format renders base units as an exact decimal string with trailing zeros trimmed.
func Format(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return fromBase(value, decimals).String()
}

// Float converts base units into a display value.
func Float(value *big.Int, decimals uint8) float64 {
	if value == nil {
		return 0
	}
	f, _ := fromBase(value, decimals).Float64()
	return f
}

// Parse converts a user-typed decimal string into base units. Only plain
// digits with an optional fractional part are accepted.
func Parse(input string, decimals uint8) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(input, "-") {
		return nil, fmt.Errorf("negative amount: %s", input)
	}
	input = strings.TrimPrefix(input, "+")

	whole, frac, _ := strings.Cut(input, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("too many decimal places: %s", input)
	}

	if whole == "" {
		whole = "0"
	}
	canonical := whole
	if frac != "" {
		canonical += "." + frac
	}
	value, err := decimal.NewFromString(canonical)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %s: %w", input, err)
	}
	return value.Shift(int32(decimals)).BigInt(), nil
}

func isDigits(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
