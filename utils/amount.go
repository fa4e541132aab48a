package utils

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CleanAmount parses a raw cell into a decimal. It accepts user formatted
// strings like:
//   - "1 234,56 €"
//   - "1.234,56"
//   - "-1234.56"
//
// Only digits, ',', '.' and '-' survive. When both separators are present the
// period is a thousands separator and the comma the decimal separator; a lone
// comma is a decimal separator. Anything unparseable is zero.
func CleanAmount(v any) decimal.Decimal {
	d, _ := ParseAmount(v)
	return d
}

// ParseAmount is CleanAmount that also reports whether a number was found.
func ParseAmount(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return val, true
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero, false
		}
		return *val, true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int32:
		return decimal.NewFromInt32(val), true
	case int64:
		return decimal.NewFromInt(val), true
	case uint:
		return uintAmount(uint64(val)), true
	case uint64:
		return uintAmount(val), true
	case float32:
		return floatAmount(float64(val))
	case float64:
		return floatAmount(val)
	case json.Number:
		return parseAmountString(val.String())
	case string:
		return parseAmountString(val)
	case []byte:
		return parseAmountString(string(val))
	case bool:
		return decimal.Zero, false
	default:
		return decimal.Zero, false
	}
}

// uintAmount goes through big.Int; values above MaxInt64 would wrap as int64.
func uintAmount(u uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

func floatAmount(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func parseAmountString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if strings.Contains(clean, ",") && strings.Contains(clean, ".") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ",", ".")
	}
	if clean == "" || clean == "-" || clean == "." {
		return decimal.Zero, false
	}
	// strconv is stricter than decimal.NewFromString about stray signs.
	if _, err := strconv.ParseFloat(clean, 64); err != nil {
		return decimal.Zero, false
	}
	val, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return val, true
}

// RoundHalfUp rounds to places with ties away from zero.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// AmountsEqual reports whether a and b differ by at most tolerance.
func AmountsEqual(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
