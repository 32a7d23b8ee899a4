package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a gateway-reported decimal amount string (e.g. "1000"
// or "1000.50") into cents. Amount comparison against stored orders is exact
// cents equality, so this is the single parsing point for reported amounts.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount string")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	// ParseFloat accepts "NaN" and "Inf"; a gateway never reports those and
	// neither survives the cents conversion.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("amount %q is not a finite number", s)
	}
	if f > math.MaxInt64/100 || f < math.MinInt64/100 {
		return 0, fmt.Errorf("amount %q overflows cents", s)
	}

	return int64(math.Round(f * 100)), nil
}

// FormatAmount renders cents as the decimal string the gateway expects.
// Whole-unit amounts are rendered without a fractional part ("1000", not
// "1000.00") because the signature is computed over the exact byte string.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := cents / 100
	frac := cents % 100
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	return fmt.Sprintf("%s%d.%02d", sign, whole, frac)
}
