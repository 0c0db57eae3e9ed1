package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is a fixed-point decimal amount stored as an integer number of
// hundredths (cents), avoiding binary-float rounding error in financial
// sums. Negative balances are represented with Cents < 0; debit/credit
// amounts are always non-negative per StandardizedTransaction's invariant.
type Money int64

// ParseRupiah parses Indonesian locale-formatted numbers such as
// "1.000,00" (thousands separator '.', decimal separator ',') into Money.
// An empty or dash-only string parses as zero, matching common bank
// statement renderings of empty cells.
func ParseRupiah(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, nil
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rupiah amount %q: %w", s, err)
	}
	cents := int64(f*100 + 0.5)
	if negative {
		cents = -cents
	}
	return Money(cents), nil
}

// String renders the amount in Indonesian locale format, e.g. "1.000,00".
func (m Money) String() string {
	neg := m < 0
	v := int64(m)
	if neg {
		v = -v
	}
	whole := v / 100
	frac := v % 100

	digits := strconv.FormatInt(whole, 10)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%s,%02d", sign, grouped.String(), frac)
}

// Float64 returns the amount as a float, for use only in display/export
// contexts that require it (e.g. spreadsheet numeric cells); all comparisons
// and sums must use the integer Cents value.
func (m Money) Float64() float64 {
	return float64(m) / 100
}
