package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseHours parses a decimal hours value as written by the persistence layer
// ("2.0", "0.75"). Empty input is zero; negative values are rejected.
func ParseHours(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse hours %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("parse hours %q: %w", s, ErrNegativeHours)
	}
	return d.InexactFloat64(), nil
}

// RoundHours rounds to two decimal places, the precision logbooks display.
func RoundHours(h float64) float64 {
	return decimal.NewFromFloat(h).Round(2).InexactFloat64()
}

// FormatHours renders hours with one or two decimals ("2.0", "1.25").
func FormatHours(h float64) string {
	d := decimal.NewFromFloat(h).Round(2)
	if d.Equal(d.Round(1)) {
		return d.StringFixed(1)
	}
	return d.StringFixed(2)
}
