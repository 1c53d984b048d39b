// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals end to end; this file turns the textual
// forms found on card statements and forms into decimals.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a statement amount into a decimal.
//
// It accepts dot (12.34) and comma (12,34) decimal separators. When both are
// present the last one is the decimal separator and the other is treated as a
// thousands separator, so "23.118,16" and "23,118.16" are equal. A trailing
// minus ("100-") marks a negative amount, as bonuses are printed on statements.
//
// Examples:
//	ParseAmount("12.34")     -> 12.34
//	ParseAmount("23.118,16") -> 23118.16
//	ParseAmount("100-")      -> -100
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	neg := false
	if strings.HasSuffix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
	} else if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimPrefix(s, "-")
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	if s == "" || strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
