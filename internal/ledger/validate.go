package ledger

import (
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of decimal places a statement amount may carry.
	AmountScale = 2
	// MaxDescriptionLength is counted in runes.
	MaxDescriptionLength = 255
)

func validateStatement(amount decimal.Decimal, description string) error {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(AmountScale)) {
		return ErrInvalidAmount
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return ErrInvalidDescription
	}
	return nil
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
