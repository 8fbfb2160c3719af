package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places stored for every amount.
const MoneyScale = 2

// ValidationError reports the first domain rule a Budget or Expense violates.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// hasCents reports whether d fits in MoneyScale decimal places.
func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}
