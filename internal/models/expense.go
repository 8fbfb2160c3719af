package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const MinDescriptionLength = 3

// PaymentMethod values accepted for an expense. Empty means unspecified.
var PaymentMethods = []string{"cash", "card", "transfer", "check", "other"}

// Expense is a single spend event attributed to a user, budget and category.
type Expense struct {
	Base
	UserID        string          `gorm:"type:uuid;not null;index" json:"user_id"`
	BudgetID      string          `gorm:"type:uuid;not null;index" json:"budget_id"`
	Category      Category        `gorm:"type:varchar(20);not null;index" json:"category"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description   string          `gorm:"type:varchar(255);not null" json:"description"`
	PaymentMethod string          `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	Location      string          `gorm:"type:varchar(255)" json:"location,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	ExpenseDate   time.Time       `gorm:"not null;index" json:"expense_date"`
}

// Validate checks identifiers, category, amount (positive, at most two
// decimal places) and description in that order and returns the first failure.
func (e *Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return invalid("user_id", "user id is required")
	}
	if strings.TrimSpace(e.BudgetID) == "" {
		return invalid("budget_id", "budget id is required")
	}
	if e.Category == "" {
		return invalid("category", "category is required")
	}
	if !e.Category.Valid() {
		return invalid("category", "category must be one of leisure, essentials or savings")
	}
	if !e.Amount.IsPositive() {
		return invalid("amount", "amount must be greater than 0")
	}
	if !hasCents(e.Amount) {
		return invalid("amount", "amount cannot have more than 2 decimal places")
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		return invalid("description", "description is required")
	}
	if len([]rune(desc)) < MinDescriptionLength {
		return invalid("description", "description must be at least 3 characters")
	}
	return nil
}

// ExpenseUpdate carries the fields of a partial update. Nil means unchanged.
type ExpenseUpdate struct {
	Category      *Category
	Amount        *decimal.Decimal
	Description   *string
	PaymentMethod *string
	Location      *string
	Notes         *string
	ExpenseDate   *time.Time
}

// Apply merges u into a copy of e and validates the result.
func (u ExpenseUpdate) Apply(e Expense) (Expense, error) {
	if u.Category != nil {
		e.Category = *u.Category
	}
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.Description != nil {
		e.Description = strings.TrimSpace(*u.Description)
	}
	if u.PaymentMethod != nil {
		e.PaymentMethod = *u.PaymentMethod
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Notes != nil {
		e.Notes = *u.Notes
	}
	if u.ExpenseDate != nil {
		e.ExpenseDate = *u.ExpenseDate
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}
