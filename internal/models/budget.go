package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Budget is a user's planned allocation and running spent totals for one
// calendar month. There is at most one Budget per user and month.
type Budget struct {
	Base
	UserID           string          `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_user_month,priority:1" json:"user_id"`
	TotalIncome      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_income"`
	LeisureBudget    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"leisure_budget"`
	EssentialsBudget decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"essentials_budget"`
	SavingsBudget    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"savings_budget"`
	LeisureSpent     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"leisure_spent"`
	EssentialsSpent  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"essentials_spent"`
	SavingsSpent     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"savings_spent"`
	MonthYear        time.Time       `gorm:"not null;uniqueIndex:idx_budgets_user_month,priority:2" json:"month_year"`
	Version          int64           `gorm:"not null" json:"version"`
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NewBudget builds a candidate budget for the month containing now, with
// nothing spent yet. The result is not validated.
func NewBudget(userID string, income, leisure, essentials, savings decimal.Decimal, now time.Time) *Budget {
	return &Budget{
		UserID:           userID,
		TotalIncome:      income,
		LeisureBudget:    leisure,
		EssentialsBudget: essentials,
		SavingsBudget:    savings,
		LeisureSpent:     decimal.Zero,
		EssentialsSpent:  decimal.Zero,
		SavingsSpent:     decimal.Zero,
		MonthYear:        MonthStart(now),
	}
}

func (b *Budget) fields(c Category) (planned, spent *decimal.Decimal, err error) {
	switch c {
	case CategoryLeisure:
		return &b.LeisureBudget, &b.LeisureSpent, nil
	case CategoryEssentials:
		return &b.EssentialsBudget, &b.EssentialsSpent, nil
	case CategorySavings:
		return &b.SavingsBudget, &b.SavingsSpent, nil
	}
	return nil, nil, invalid("category", fmt.Sprintf("unknown category %q", c))
}

// Planned returns the allocation for c.
func (b *Budget) Planned(c Category) (decimal.Decimal, error) {
	planned, _, err := b.fields(c)
	if err != nil {
		return decimal.Zero, err
	}
	return *planned, nil
}

// Spent returns the running spent total for c.
func (b *Budget) Spent(c Category) (decimal.Decimal, error) {
	_, spent, err := b.fields(c)
	if err != nil {
		return decimal.Zero, err
	}
	return *spent, nil
}

// CategoryStatus is the derived state of one category.
type CategoryStatus struct {
	Budget       decimal.Decimal `json:"budget"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Percentage   float64         `json:"percentage"`
	IsOverBudget bool            `json:"is_over_budget"`
}

// Status computes remaining, percentage and the over-budget flag for c.
func (b *Budget) Status(c Category) (CategoryStatus, error) {
	planned, spent, err := b.fields(c)
	if err != nil {
		return CategoryStatus{}, err
	}
	return CategoryStatus{
		Budget:       *planned,
		Spent:        *spent,
		Remaining:    planned.Sub(*spent),
		Percentage:   SpentPercentage(*spent, *planned),
		IsOverBudget: spent.GreaterThan(*planned),
	}, nil
}

// SpentPercentage returns spent/planned*100 with the ratio rounded half-up
// to 4 places. A zero allocation yields 0. Overspend is not clamped.
func SpentPercentage(spent, planned decimal.Decimal) float64 {
	if planned.IsZero() {
		return 0
	}
	return spent.DivRound(planned, 4).Mul(hundred).InexactFloat64()
}

func (b *Budget) TotalBudget() decimal.Decimal {
	return b.LeisureBudget.Add(b.EssentialsBudget).Add(b.SavingsBudget)
}

func (b *Budget) TotalSpent() decimal.Decimal {
	return b.LeisureSpent.Add(b.EssentialsSpent).Add(b.SavingsSpent)
}

// RemainingBalance is income minus everything spent so far.
func (b *Budget) RemainingBalance() decimal.Decimal {
	return b.TotalIncome.Sub(b.TotalSpent())
}

func (b *Budget) IsBudgetOverIncome() bool {
	return b.TotalBudget().GreaterThan(b.TotalIncome)
}

// Validate returns the first violated budget rule, checked in order:
// user, income, non-negative allocations, total against income, then
// savings against what is left after essentials.
func (b *Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return invalid("user_id", "user id is required")
	}
	if !b.TotalIncome.IsPositive() {
		return invalid("total_income", "total income must be greater than 0")
	}
	if !hasCents(b.TotalIncome) {
		return invalid("total_income", "total income cannot have more than 2 decimal places")
	}
	for _, c := range Categories {
		planned, spent, _ := b.fields(c)
		if planned.IsNegative() {
			return invalid(string(c)+"_budget", fmt.Sprintf("%s budget cannot be negative", c))
		}
		if !hasCents(*planned) {
			return invalid(string(c)+"_budget", fmt.Sprintf("%s budget cannot have more than 2 decimal places", c))
		}
		if spent.IsNegative() {
			return invalid(string(c)+"_spent", fmt.Sprintf("%s spent cannot be negative", c))
		}
	}
	if total := b.TotalBudget(); total.GreaterThan(b.TotalIncome) {
		return invalid("total_budget", fmt.Sprintf(
			"total budget %s exceeds total income %s", total.StringFixed(2), b.TotalIncome.StringFixed(2)))
	}
	if available := b.TotalIncome.Sub(b.EssentialsBudget); b.SavingsBudget.GreaterThan(available) {
		return invalid("savings_budget", fmt.Sprintf(
			"savings budget %s exceeds income left after essentials %s", b.SavingsBudget.StringFixed(2), available.StringFixed(2)))
	}
	return nil
}

// AddSpent increments the spent total of c. Overspend is allowed here and
// only shows up through Status.
func (b *Budget) AddSpent(c Category, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", "amount must be greater than 0")
	}
	if !hasCents(amount) {
		return invalid("amount", "amount cannot have more than 2 decimal places")
	}
	_, spent, err := b.fields(c)
	if err != nil {
		return err
	}
	*spent = spent.Add(amount)
	return nil
}

// ApplySpentDelta moves the spent total of c by delta, which may be
// negative. The result is floored at zero.
func (b *Budget) ApplySpentDelta(c Category, delta decimal.Decimal) error {
	_, spent, err := b.fields(c)
	if err != nil {
		return err
	}
	next := spent.Add(delta)
	if next.IsNegative() {
		next = decimal.Zero
	}
	*spent = next
	return nil
}

// ResetSpent replaces all three spent totals. Missing categories become 0.
func (b *Budget) ResetSpent(totals map[Category]decimal.Decimal) {
	for _, c := range Categories {
		_, spent, _ := b.fields(c)
		*spent = totals[c]
	}
}

// BudgetView is the JSON form of a Budget with its derived figures.
type BudgetView struct {
	ID                 string                      `json:"id"`
	UserID             string                      `json:"user_id"`
	TotalIncome        decimal.Decimal             `json:"total_income"`
	LeisureBudget      decimal.Decimal             `json:"leisure_budget"`
	EssentialsBudget   decimal.Decimal             `json:"essentials_budget"`
	SavingsBudget      decimal.Decimal             `json:"savings_budget"`
	LeisureSpent       decimal.Decimal             `json:"leisure_spent"`
	EssentialsSpent    decimal.Decimal             `json:"essentials_spent"`
	SavingsSpent       decimal.Decimal             `json:"savings_spent"`
	MonthYear          time.Time                   `json:"month_year"`
	Version            int64                       `json:"version"`
	Categories         map[Category]CategoryStatus `json:"categories"`
	TotalBudget        decimal.Decimal             `json:"total_budget"`
	TotalSpent         decimal.Decimal             `json:"total_spent"`
	RemainingBalance   decimal.Decimal             `json:"remaining_balance"`
	IsBudgetOverIncome bool                        `json:"is_budget_over_income"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

func (b *Budget) View() BudgetView {
	categories := make(map[Category]CategoryStatus, len(Categories))
	for _, c := range Categories {
		status, _ := b.Status(c)
		categories[c] = status
	}
	return BudgetView{
		ID:                 b.ID,
		UserID:             b.UserID,
		TotalIncome:        b.TotalIncome,
		LeisureBudget:      b.LeisureBudget,
		EssentialsBudget:   b.EssentialsBudget,
		SavingsBudget:      b.SavingsBudget,
		LeisureSpent:       b.LeisureSpent,
		EssentialsSpent:    b.EssentialsSpent,
		SavingsSpent:       b.SavingsSpent,
		MonthYear:          b.MonthYear,
		Version:            b.Version,
		Categories:         categories,
		TotalBudget:        b.TotalBudget(),
		TotalSpent:         b.TotalSpent(),
		RemainingBalance:   b.RemainingBalance(),
		IsBudgetOverIncome: b.IsBudgetOverIncome(),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// MarshalJSON renders the budget through View.
func (b Budget) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.View())
}
