package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validExpense() Expense {
	return Expense{
		UserID:      "user-1",
		BudgetID:    "budget-1",
		Category:    CategoryLeisure,
		Amount:      d("150"),
		Description: "Cinema",
		ExpenseDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestExpenseValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *Expense)
		field  string
		msg    string
	}{
		{"missing_user", func(e *Expense) { e.UserID = "" }, "user_id", "user id is required"},
		{"missing_budget", func(e *Expense) { e.BudgetID = "" }, "budget_id", "budget id is required"},
		{"missing_category", func(e *Expense) { e.Category = "" }, "category", "category is required"},
		{"unknown_category", func(e *Expense) { e.Category = "travel" }, "category", "category must be one of leisure, essentials or savings"},
		{"zero_amount", func(e *Expense) { e.Amount = d("0") }, "amount", "amount must be greater than 0"},
		{"negative_amount", func(e *Expense) { e.Amount = d("-1") }, "amount", "amount must be greater than 0"},
		{"sub_cent_amount", func(e *Expense) { e.Amount = d("0.004") }, "amount", "amount cannot have more than 2 decimal places"},
		{"blank_description", func(e *Expense) { e.Description = "   " }, "description", "description is required"},
		{"short_description", func(e *Expense) { e.Description = " ab " }, "description", "description must be at least 3 characters"},
		{"order_user_before_amount", func(e *Expense) { e.UserID = ""; e.Amount = d("0") }, "user_id", "user id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExpense()
			tt.mutate(&e)
			err := e.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected *ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.msg, ve.Message)
		})
	}

	t.Run("valid", func(t *testing.T) {
		e := validExpense()
		e.Description = "abc"
		assert.NoError(t, e.Validate())
	})

	t.Run("trailing_zeros_beyond_cents_are_accepted", func(t *testing.T) {
		e := validExpense()
		e.Amount = d("12.5000")
		assert.NoError(t, e.Validate())
	})
}

func TestExpenseUpdateApply(t *testing.T) {
	t.Run("merges_only_supplied_fields", func(t *testing.T) {
		e := validExpense()
		amount := d("80")
		notes := "with friends"

		got, err := ExpenseUpdate{Amount: &amount, Notes: &notes}.Apply(e)
		require.NoError(t, err)
		assert.True(t, amount.Equal(got.Amount))
		assert.Equal(t, "with friends", got.Notes)
		assert.Equal(t, "Cinema", got.Description)
		assert.Equal(t, CategoryLeisure, got.Category)
		assert.True(t, d("150").Equal(e.Amount), "the original is not modified")
	})

	t.Run("rejects_invalid_merge", func(t *testing.T) {
		e := validExpense()
		desc := "no"
		_, err := ExpenseUpdate{Description: &desc}.Apply(e)
		assert.Error(t, err)
	})

	t.Run("category_change", func(t *testing.T) {
		e := validExpense()
		c := CategorySavings
		got, err := ExpenseUpdate{Category: &c}.Apply(e)
		require.NoError(t, err)
		assert.Equal(t, CategorySavings, got.Category)
	})
}
