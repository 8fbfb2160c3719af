package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func scenarioA() *Budget {
	return NewBudget("user-1", d("2000"), d("300"), d("1200"), d("500"),
		time.Date(2026, 3, 17, 14, 30, 0, 0, time.UTC))
}

func TestMonthStart(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	got := MonthStart(time.Date(2026, 4, 1, 1, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got, "local time 01:00 on the 1st is still March in UTC")
}

func TestBudgetValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *Budget)
		field   string
		wantErr bool
	}{
		{name: "scenario_a_is_valid", mutate: func(b *Budget) {}},
		{name: "scenario_b_total_exceeds_income", mutate: func(b *Budget) { b.SavingsBudget = d("600") }, field: "total_budget", wantErr: true},
		{name: "missing_user", mutate: func(b *Budget) { b.UserID = " " }, field: "user_id", wantErr: true},
		{name: "zero_income", mutate: func(b *Budget) { b.TotalIncome = decimal.Zero }, field: "total_income", wantErr: true},
		{name: "negative_leisure", mutate: func(b *Budget) { b.LeisureBudget = d("-1") }, field: "leisure_budget", wantErr: true},
		{name: "negative_savings", mutate: func(b *Budget) { b.SavingsBudget = d("-0.01") }, field: "savings_budget", wantErr: true},
		{name: "sub_cent_income", mutate: func(b *Budget) { b.TotalIncome = d("3000.001") }, field: "total_income", wantErr: true},
		{name: "sub_cent_essentials", mutate: func(b *Budget) { b.EssentialsBudget = d("1000.005") }, field: "essentials_budget", wantErr: true},
		{name: "all_zero_allocations", mutate: func(b *Budget) {
			b.LeisureBudget, b.EssentialsBudget, b.SavingsBudget = decimal.Zero, decimal.Zero, decimal.Zero
		}},
		{name: "savings_over_available_with_negative_leisure_caught_first", mutate: func(b *Budget) {
			b.LeisureBudget = d("-500")
			b.SavingsBudget = d("1000")
		}, field: "leisure_budget", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := scenarioA()
			tt.mutate(b)
			err := b.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected *ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestBudgetValidate_MessageNamesFigures(t *testing.T) {
	b := scenarioA()
	b.SavingsBudget = d("600")
	err := b.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2100.00")
	assert.Contains(t, err.Error(), "2000.00")
}

func TestBudgetValidate_Idempotent(t *testing.T) {
	b := scenarioA()
	assert.Equal(t, b.Validate(), b.Validate())

	b.SavingsBudget = d("600")
	first, second := b.Validate(), b.Validate()
	assert.Equal(t, first.Error(), second.Error())
}

func TestBudgetAddSpent(t *testing.T) {
	t.Run("rejects_sub_cent_amount", func(t *testing.T) {
		b := scenarioA()
		err := b.AddSpent(CategoryLeisure, d("0.004"))
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "expected *ValidationError, got %v", err)
		assert.Equal(t, "amount", ve.Field)
		assert.True(t, b.LeisureSpent.IsZero())
	})

	t.Run("scenario_c_leisure_150", func(t *testing.T) {
		b := scenarioA()
		require.NoError(t, b.AddSpent(CategoryLeisure, d("150")))

		status, err := b.Status(CategoryLeisure)
		require.NoError(t, err)
		assert.True(t, d("150").Equal(status.Spent))
		assert.True(t, d("150").Equal(status.Remaining))
		assert.Equal(t, 50.0, status.Percentage)
		assert.False(t, status.IsOverBudget)
	})

	t.Run("round_trip_reduces_remaining_by_amount", func(t *testing.T) {
		b := scenarioA()
		require.NoError(t, b.AddSpent(CategoryEssentials, d("99.99")))
		before, _ := b.Status(CategoryEssentials)

		require.NoError(t, b.AddSpent(CategoryEssentials, d("0.37")))
		after, _ := b.Status(CategoryEssentials)

		assert.True(t, before.Spent.Add(d("0.37")).Equal(after.Spent))
		assert.True(t, before.Remaining.Sub(d("0.37")).Equal(after.Remaining))
	})

	t.Run("rejects_non_positive_amount", func(t *testing.T) {
		b := scenarioA()
		assert.Error(t, b.AddSpent(CategoryLeisure, decimal.Zero))
		assert.Error(t, b.AddSpent(CategoryLeisure, d("-5")))
		assert.True(t, b.LeisureSpent.IsZero())
	})

	t.Run("rejects_unknown_category", func(t *testing.T) {
		b := scenarioA()
		err := b.AddSpent(Category("travel"), d("10"))
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "category", ve.Field)
		assert.True(t, b.TotalSpent().IsZero())
	})

	t.Run("overspend_is_permitted_and_flagged", func(t *testing.T) {
		b := scenarioA()
		require.NoError(t, b.AddSpent(CategoryLeisure, d("450")))
		status, _ := b.Status(CategoryLeisure)
		assert.True(t, status.IsOverBudget)
		assert.Equal(t, 150.0, status.Percentage)
		assert.True(t, d("-150").Equal(status.Remaining))
	})
}

func TestBudgetStatus_Boundary(t *testing.T) {
	b := scenarioA()
	require.NoError(t, b.AddSpent(CategoryLeisure, d("300")))
	status, _ := b.Status(CategoryLeisure)
	assert.Equal(t, 100.0, status.Percentage)
	assert.False(t, status.IsOverBudget, "spent equal to budget is not over budget")

	require.NoError(t, b.AddSpent(CategoryLeisure, d("0.01")))
	status, _ = b.Status(CategoryLeisure)
	assert.True(t, status.IsOverBudget)
}

func TestSpentPercentage(t *testing.T) {
	tests := []struct {
		name    string
		spent   string
		planned string
		want    float64
	}{
		{"zero_budget", "50", "0", 0},
		{"one_third", "1", "3", 33.33},
		{"two_thirds_rounds_half_up", "2", "3", 66.67},
		{"exact_half", "150", "300", 50},
		{"over", "330", "300", 110},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpentPercentage(d(tt.spent), d(tt.planned)))
		})
	}
}

func TestBudgetTotals(t *testing.T) {
	b := scenarioA()
	require.NoError(t, b.AddSpent(CategoryLeisure, d("150")))
	require.NoError(t, b.AddSpent(CategoryEssentials, d("1100")))

	assert.True(t, d("2000").Equal(b.TotalBudget()))
	assert.True(t, d("1250").Equal(b.TotalSpent()))
	assert.True(t, d("750").Equal(b.RemainingBalance()))
	assert.False(t, b.IsBudgetOverIncome())
}

func TestBudgetApplySpentDelta(t *testing.T) {
	b := scenarioA()
	require.NoError(t, b.AddSpent(CategorySavings, d("100")))

	require.NoError(t, b.ApplySpentDelta(CategorySavings, d("-40")))
	assert.True(t, d("60").Equal(b.SavingsSpent))

	require.NoError(t, b.ApplySpentDelta(CategorySavings, d("-500")))
	assert.True(t, b.SavingsSpent.IsZero(), "spent is floored at zero")

	assert.Error(t, b.ApplySpentDelta(Category(""), d("1")))
}

func TestBudgetMarshalJSON(t *testing.T) {
	b := scenarioA()
	b.ID = "budget-1"
	require.NoError(t, b.AddSpent(CategoryLeisure, d("150")))

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Equal(t, "budget-1", body["id"])
	assert.Equal(t, "2000", body["total_income"], "money is encoded as a decimal string")
	assert.Equal(t, "1850", body["remaining_balance"])

	categories, ok := body["categories"].(map[string]any)
	require.True(t, ok)
	require.Len(t, categories, 3)

	leisure := categories["leisure"].(map[string]any)
	assert.Equal(t, "150", leisure["spent"])
	assert.Equal(t, "150", leisure["remaining"])
	assert.Equal(t, 50.0, leisure["percentage"])
	assert.Equal(t, false, leisure["is_over_budget"])
}
