package models

import "github.com/shopspring/decimal"

// AdjustmentType names the kind of change an AdjustmentSuggestion proposes.
type AdjustmentType string

const (
	AdjustmentReduction AdjustmentType = "reduction"
	AdjustmentSavings   AdjustmentType = "savings_adjustment"
	AdjustmentBalanced  AdjustmentType = "balanced"
)

// AdjustmentSuggestion is advisory. Suggested values take effect only when
// submitted through an update.
type AdjustmentSuggestion struct {
	Type            AdjustmentType               `json:"type"`
	Reason          string                       `json:"reason"`
	ReductionNeeded *decimal.Decimal             `json:"reduction_needed,omitempty"`
	MaxSavings      *decimal.Decimal             `json:"max_savings,omitempty"`
	Suggestions     map[Category]decimal.Decimal `json:"suggestions"`
}

// ComputeAutoAdjustment proposes allocations that bring b back within its
// income. When the allocations exceed income, each category is reduced in
// proportion to its share of the total, rounded to cents, with any rounding
// residue taken from the largest category. When only savings overshoots
// what is left after essentials, savings is capped. Otherwise the budget is
// balanced and nothing changes.
func ComputeAutoAdjustment(b *Budget) AdjustmentSuggestion {
	total := b.TotalBudget()

	if total.GreaterThan(b.TotalIncome) && total.IsPositive() {
		excess := total.Sub(b.TotalIncome)
		income := decimal.Max(b.TotalIncome, decimal.Zero)

		suggestions := make(map[Category]decimal.Decimal, len(Categories))
		sum := decimal.Zero
		largest := Categories[0]
		for _, c := range Categories {
			planned, _ := b.Planned(c)
			// planned - planned/total*excess == planned*income/total
			s := decimal.Max(planned.Mul(income).DivRound(total, 2), decimal.Zero)
			suggestions[c] = s
			sum = sum.Add(s)
			if s.GreaterThan(suggestions[largest]) {
				largest = c
			}
		}
		if residue := sum.Sub(income); residue.IsPositive() {
			suggestions[largest] = decimal.Max(suggestions[largest].Sub(residue), decimal.Zero)
		}

		return AdjustmentSuggestion{
			Type:            AdjustmentReduction,
			Reason:          "total budget exceeds total income",
			ReductionNeeded: &excess,
			Suggestions:     suggestions,
		}
	}

	available := b.TotalIncome.Sub(b.EssentialsBudget)
	if b.SavingsBudget.GreaterThan(available) {
		maxSavings := decimal.Max(available, decimal.Zero)
		return AdjustmentSuggestion{
			Type:        AdjustmentSavings,
			Reason:      "savings exceed the income left after essentials",
			MaxSavings:  &maxSavings,
			Suggestions: map[Category]decimal.Decimal{CategorySavings: maxSavings},
		}
	}

	return AdjustmentSuggestion{
		Type:        AdjustmentBalanced,
		Reason:      "budget is already balanced",
		Suggestions: map[Category]decimal.Decimal{},
	}
}

// Apply returns a copy of b with the suggested allocations. Spent totals
// are untouched.
func (s AdjustmentSuggestion) Apply(b Budget) Budget {
	for c, v := range s.Suggestions {
		if planned, _, err := b.fields(c); err == nil {
			*planned = v
		}
	}
	return b
}
