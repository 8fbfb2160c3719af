package testutil_test

import (
	"testing"
	"time"

	"budgetly/internal/errors"
	"budgetly/internal/models"
	"budgetly/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	var count int64
	for _, table := range []string{"users", "budgets", "expenses"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have an ID")
	}

	budget := testutil.CreateTestBudget(t, db, user.ID, time.Now())
	if budget.ID == "" || budget.Version != 1 {
		t.Fatalf("unexpected budget fixture: id=%q version=%d", budget.ID, budget.Version)
	}
	testutil.AssertDecimal(t, "2000", budget.TotalIncome, "income")

	expense := testutil.CreateTestExpense(t, db, budget, models.CategoryLeisure, "12.50", "Coffee beans")
	if expense.BudgetID != budget.ID || expense.UserID != user.ID {
		t.Errorf("expense should belong to the budget's user")
	}
}

func TestAssertAppError(t *testing.T) {
	appErr := testutil.AssertAppError(t, errors.ErrBudgetNotFound, "BUDGET_NOT_FOUND")
	if appErr.StatusCode != 404 {
		t.Errorf("expected 404, got %d", appErr.StatusCode)
	}
}
