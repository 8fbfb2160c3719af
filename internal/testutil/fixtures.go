package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"budgetly/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     "Test User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestBudget creates a budget for the month containing month with
// income 2000 split 300 leisure, 1200 essentials and 500 savings.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, month time.Time) *models.Budget {
	t.Helper()
	return CreateTestBudgetWith(t, db, userID, month, "2000", "300", "1200", "500")
}

// CreateTestBudgetWith creates a budget with the given figures.
func CreateTestBudgetWith(t *testing.T, db *gorm.DB, userID string, month time.Time, income, leisure, essentials, savings string) *models.Budget {
	t.Helper()

	budget := models.NewBudget(userID, Dec(income), Dec(leisure), Dec(essentials), Dec(savings), month)
	budget.Version = 1
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestExpense inserts an expense row without touching the budget's
// spent totals.
func CreateTestExpense(t *testing.T, db *gorm.DB, budget *models.Budget, category models.Category, amount, description string) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:      budget.UserID,
		BudgetID:    budget.ID,
		Category:    category,
		Amount:      Dec(amount),
		Description: description,
		ExpenseDate: budget.MonthYear.Add(time.Duration(nextID()) * time.Minute),
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}
