package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"budgetly/internal/models"
	"budgetly/internal/pagination"
	"budgetly/internal/repository"
)

// UserServicer defines the contract for registration and login.
type UserServicer interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// BudgetUpdate holds the allocation fields of a partial budget update.
// Nil fields are left unchanged. Spent totals are never updatable.
type BudgetUpdate struct {
	TotalIncome      *decimal.Decimal
	LeisureBudget    *decimal.Decimal
	EssentialsBudget *decimal.Decimal
	SavingsBudget    *decimal.Decimal
}

// BudgetValidation is the verdict for a stored budget.
type BudgetValidation struct {
	Valid      bool                         `json:"valid"`
	Field      string                       `json:"field,omitempty"`
	Reason     string                       `json:"reason,omitempty"`
	Adjustment *models.AdjustmentSuggestion `json:"adjustment,omitempty"`
}

// BudgetServicer defines the contract of the budget engine.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, income, leisure, essentials, savings decimal.Decimal) (*models.Budget, error)
	GetCurrentBudget(ctx context.Context, userID string) (*models.Budget, error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) (bool, error)
	GetAdjustments(ctx context.Context, userID, budgetID string) (*models.AdjustmentSuggestion, error)
	ValidateBudget(ctx context.Context, userID, budgetID string) (*BudgetValidation, error)

	// AddExpenseAmount applies amount to a stored budget, retrying when a
	// concurrent write wins. Overspend is allowed. Callers check ownership.
	AddExpenseAmount(ctx context.Context, budgetID string, category models.Category, amount decimal.Decimal) (*models.Budget, error)

	// ApplyExpenseAmount adds amount to budget and persists it through tx.
	// It returns the alerts to publish once tx commits.
	ApplyExpenseAmount(ctx context.Context, tx repository.Store, budget *models.Budget, category models.Category, amount decimal.Decimal) ([]models.BudgetAlert, error)
	// AdjustSpent moves spent totals by signed deltas through tx.
	AdjustSpent(ctx context.Context, tx repository.Store, budgetID string, deltas map[models.Category]decimal.Decimal) ([]models.BudgetAlert, error)
	PublishAlerts(ctx context.Context, alerts []models.BudgetAlert)
}

// ExpenseInput carries the fields of a new expense.
type ExpenseInput struct {
	UserID        string
	BudgetID      string
	Category      models.Category
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
	Location      string
	Notes         string
	ExpenseDate   *time.Time
}

// ExpenseQuery holds optional filters for listing a user's expenses.
type ExpenseQuery struct {
	BudgetID string
	Category models.Category
	Search   string
	From     *time.Time
	To       *time.Time
}

// ExpenseSummary aggregates all of a user's expenses.
type ExpenseSummary struct {
	Categories map[models.Category]decimal.Decimal `json:"categories"`
	Total      decimal.Decimal                     `json:"total"`
	Count      int64                               `json:"count"`
	Average    decimal.Decimal                     `json:"average"`
}

// ExpenseServicer defines the contract of the expense engine.
type ExpenseServicer interface {
	CreateExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error)
	GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error)
	GetUserExpenses(ctx context.Context, userID string, query ExpenseQuery, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
	GetBudgetExpenses(ctx context.Context, userID, budgetID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
	GetExpensesByCategory(ctx context.Context, userID string, category models.Category, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
	SearchExpenses(ctx context.Context, userID, search string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
	GetSummary(ctx context.Context, userID string) (*ExpenseSummary, error)
	UpdateExpense(ctx context.Context, userID, expenseID string, update models.ExpenseUpdate) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) (bool, error)
	RecalculateSpent(ctx context.Context, userID, budgetID string) (*models.Budget, error)
}
