// Package repository persists budgets, expenses and users behind small
// interfaces so the engines never touch a connection directly.
package repository

import (
	"context"
	"errors"
	"time"

	"budgetly/internal/models"
	"budgetly/internal/pagination"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrStale means the row changed since it was read.
	ErrStale = errors.New("stale record version")
)

type BudgetRepository interface {
	// Create inserts b with version 1.
	Create(ctx context.Context, b *models.Budget) error
	FindByID(ctx context.Context, id string) (*models.Budget, error)
	FindByUserAndMonth(ctx context.Context, userID string, month time.Time) (*models.Budget, error)
	// ListByUser returns one page of the user's budgets, newest month first,
	// and the total count.
	ListByUser(ctx context.Context, userID string, page pagination.PageRequest) ([]models.Budget, int64, error)
	// Update writes b only if its version still matches the stored row and
	// bumps the version on success.
	Update(ctx context.Context, b *models.Budget) error
	Delete(ctx context.Context, id string) (bool, error)
}

// ExpenseFilter narrows expense queries. Zero fields are ignored.
type ExpenseFilter struct {
	UserID   string
	BudgetID string
	Category models.Category
	// Query matches the description as a case-insensitive substring.
	Query string
	From  *time.Time
	To    *time.Time
}

type ExpenseRepository interface {
	Create(ctx context.Context, e *models.Expense) error
	FindByID(ctx context.Context, id string) (*models.Expense, error)
	Update(ctx context.Context, e *models.Expense) error
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByBudget(ctx context.Context, budgetID string) (int64, error)
	// List returns one page ordered by expense date, newest first.
	List(ctx context.Context, filter ExpenseFilter, page pagination.PageRequest) ([]models.Expense, int64, error)
	ListAll(ctx context.Context, filter ExpenseFilter) ([]models.Expense, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store groups the repositories over one connection or transaction.
type Store interface {
	Budgets() BudgetRepository
	Expenses() ExpenseRepository
	Users() UserRepository
	// WithinTransaction runs fn against a Store bound to a single
	// transaction, committing when fn returns nil.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}
