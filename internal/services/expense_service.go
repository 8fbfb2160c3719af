package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "budgetly/internal/errors"
	"budgetly/internal/logger"
	"budgetly/internal/models"
	"budgetly/internal/pagination"
	"budgetly/internal/repository"
)

// expenseService handles expense-related business logic.
type expenseService struct {
	store     repository.Store
	budgets   BudgetServicer
	reconcile bool
	now       func() time.Time
	log       *zap.SugaredLogger
}

// ExpenseOption customizes an expense service.
type ExpenseOption func(*expenseService)

// WithReconciliation makes updates and deletes move the owning budget's
// spent totals by the difference they introduce.
func WithReconciliation(enabled bool) ExpenseOption {
	return func(s *expenseService) { s.reconcile = enabled }
}

// WithExpenseClock sets the clock used for default expense dates.
func WithExpenseClock(now func() time.Time) ExpenseOption {
	return func(s *expenseService) { s.now = now }
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(store repository.Store, budgets BudgetServicer, opts ...ExpenseOption) ExpenseServicer {
	s := &expenseService{
		store:   store,
		budgets: budgets,
		now:     time.Now,
		log:     logger.Named("expense"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateExpense validates the expense, checks it against the user's current
// budget and then stores it and applies its amount in one transaction.
// Expenses that would take a category over its allocation are rejected.
func (s *expenseService) CreateExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	date := s.now()
	if in.ExpenseDate != nil {
		date = *in.ExpenseDate
	}

	expense := &models.Expense{
		UserID:        in.UserID,
		BudgetID:      in.BudgetID,
		Category:      in.Category,
		Amount:        in.Amount,
		Description:   strings.TrimSpace(in.Description),
		PaymentMethod: in.PaymentMethod,
		Location:      in.Location,
		Notes:         in.Notes,
		ExpenseDate:   date.UTC(),
	}
	if err := expense.Validate(); err != nil {
		return nil, validationError(err)
	}

	budget, err := s.budgets.GetCurrentBudget(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if budget.ID != in.BudgetID {
		return nil, apperrors.ErrBudgetMismatch
	}

	status, err := budget.Status(expense.Category)
	if err != nil {
		return nil, validationError(err)
	}
	if newTotal := status.Spent.Add(expense.Amount); newTotal.GreaterThan(status.Budget) {
		overage := newTotal.Sub(status.Budget)
		return nil, apperrors.WithDetails(apperrors.ErrOverspendRejected,
			fmt.Sprintf("This expense would exceed the %s budget by %s", expense.Category, overage.StringFixed(2)),
			map[string]any{
				"category":  expense.Category,
				"overage":   overage.StringFixed(2),
				"remaining": status.Remaining.StringFixed(2),
			})
	}

	var alerts []models.BudgetAlert
	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Expenses().Create(ctx, expense); err != nil {
			return err
		}
		var err error
		alerts, err = s.budgets.ApplyExpenseAmount(ctx, tx, budget, expense.Category, expense.Amount)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, storeError(err)
		}
		s.log.Errorw("Expense was not applied to its budget", "budget_id", budget.ID, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrPartialApply, err)
	}

	s.log.Infow("Expense created",
		"expense_id", expense.ID,
		"budget_id", budget.ID,
		"category", expense.Category,
		"amount", expense.Amount.String(),
	)
	s.budgets.PublishAlerts(ctx, alerts)
	return expense, nil
}

// GetExpenseByID returns an expense owned by the user.
func (s *expenseService) GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	return s.loadOwned(ctx, s.store, userID, expenseID)
}

func (s *expenseService) loadOwned(ctx context.Context, store repository.Store, userID, expenseID string) (*models.Expense, error) {
	expense, err := store.Expenses().FindByID(ctx, expenseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if expense.UserID != userID {
		return nil, apperrors.ErrExpenseNotFound
	}
	return expense, nil
}

// GetUserExpenses returns the user's expenses, newest first.
func (s *expenseService) GetUserExpenses(
	ctx context.Context,
	userID string,
	query ExpenseQuery,
	page pagination.PageRequest,
) (*pagination.PageResponse[models.Expense], error) {
	return s.list(ctx, repository.ExpenseFilter{
		UserID:   userID,
		BudgetID: query.BudgetID,
		Category: query.Category,
		Query:    query.Search,
		From:     query.From,
		To:       query.To,
	}, page)
}

// GetBudgetExpenses returns the expenses logged against one of the user's budgets.
func (s *expenseService) GetBudgetExpenses(ctx context.Context, userID, budgetID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	if _, err := s.budgets.GetBudgetByID(ctx, userID, budgetID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.ExpenseFilter{UserID: userID, BudgetID: budgetID}, page)
}

func (s *expenseService) GetExpensesByCategory(ctx context.Context, userID string, category models.Category, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	if !category.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "category must be one of leisure, essentials or savings")
	}
	return s.list(ctx, repository.ExpenseFilter{UserID: userID, Category: category}, page)
}

// SearchExpenses matches descriptions case-insensitively.
func (s *expenseService) SearchExpenses(ctx context.Context, userID, search string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	if strings.TrimSpace(search) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "search term is required")
	}
	return s.list(ctx, repository.ExpenseFilter{UserID: userID, Query: search}, page)
}

func (s *expenseService) list(ctx context.Context, filter repository.ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	expenses, total, err := s.store.Expenses().List(ctx, filter, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pagination.NewPageResponse(expenses, page, total), nil
}

// GetSummary totals every expense of the user per category.
func (s *expenseService) GetSummary(ctx context.Context, userID string) (*ExpenseSummary, error) {
	expenses, err := s.store.Expenses().ListAll(ctx, repository.ExpenseFilter{UserID: userID})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return summarize(expenses), nil
}

func summarize(expenses []models.Expense) *ExpenseSummary {
	summary := &ExpenseSummary{
		Categories: make(map[models.Category]decimal.Decimal, len(models.Categories)),
		Total:      decimal.Zero,
		Average:    decimal.Zero,
	}
	for _, c := range models.Categories {
		summary.Categories[c] = decimal.Zero
	}

	for _, e := range expenses {
		summary.Categories[e.Category] = summary.Categories[e.Category].Add(e.Amount)
		summary.Total = summary.Total.Add(e.Amount)
		summary.Count++
	}
	if summary.Count > 0 {
		summary.Average = summary.Total.DivRound(decimal.NewFromInt(summary.Count), 2)
	}
	return summary
}

// UpdateExpense merges the supplied fields and re-validates the result.
func (s *expenseService) UpdateExpense(ctx context.Context, userID, expenseID string, update models.ExpenseUpdate) (*models.Expense, error) {
	existing, err := s.loadOwned(ctx, s.store, userID, expenseID)
	if err != nil {
		return nil, err
	}

	updated, err := update.Apply(*existing)
	if err != nil {
		return nil, validationError(err)
	}
	updated.ExpenseDate = updated.ExpenseDate.UTC()

	var alerts []models.BudgetAlert
	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Expenses().Update(ctx, &updated); err != nil {
			return err
		}
		if !s.reconcile {
			return nil
		}
		var err error
		alerts, err = s.budgets.AdjustSpent(ctx, tx, updated.BudgetID, spentDeltas(existing, &updated))
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, storeError(err)
	}

	s.budgets.PublishAlerts(ctx, alerts)
	return &updated, nil
}

// spentDeltas returns how much each category's spent total moves when
// before is replaced by after.
func spentDeltas(before, after *models.Expense) map[models.Category]decimal.Decimal {
	deltas := map[models.Category]decimal.Decimal{}
	deltas[before.Category] = deltas[before.Category].Sub(before.Amount)
	deltas[after.Category] = deltas[after.Category].Add(after.Amount)
	return deltas
}

// DeleteExpense removes an expense. It reports false when the user has no
// such expense.
func (s *expenseService) DeleteExpense(ctx context.Context, userID, expenseID string) (bool, error) {
	var removed bool
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		expense, err := s.loadOwned(ctx, tx, userID, expenseID)
		if err != nil {
			return err
		}
		if removed, err = tx.Expenses().Delete(ctx, expenseID); err != nil || !removed {
			return err
		}
		if !s.reconcile {
			return nil
		}
		_, err = s.budgets.AdjustSpent(ctx, tx, expense.BudgetID,
			map[models.Category]decimal.Decimal{expense.Category: expense.Amount.Neg()})
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrExpenseNotFound) {
			return false, nil
		}
		return false, storeError(err)
	}

	if removed {
		s.log.Infow("Expense deleted", "expense_id", expenseID, "user_id", userID)
	}
	return removed, nil
}

// RecalculateSpent rebuilds a budget's spent totals from its expenses.
func (s *expenseService) RecalculateSpent(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	if _, err := s.budgets.GetBudgetByID(ctx, userID, budgetID); err != nil {
		return nil, err
	}

	var budget *models.Budget
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		var err error
		if budget, err = tx.Budgets().FindByID(ctx, budgetID); err != nil {
			return err
		}
		expenses, err := tx.Expenses().ListAll(ctx, repository.ExpenseFilter{BudgetID: budgetID})
		if err != nil {
			return err
		}
		budget.ResetSpent(summarize(expenses).Categories)
		return tx.Budgets().Update(ctx, budget)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, storeError(err)
	}

	s.log.Infow("Budget spent totals recalculated", "budget_id", budgetID, "total_spent", budget.TotalSpent().String())
	return budget, nil
}
