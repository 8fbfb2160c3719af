package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "budgetly/internal/errors"
	"budgetly/internal/logger"
	"budgetly/internal/models"
	"budgetly/internal/notify"
	"budgetly/internal/pagination"
	"budgetly/internal/repository"
)

// maxApplyAttempts bounds the reload-and-retry loop of AddExpenseAmount.
const maxApplyAttempts = 3

// budgetService handles budget-related business logic.
type budgetService struct {
	store    repository.Store
	notifier notify.Notifier
	now      func() time.Time
	log      *zap.SugaredLogger
}

// BudgetOption customizes a budget service.
type BudgetOption func(*budgetService)

// WithClock sets the clock used to pick the current month.
func WithClock(now func() time.Time) BudgetOption {
	return func(s *budgetService) { s.now = now }
}

// NewBudgetService creates a new BudgetServicer. A nil notifier logs alerts.
func NewBudgetService(store repository.Store, notifier notify.Notifier, opts ...BudgetOption) BudgetServicer {
	s := &budgetService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		log:      logger.Named("budget"),
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(logger.Named("alerts"))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBudget creates the budget of the current month for a user.
func (s *budgetService) CreateBudget(
	ctx context.Context,
	userID string,
	income, leisure, essentials, savings decimal.Decimal,
) (*models.Budget, error) {
	budget := models.NewBudget(userID, income, leisure, essentials, savings, s.now())
	if err := budget.Validate(); err != nil {
		return nil, validationError(err)
	}

	_, err := s.store.Budgets().FindByUserAndMonth(ctx, userID, budget.MonthYear)
	switch {
	case err == nil:
		return nil, apperrors.ErrDuplicateBudget
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.store.Budgets().Create(ctx, budget); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrDuplicateBudget
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.log.Infow("Budget created", "budget_id", budget.ID, "user_id", userID, "month", budget.MonthYear.Format("2006-01"))
	return budget, nil
}

// GetCurrentBudget returns the user's budget for the current month.
func (s *budgetService) GetCurrentBudget(ctx context.Context, userID string) (*models.Budget, error) {
	budget, err := s.store.Budgets().FindByUserAndMonth(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrNoActiveBudget
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// GetBudgetByID returns a budget owned by the user.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	return s.loadOwned(ctx, s.store, userID, budgetID)
}

func (s *budgetService) loadOwned(ctx context.Context, store repository.Store, userID, budgetID string) (*models.Budget, error) {
	budget, err := store.Budgets().FindByID(ctx, budgetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if budget.UserID != userID {
		return nil, apperrors.ErrBudgetNotFound
	}
	return budget, nil
}

// GetUserBudgets returns the user's budgets, newest month first.
func (s *budgetService) GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	budgets, total, err := s.store.Budgets().ListByUser(ctx, userID, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pagination.NewPageResponse(budgets, page, total), nil
}

// UpdateBudget merges the supplied allocations and persists them only if
// the merged budget still satisfies every rule.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error) {
	budget, err := s.loadOwned(ctx, s.store, userID, budgetID)
	if err != nil {
		return nil, err
	}

	candidate := *budget
	if update.TotalIncome != nil {
		candidate.TotalIncome = *update.TotalIncome
	}
	if update.LeisureBudget != nil {
		candidate.LeisureBudget = *update.LeisureBudget
	}
	if update.EssentialsBudget != nil {
		candidate.EssentialsBudget = *update.EssentialsBudget
	}
	if update.SavingsBudget != nil {
		candidate.SavingsBudget = *update.SavingsBudget
	}

	if err := candidate.Validate(); err != nil {
		return nil, validationError(err)
	}

	if err := s.store.Budgets().Update(ctx, &candidate); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, storeError(err)
	}

	s.log.Infow("Budget updated", "budget_id", candidate.ID, "version", candidate.Version)
	return &candidate, nil
}

// DeleteBudget removes a budget and its expenses. It reports false when
// the user has no such budget.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) (bool, error) {
	var removed bool
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if _, err := s.loadOwned(ctx, tx, userID, budgetID); err != nil {
			return err
		}
		if _, err := tx.Expenses().DeleteByBudget(ctx, budgetID); err != nil {
			return err
		}
		var err error
		removed, err = tx.Budgets().Delete(ctx, budgetID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrBudgetNotFound) {
			return false, nil
		}
		return false, storeError(err)
	}

	if removed {
		s.log.Infow("Budget deleted", "budget_id", budgetID, "user_id", userID)
	}
	return removed, nil
}

// GetAdjustments loads a budget and proposes allocations within its income.
func (s *budgetService) GetAdjustments(ctx context.Context, userID, budgetID string) (*models.AdjustmentSuggestion, error) {
	budget, err := s.loadOwned(ctx, s.store, userID, budgetID)
	if err != nil {
		return nil, err
	}
	suggestion := models.ComputeAutoAdjustment(budget)
	return &suggestion, nil
}

// ValidateBudget reports whether a stored budget satisfies every rule.
func (s *budgetService) ValidateBudget(ctx context.Context, userID, budgetID string) (*BudgetValidation, error) {
	budget, err := s.loadOwned(ctx, s.store, userID, budgetID)
	if err != nil {
		return nil, err
	}

	err = budget.Validate()
	if err == nil {
		return &BudgetValidation{Valid: true}, nil
	}

	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	suggestion := models.ComputeAutoAdjustment(budget)
	return &BudgetValidation{Valid: false, Field: ve.Field, Reason: ve.Message, Adjustment: &suggestion}, nil
}

func (s *budgetService) AddExpenseAmount(ctx context.Context, budgetID string, category models.Category, amount decimal.Decimal) (*models.Budget, error) {
	var lastErr error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		budget, err := s.store.Budgets().FindByID(ctx, budgetID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.ErrBudgetNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		alerts, err := s.ApplyExpenseAmount(ctx, s.store, budget, category, amount)
		if err == nil {
			s.PublishAlerts(ctx, alerts)
			return budget, nil
		}
		if !errors.Is(err, repository.ErrStale) {
			return nil, err
		}

		lastErr = err
		s.log.Debugw("Budget changed concurrently, retrying", "budget_id", budgetID, "attempt", attempt)
	}
	return nil, lastErr
}

func (s *budgetService) ApplyExpenseAmount(
	ctx context.Context,
	tx repository.Store,
	budget *models.Budget,
	category models.Category,
	amount decimal.Decimal,
) ([]models.BudgetAlert, error) {
	before := levels(budget, category)

	if err := budget.AddSpent(category, amount); err != nil {
		return nil, validationError(err)
	}
	if err := tx.Budgets().Update(ctx, budget); err != nil {
		return nil, storeError(err)
	}

	return s.crossings(budget, before), nil
}

func (s *budgetService) AdjustSpent(
	ctx context.Context,
	tx repository.Store,
	budgetID string,
	deltas map[models.Category]decimal.Decimal,
) ([]models.BudgetAlert, error) {
	budget, err := tx.Budgets().FindByID(ctx, budgetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var touched []models.Category
	for c, delta := range deltas {
		if delta.IsZero() {
			continue
		}
		touched = append(touched, c)
	}
	if len(touched) == 0 {
		return nil, nil
	}

	before := levels(budget, touched...)
	for _, c := range touched {
		if err := budget.ApplySpentDelta(c, deltas[c]); err != nil {
			return nil, validationError(err)
		}
	}
	if err := tx.Budgets().Update(ctx, budget); err != nil {
		return nil, storeError(err)
	}

	return s.crossings(budget, before), nil
}

// PublishAlerts hands alerts to the notifier. Failures are logged only.
func (s *budgetService) PublishAlerts(ctx context.Context, alerts []models.BudgetAlert) {
	for _, alert := range alerts {
		if err := s.notifier.NotifyBudgetAlert(ctx, alert); err != nil {
			s.log.Warnw("Failed to publish budget alert",
				"budget_id", alert.BudgetID,
				"category", alert.Category,
				"level", alert.Level.String(),
				"error", err,
			)
		}
	}
}

func levels(budget *models.Budget, categories ...models.Category) map[models.Category]models.AlertLevel {
	out := make(map[models.Category]models.AlertLevel, len(categories))
	for _, c := range categories {
		if status, err := budget.Status(c); err == nil {
			out[c] = models.AlertLevelFor(status.Percentage)
		}
	}
	return out
}

// crossings returns one alert per category whose band rose since before.
func (s *budgetService) crossings(budget *models.Budget, before map[models.Category]models.AlertLevel) []models.BudgetAlert {
	var alerts []models.BudgetAlert
	for _, c := range models.Categories {
		prev, ok := before[c]
		if !ok {
			continue
		}
		status, err := budget.Status(c)
		if err != nil {
			continue
		}
		level := models.AlertLevelFor(status.Percentage)
		if level <= prev {
			continue
		}
		alerts = append(alerts, models.BudgetAlert{
			BudgetID:   budget.ID,
			UserID:     budget.UserID,
			Category:   c,
			Level:      level,
			Previous:   prev,
			Percentage: status.Percentage,
			Spent:      status.Spent,
			Budget:     status.Budget,
			OccurredAt: s.now().UTC(),
		})
	}
	return alerts
}
