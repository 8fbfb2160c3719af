package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"budgetly/internal/models"
	"budgetly/internal/repository"
	"budgetly/internal/testutil"

	"gorm.io/gorm"
)

// march17 is the clock used by every service test, so the current month is
// March 2026.
var march17 = time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return march17 }

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.BudgetAlert
	err    error
}

func (n *recordingNotifier) NotifyBudgetAlert(_ context.Context, alert models.BudgetAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *recordingNotifier) levels() []models.AlertLevel {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.AlertLevel, 0, len(n.alerts))
	for _, a := range n.alerts {
		out = append(out, a.Level)
	}
	return out
}

// faults injects failures into budget writes. The first staleUpdates calls
// fail with ErrStale, after which updateErr is returned when set.
type faults struct {
	mu           sync.Mutex
	staleUpdates int
	updateErr    error
	updateCalls  int
}

func (f *faults) next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.staleUpdates > 0 {
		f.staleUpdates--
		return repository.ErrStale
	}
	return f.updateErr
}

type faultyStore struct {
	repository.Store
	faults *faults
}

func (s *faultyStore) Budgets() repository.BudgetRepository {
	return &faultyBudgets{BudgetRepository: s.Store.Budgets(), faults: s.faults}
}

func (s *faultyStore) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTransaction(ctx, func(tx repository.Store) error {
		return fn(&faultyStore{Store: tx, faults: s.faults})
	})
}

type faultyBudgets struct {
	repository.BudgetRepository
	faults *faults
}

func (b *faultyBudgets) Update(ctx context.Context, budget *models.Budget) error {
	if err := b.faults.next(); err != nil {
		return err
	}
	return b.BudgetRepository.Update(ctx, budget)
}

type engines struct {
	db       *gorm.DB
	store    repository.Store
	budgets  BudgetServicer
	expenses ExpenseServicer
	notifier *recordingNotifier
}

func newEngines(t *testing.T, db *gorm.DB, store repository.Store, opts ...ExpenseOption) *engines {
	t.Helper()
	notifier := &recordingNotifier{}
	budgets := NewBudgetService(store, notifier, WithClock(fixedClock))
	opts = append([]ExpenseOption{WithExpenseClock(fixedClock)}, opts...)
	return &engines{
		db:       db,
		store:    store,
		budgets:  budgets,
		expenses: NewExpenseService(store, budgets, opts...),
		notifier: notifier,
	}
}

func setupEngines(t *testing.T, opts ...ExpenseOption) *engines {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	return newEngines(t, db, repository.NewGormStore(db), opts...)
}

func setupFaultyEngines(t *testing.T, f *faults) *engines {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	return newEngines(t, db, &faultyStore{Store: repository.NewGormStore(db), faults: f})
}

func reloadBudget(t *testing.T, db *gorm.DB, id string) *models.Budget {
	t.Helper()
	var b models.Budget
	if err := db.Where("id = ?", id).First(&b).Error; err != nil {
		t.Fatalf("failed to reload budget: %v", err)
	}
	return &b
}

func countExpenses(t *testing.T, db *gorm.DB, budgetID string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Expense{}).Where("budget_id = ?", budgetID).Count(&n).Error; err != nil {
		t.Fatalf("failed to count expenses: %v", err)
	}
	return n
}
