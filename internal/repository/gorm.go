package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// GormStore implements Store with GORM. It works with both the postgres
// and sqlite dialectors.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Budgets() BudgetRepository   { return &budgetRepo{db: s.db} }
func (s *GormStore) Expenses() ExpenseRepository { return &expenseRepo{db: s.db} }
func (s *GormStore) Users() UserRepository       { return &userRepo{db: s.db} }

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// isUniqueViolation catches drivers that were opened without
// TranslateError.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
