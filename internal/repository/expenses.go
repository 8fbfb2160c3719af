package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"budgetly/internal/models"
	"budgetly/internal/pagination"
)

type expenseRepo struct {
	db *gorm.DB
}

func (r *expenseRepo) Create(ctx context.Context, e *models.Expense) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *expenseRepo) FindByID(ctx context.Context, id string) (*models.Expense, error) {
	var e models.Expense
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *expenseRepo) Update(ctx context.Context, e *models.Expense) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Expense{}).
		Where("id = ?", e.ID).
		Updates(map[string]any{
			"category":       e.Category,
			"amount":         e.Amount,
			"description":    e.Description,
			"payment_method": e.PaymentMethod,
			"location":       e.Location,
			"notes":          e.Notes,
			"expense_date":   e.ExpenseDate,
			"updated_at":     now,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	e.UpdatedAt = now
	return nil
}

func (r *expenseRepo) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Expense{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *expenseRepo) DeleteByBudget(ctx context.Context, budgetID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("budget_id = ?", budgetID).Delete(&models.Expense{})
	return res.RowsAffected, res.Error
}

func (r *expenseRepo) List(ctx context.Context, filter ExpenseFilter, page pagination.PageRequest) ([]models.Expense, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Expense{}).Scopes(filtered(filter))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var expenses []models.Expense
	if err := base.Order("expense_date DESC, id DESC").Scopes(pagination.Paginate(page)).Find(&expenses).Error; err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

func (r *expenseRepo) ListAll(ctx context.Context, filter ExpenseFilter) ([]models.Expense, error) {
	var expenses []models.Expense
	err := r.db.WithContext(ctx).Scopes(filtered(filter)).
		Order("expense_date DESC, id DESC").
		Find(&expenses).Error
	return expenses, err
}

func filtered(f ExpenseFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.UserID != "" {
			db = db.Where("user_id = ?", f.UserID)
		}
		if f.BudgetID != "" {
			db = db.Where("budget_id = ?", f.BudgetID)
		}
		if f.Category != "" {
			db = db.Where("category = ?", f.Category)
		}
		if q := strings.TrimSpace(f.Query); q != "" {
			db = db.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(q)+"%")
		}
		if f.From != nil {
			db = db.Where("expense_date >= ?", *f.From)
		}
		if f.To != nil {
			db = db.Where("expense_date <= ?", *f.To)
		}
		return db
	}
}
