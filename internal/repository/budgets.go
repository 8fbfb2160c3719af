package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"budgetly/internal/models"
	"budgetly/internal/pagination"
)

type budgetRepo struct {
	db *gorm.DB
}

func (r *budgetRepo) Create(ctx context.Context, b *models.Budget) error {
	b.Version = 1
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *budgetRepo) FindByID(ctx context.Context, id string) (*models.Budget, error) {
	var b models.Budget
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *budgetRepo) FindByUserAndMonth(ctx context.Context, userID string, month time.Time) (*models.Budget, error) {
	var b models.Budget
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month_year = ?", userID, models.MonthStart(month)).
		First(&b).Error
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *budgetRepo) ListByUser(ctx context.Context, userID string, page pagination.PageRequest) ([]models.Budget, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Budget{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var budgets []models.Budget
	if err := base.Order("month_year DESC").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, 0, err
	}
	return budgets, total, nil
}

func (r *budgetRepo) Update(ctx context.Context, b *models.Budget) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Budget{}).
		Where("id = ? AND version = ?", b.ID, b.Version).
		Updates(map[string]any{
			"total_income":      b.TotalIncome,
			"leisure_budget":    b.LeisureBudget,
			"essentials_budget": b.EssentialsBudget,
			"savings_budget":    b.SavingsBudget,
			"leisure_spent":     b.LeisureSpent,
			"essentials_spent":  b.EssentialsSpent,
			"savings_spent":     b.SavingsSpent,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        now,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Budget{}).Where("id = ?", b.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStale
	}

	b.Version++
	b.UpdatedAt = now
	return nil
}

func (r *budgetRepo) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Budget{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
