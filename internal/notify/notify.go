// Package notify delivers budget alert events.
package notify

import (
	"context"
	"errors"

	"budgetly/internal/models"

	"go.uber.org/zap"
)

// Notifier receives alerts raised when a category crosses into a higher band.
type Notifier interface {
	NotifyBudgetAlert(ctx context.Context, alert models.BudgetAlert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyBudgetAlert(_ context.Context, alert models.BudgetAlert) error {
	n.log.Warnw("Budget alert",
		"budget_id", alert.BudgetID,
		"user_id", alert.UserID,
		"category", alert.Category,
		"level", alert.Level.String(),
		"previous", alert.Previous.String(),
		"percentage", alert.Percentage,
	)
	return nil
}

// Multi sends each alert to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyBudgetAlert(ctx context.Context, alert models.BudgetAlert) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyBudgetAlert(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
