package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertLevel is the spending band of a category, ordered by severity.
type AlertLevel int

const (
	AlertNone AlertLevel = iota
	AlertWarning
	AlertCritical
	AlertExceeded
)

// AlertLevelFor classifies a spent percentage: exceeded at 100 or more,
// critical at 90, warning at 75.
func AlertLevelFor(percentage float64) AlertLevel {
	switch {
	case percentage >= 100:
		return AlertExceeded
	case percentage >= 90:
		return AlertCritical
	case percentage >= 75:
		return AlertWarning
	default:
		return AlertNone
	}
}

func (l AlertLevel) String() string {
	switch l {
	case AlertWarning:
		return "warning"
	case AlertCritical:
		return "critical"
	case AlertExceeded:
		return "exceeded"
	default:
		return "none"
	}
}

func (l AlertLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// BudgetAlert is emitted when applying an amount moves a category into a
// higher alert band.
type BudgetAlert struct {
	BudgetID   string          `json:"budget_id"`
	UserID     string          `json:"user_id"`
	Category   Category        `json:"category"`
	Level      AlertLevel      `json:"level"`
	Previous   AlertLevel      `json:"previous"`
	Percentage float64         `json:"percentage"`
	Spent      decimal.Decimal `json:"spent"`
	Budget     decimal.Decimal `json:"budget"`
	OccurredAt time.Time       `json:"occurred_at"`
}
