package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Share is one participant's position on an expense. A positive net balance
// means the participant is owed money; a negative one means they owe.
type Share struct {
	UserID     string          `json:"user_id"`
	NetBalance decimal.Decimal `json:"net_balance"`
}

// Expense represents a shared-cost record from the source ledger
type Expense struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedBy   User      `json:"created_by"`
	Shares      []Share   `json:"shares"`
}

// ShareFor returns the share belonging to userID
func (e *Expense) ShareFor(userID string) (Share, bool) {
	for _, s := range e.Shares {
		if s.UserID == userID {
			return s, true
		}
	}
	return Share{}, false
}

// ExpenseQuery bounds an incremental fetch from the source ledger
type ExpenseQuery struct {
	DatedAfter   string     // YYYY-MM-DD, empty for no lower bound
	UpdatedAfter *time.Time // nil on the first run
	Limit        int        // 0 asks the source for everything
}
