package services

import (
	"context"
	"time"

	"github.com/split2ynab/backend/internal/models"
)

// SourceLedger is the shared-expense ledger records are pulled from
type SourceLedger interface {
	GetCurrentUser(ctx context.Context) (*models.User, error)
	GetExpenses(ctx context.Context, q models.ExpenseQuery) ([]models.Expense, error)
}

// DestinationLedger is the budgeting ledger transactions are written to
type DestinationLedger interface {
	GetBudgets(ctx context.Context) ([]models.Budget, error)
	GetAccounts(ctx context.Context, budgetID string) ([]models.Account, error)
	GetTransactionsByAccount(ctx context.Context, budgetID, accountID string) ([]models.Transaction, error)
	UpdateTransactions(ctx context.Context, budgetID string, txns []models.Transaction) (*models.SaveResult, error)
	CreateTransactions(ctx context.Context, budgetID string, txns []models.Transaction) (*models.SaveResult, error)
	GetCategoryGroups(ctx context.Context, budgetID string) ([]models.CategoryGroup, error)
	UpdateMonthCategory(ctx context.Context, budgetID, month, categoryID string, budgeted int64) (*models.Category, error)
}

// StateStore persists the watermark and serves bootstrap values
type StateStore interface {
	Latest(ctx context.Context) (time.Time, bool, error)
	Advance(ctx context.Context, records []models.SyncRecord) error
	Lookup(ctx context.Context, key string) (string, error)
}
