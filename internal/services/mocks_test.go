package services

import (
	"context"
	"time"

	"github.com/split2ynab/backend/internal/metrics"
	"github.com/split2ynab/backend/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockSourceLedger struct {
	mock.Mock
}

func (m *MockSourceLedger) GetCurrentUser(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockSourceLedger) GetExpenses(ctx context.Context, q models.ExpenseQuery) ([]models.Expense, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Expense), args.Error(1)
}

type MockDestinationLedger struct {
	mock.Mock
}

func (m *MockDestinationLedger) GetBudgets(ctx context.Context) ([]models.Budget, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Budget), args.Error(1)
}

func (m *MockDestinationLedger) GetAccounts(ctx context.Context, budgetID string) ([]models.Account, error) {
	args := m.Called(ctx, budgetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Account), args.Error(1)
}

func (m *MockDestinationLedger) GetTransactionsByAccount(ctx context.Context, budgetID, accountID string) ([]models.Transaction, error) {
	args := m.Called(ctx, budgetID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockDestinationLedger) UpdateTransactions(ctx context.Context, budgetID string, txns []models.Transaction) (*models.SaveResult, error) {
	args := m.Called(ctx, budgetID, txns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SaveResult), args.Error(1)
}

func (m *MockDestinationLedger) CreateTransactions(ctx context.Context, budgetID string, txns []models.Transaction) (*models.SaveResult, error) {
	args := m.Called(ctx, budgetID, txns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SaveResult), args.Error(1)
}

func (m *MockDestinationLedger) GetCategoryGroups(ctx context.Context, budgetID string) ([]models.CategoryGroup, error) {
	args := m.Called(ctx, budgetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CategoryGroup), args.Error(1)
}

func (m *MockDestinationLedger) UpdateMonthCategory(ctx context.Context, budgetID, month, categoryID string, budgeted int64) (*models.Category, error) {
	args := m.Called(ctx, budgetID, month, categoryID, budgeted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

type MockStateStore struct {
	mock.Mock
}

func (m *MockStateStore) Latest(ctx context.Context) (time.Time, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockStateStore) Advance(ctx context.Context, records []models.SyncRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockStateStore) Lookup(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) ImportIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockCollector struct {
	mock.Mock
}

func (m *MockCollector) RecordRun(result string, duration time.Duration) {
	m.Called(result, duration)
}

func (m *MockCollector) RecordWritten(kind string, n int) {
	m.Called(kind, n)
}

func (m *MockCollector) RecordWatermark(t time.Time) {
	m.Called(t)
}

func (m *MockCollector) RecordFunding(result string) {
	m.Called(result)
}

func (m *MockCollector) RecordError(kind string) {
	m.Called(kind)
}

func (m *MockCollector) RecordCircuitState(client string, state metrics.CircuitState) {
	m.Called(client, state)
}
