package ynab

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/split2ynab/backend/internal/clients"
	"github.com/split2ynab/backend/internal/logging"
	"github.com/split2ynab/backend/internal/models"
	"go.uber.org/zap"
)

const serviceName = "ynab"

// Client talks to the YNAB v1 API. All amounts are milliunits.
type Client struct {
	req    *clients.Requester
	logger *logging.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logging.Logger) *Client {
	return &Client{
		req:    clients.NewRequester(serviceName, baseURL, apiKey, timeout),
		logger: logger.Named(serviceName),
	}
}

type budgetsResponse struct {
	Data struct {
		Budgets []models.Budget `json:"budgets" validate:"dive"`
	} `json:"data"`
}

type accountsResponse struct {
	Data struct {
		Accounts []models.Account `json:"accounts" validate:"dive"`
	} `json:"data"`
}

// existing transactions only need to be identifiable, not writable
type ledgerTransaction struct {
	ID        string `json:"id" validate:"required"`
	AccountID string `json:"account_id"`
	Date      string `json:"date"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo"`
	Cleared   string `json:"cleared"`
	Approved  bool   `json:"approved"`
	ImportID  string `json:"import_id"`
	Deleted   bool   `json:"deleted"`
}

type transactionsResponse struct {
	Data struct {
		Transactions []ledgerTransaction `json:"transactions" validate:"dive"`
	} `json:"data"`
}

type saveTransactionsRequest struct {
	Transactions []models.Transaction `json:"transactions" validate:"required,dive"`
}

type saveTransactionsResponse struct {
	Data models.SaveResult `json:"data"`
}

type categoriesResponse struct {
	Data struct {
		CategoryGroups []models.CategoryGroup `json:"category_groups" validate:"dive"`
	} `json:"data"`
}

type monthCategoryRequest struct {
	Category struct {
		Budgeted int64 `json:"budgeted"`
	} `json:"category"`
}

type monthCategoryResponse struct {
	Data struct {
		Category *models.Category `json:"category" validate:"required"`
	} `json:"data"`
}

func (c *Client) GetBudgets(ctx context.Context) ([]models.Budget, error) {
	var resp budgetsResponse
	if err := c.req.Do(ctx, http.MethodGet, "/budgets", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Budgets, nil
}

func (c *Client) GetAccounts(ctx context.Context, budgetID string) ([]models.Account, error) {
	var resp accountsResponse
	path := "/budgets/" + url.PathEscape(budgetID) + "/accounts"
	if err := c.req.Do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Accounts, nil
}

// GetTransactionsByAccount returns every transaction currently in the account
func (c *Client) GetTransactionsByAccount(ctx context.Context, budgetID, accountID string) ([]models.Transaction, error) {
	var resp transactionsResponse
	path := "/budgets/" + url.PathEscape(budgetID) + "/accounts/" + url.PathEscape(accountID) + "/transactions"
	if err := c.req.Do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	txns := make([]models.Transaction, 0, len(resp.Data.Transactions))
	for _, t := range resp.Data.Transactions {
		txns = append(txns, models.Transaction{
			ID:        t.ID,
			AccountID: t.AccountID,
			Date:      t.Date,
			Amount:    t.Amount,
			Memo:      t.Memo,
			Cleared:   t.Cleared,
			Approved:  t.Approved,
			ImportID:  t.ImportID,
			Deleted:   t.Deleted,
		})
	}
	return txns, nil
}

// UpdateTransactions patches transactions matched by import id
func (c *Client) UpdateTransactions(ctx context.Context, budgetID string, txns []models.Transaction) (*models.SaveResult, error) {
	return c.save(ctx, http.MethodPatch, budgetID, txns)
}

// CreateTransactions posts new transactions
func (c *Client) CreateTransactions(ctx context.Context, budgetID string, txns []models.Transaction) (*models.SaveResult, error) {
	return c.save(ctx, http.MethodPost, budgetID, txns)
}

func (c *Client) save(ctx context.Context, method, budgetID string, txns []models.Transaction) (*models.SaveResult, error) {
	body := saveTransactionsRequest{Transactions: txns}
	if err := c.req.Validator.ValidateStruct(&body); err != nil {
		return nil, &clients.ShapeError{Service: serviceName, Path: "outgoing transactions", Details: clients.Describe(err)}
	}

	var resp saveTransactionsResponse
	path := "/budgets/" + url.PathEscape(budgetID) + "/transactions"
	if err := c.req.Do(ctx, method, path, nil, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data.DuplicateImportIDs) > 0 {
		c.logger.Warn("ledger reported duplicate import ids",
			zap.String("method", method),
			zap.Strings("import_ids", resp.Data.DuplicateImportIDs),
		)
	}
	return &resp.Data, nil
}

func (c *Client) GetCategoryGroups(ctx context.Context, budgetID string) ([]models.CategoryGroup, error) {
	var resp categoriesResponse
	path := "/budgets/" + url.PathEscape(budgetID) + "/categories"
	if err := c.req.Do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.CategoryGroups, nil
}

// UpdateMonthCategory sets only the budgeted amount of a category for month (YYYY-MM-01)
func (c *Client) UpdateMonthCategory(ctx context.Context, budgetID, month, categoryID string, budgeted int64) (*models.Category, error) {
	var body monthCategoryRequest
	body.Category.Budgeted = budgeted

	var resp monthCategoryResponse
	path := "/budgets/" + url.PathEscape(budgetID) + "/months/" + url.PathEscape(month) + "/categories/" + url.PathEscape(categoryID)
	if err := c.req.Do(ctx, http.MethodPatch, path, nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Category, nil
}
