package splitwise

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/split2ynab/backend/internal/clients"
	"github.com/split2ynab/backend/internal/logging"
	"github.com/split2ynab/backend/internal/models"
	"go.uber.org/zap"
)

const serviceName = "splitwise"

// Config configures the Splitwise client
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds every call. Callers may pass a shorter context deadline.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold uint32
	// Cooldown is how long the breaker stays open before probing again
	Cooldown time.Duration
	// OnStateChange, if set, is told about every breaker transition
	OnStateChange func(name string, to gobreaker.State)
}

// DefaultConfig returns production settings for the public API
func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://secure.splitwise.com/api/v3.0",
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
	}
}

// Client reads the current user and expenses from Splitwise
type Client struct {
	req     *clients.Requester
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *logging.Logger
}

func NewClient(config Config, logger *logging.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultConfig().Cooldown
	}

	logger = logger.Named(serviceName)
	threshold := config.FailureThreshold
	notify := config.OnStateChange

	settings := gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: 1,
		Timeout:     config.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("client", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if notify != nil {
				notify(name, to)
			}
		},
	}

	return &Client{
		req:     clients.NewRequester(serviceName, config.BaseURL, config.APIKey, config.Timeout),
		cb:      gobreaker.NewCircuitBreaker(settings),
		timeout: config.Timeout,
		logger:  logger,
	}
}

type wireUser struct {
	ID        int64   `json:"id" validate:"required"`
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     string  `json:"email"`
}

type currentUserResponse struct {
	User *wireUser `json:"user" validate:"required"`
}

type wireShare struct {
	UserID     int64  `json:"user_id" validate:"required"`
	NetBalance string `json:"net_balance" validate:"required,numeric"`
}

type wireExpense struct {
	ID          int64       `json:"id" validate:"required"`
	Date        string      `json:"date" validate:"required"`
	Description string      `json:"description"`
	UpdatedAt   string      `json:"updated_at" validate:"required"`
	CreatedBy   *wireUser   `json:"created_by" validate:"required"`
	Users       []wireShare `json:"users" validate:"dive"`
}

type expensesResponse struct {
	Expenses []wireExpense `json:"expenses" validate:"dive"`
}

// GetCurrentUser returns the user the API key belongs to
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var resp currentUserResponse
	if err := c.call(ctx, "/get_current_user", nil, &resp); err != nil {
		return nil, err
	}

	user := resp.User.toModel()
	return &user, nil
}

// GetExpenses lists expenses matching q. The updated_after filter is sent as
// given; callers re-check it because the API treats it loosely.
func (c *Client) GetExpenses(ctx context.Context, q models.ExpenseQuery) ([]models.Expense, error) {
	params := url.Values{}
	if q.DatedAfter != "" {
		params.Set("dated_after", q.DatedAfter)
	}
	if q.UpdatedAfter != nil {
		params.Set("updated_after", q.UpdatedAfter.UTC().Format(time.RFC3339))
	}
	params.Set("limit", strconv.Itoa(q.Limit))

	var resp expensesResponse
	if err := c.call(ctx, "/get_expenses", params, &resp); err != nil {
		return nil, err
	}

	expenses := make([]models.Expense, 0, len(resp.Expenses))
	for _, we := range resp.Expenses {
		e, err := we.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: expense %d: %w", serviceName, we.ID, err)
		}
		expenses = append(expenses, e)
	}

	c.logger.Debug("fetched expenses",
		zap.Int("count", len(expenses)),
		zap.String("dated_after", q.DatedAfter),
	)

	return expenses, nil
}

func (c *Client) call(ctx context.Context, path string, params url.Values, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.req.Do(ctx, http.MethodGet, path, params, nil, out)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("circuit breaker open - request rejected", zap.String("path", path))
		return fmt.Errorf("%s: %s: %w", serviceName, path, clients.ErrCircuitOpen)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, clients.ErrTimeout) {
		err = fmt.Errorf("%s: %s: %w", serviceName, path, clients.ErrTimeout)
	}

	c.logger.Error("request failed",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return err
}

func (u *wireUser) toModel() models.User {
	user := models.User{
		ID:        strconv.FormatInt(u.ID, 10),
		FirstName: u.FirstName,
		Email:     u.Email,
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	return user
}

func (we *wireExpense) toModel() (models.Expense, error) {
	date, err := parseTime(we.Date)
	if err != nil {
		return models.Expense{}, fmt.Errorf("date: %w", err)
	}
	updated, err := parseTime(we.UpdatedAt)
	if err != nil {
		return models.Expense{}, fmt.Errorf("updated_at: %w", err)
	}

	shares := make([]models.Share, 0, len(we.Users))
	for _, u := range we.Users {
		balance, err := decimal.NewFromString(u.NetBalance)
		if err != nil {
			return models.Expense{}, fmt.Errorf("net_balance for user %d: %w", u.UserID, err)
		}
		shares = append(shares, models.Share{
			UserID:     strconv.FormatInt(u.UserID, 10),
			NetBalance: balance,
		})
	}

	return models.Expense{
		ID:          strconv.FormatInt(we.ID, 10),
		Date:        date,
		Description: we.Description,
		UpdatedAt:   updated,
		CreatedBy:   we.CreatedBy.toModel(),
		Shares:      shares,
	}, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
