package splitwise

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/split2ynab/backend/internal/clients"
	"github.com/split2ynab/backend/internal/logging"
	"github.com/split2ynab/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expensesJSON = `{
  "expenses": [
    {
      "id": 1001,
      "date": "2024-03-02T12:00:00Z",
      "description": "Groceries",
      "updated_at": "2024-03-03T08:15:00Z",
      "deleted_at": null,
      "created_by": {"id": 7, "first_name": "Ada", "last_name": "Lovelace"},
      "users": [
        {"user_id": 7, "net_balance": "12.345"},
        {"user_id": 9, "net_balance": "-12.345"}
      ]
    },
    {
      "id": 1002,
      "date": "2024-03-04T00:00:00Z",
      "description": "Taxi",
      "updated_at": "2024-03-04T09:00:00Z",
      "created_by": {"id": 9, "first_name": "Grace", "last_name": null},
      "users": []
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, tweak func(*Config)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.APIKey = "sw-key"
	if tweak != nil {
		tweak(&config)
	}
	return NewClient(config, logging.NewNoOpLogger())
}

func TestClient_GetCurrentUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_current_user", r.URL.Path)
		assert.Equal(t, "Bearer sw-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"user":{"id":7,"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}}`))
	}, nil)

	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7", user.ID)
	assert.Equal(t, "Ada Lovelace", user.FullName())
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestClient_GetExpenses(t *testing.T) {
	t.Run("decodes expenses and forwards filters", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/get_expenses", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "2024-01-01", q.Get("dated_after"))
			assert.Equal(t, "2024-03-01T00:00:00Z", q.Get("updated_after"))
			assert.Equal(t, "0", q.Get("limit"))
			w.Write([]byte(expensesJSON))
		}, nil)

		after := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		expenses, err := client.GetExpenses(context.Background(), models.ExpenseQuery{
			DatedAfter:   "2024-01-01",
			UpdatedAfter: &after,
		})
		require.NoError(t, err)
		require.Len(t, expenses, 2)

		first := expenses[0]
		assert.Equal(t, "1001", first.ID)
		assert.Equal(t, "Groceries", first.Description)
		assert.Equal(t, time.Date(2024, 3, 3, 8, 15, 0, 0, time.UTC), first.UpdatedAt)
		assert.Equal(t, "7", first.CreatedBy.ID)
		require.Len(t, first.Shares, 2)
		assert.Equal(t, "12.345", first.Shares[0].NetBalance.String())

		share, ok := first.ShareFor("9")
		assert.True(t, ok)
		assert.Equal(t, "-12.345", share.NetBalance.String())

		assert.Equal(t, "Grace", expenses[1].CreatedBy.FullName())
	})

	t.Run("omits updated_after on first run", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, present := r.URL.Query()["updated_after"]
			assert.False(t, present)
			w.Write([]byte(`{"expenses":[]}`))
		}, nil)

		expenses, err := client.GetExpenses(context.Background(), models.ExpenseQuery{DatedAfter: "2024-01-01"})
		require.NoError(t, err)
		assert.Empty(t, expenses)
	})

	t.Run("rejects a malformed payload", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"expenses":[{"id":5,"date":"2024-01-01","updated_at":"2024-01-02T00:00:00Z","users":[]}]}`))
		}, nil)

		_, err := client.GetExpenses(context.Background(), models.ExpenseQuery{})
		var shapeErr *clients.ShapeError
		require.True(t, errors.As(err, &shapeErr))
		assert.Contains(t, shapeErr.Error(), "CreatedBy")
	})

	t.Run("surfaces http failures", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":{"base":["Invalid API request: you are not logged in"]}}`))
		}, nil)

		_, err := client.GetExpenses(context.Background(), models.ExpenseQuery{})
		assert.True(t, clients.IsStatus(err, http.StatusUnauthorized))
		assert.Contains(t, err.Error(), "not logged in")
	})

	t.Run("times out", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}, func(c *Config) { c.Timeout = 50 * time.Millisecond })

		_, err := client.GetExpenses(context.Background(), models.ExpenseQuery{})
		assert.ErrorIs(t, err, clients.ErrTimeout)
	})
}

func TestClient_CircuitBreaker(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}, func(c *Config) {
		c.FailureThreshold = 2
		c.Cooldown = time.Minute
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.GetExpenses(ctx, models.ExpenseQuery{})
		assert.True(t, clients.IsStatus(err, http.StatusBadGateway))
	}

	_, err := client.GetExpenses(ctx, models.ExpenseQuery{})
	assert.ErrorIs(t, err, clients.ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}
