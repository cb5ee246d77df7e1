package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/split2ynab/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExpense(id string, updated time.Time, shares ...models.Share) models.Expense {
	return models.Expense{
		ID:          id,
		Date:        time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Description: "Groceries",
		UpdatedAt:   updated,
		CreatedBy:   models.User{ID: "7", FirstName: "Ada", LastName: "Lovelace"},
		Shares:      shares,
	}
}

func share(userID, amount string) models.Share {
	return models.Share{UserID: userID, NetBalance: decimal.RequireFromString(amount)}
}

func TestConvertExpense(t *testing.T) {
	updated := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("maps a participant's share", func(t *testing.T) {
		txn := ConvertExpense("acct-1", "42", testExpense("1001", updated, share("7", "-12.345"), share("42", "12.345")))
		require.NotNil(t, txn)

		assert.Equal(t, "acct-1", txn.AccountID)
		assert.Equal(t, "2024-03-02", txn.Date)
		assert.Equal(t, int64(12345), txn.Amount)
		assert.Equal(t, models.ClearedStateUncleared, txn.Cleared)
		assert.False(t, txn.Approved)
		assert.Equal(t, "split2ynab:1001", txn.ImportID)
		assert.Equal(t, "Groceries", txn.Memo)
		require.NotNil(t, txn.PayeeName)
		assert.Equal(t, "Ada Lovelace", *txn.PayeeName)
	})

	t.Run("non participant yields nil", func(t *testing.T) {
		txn := ConvertExpense("acct-1", "99", testExpense("1001", updated, share("7", "-5"), share("42", "5")))
		assert.Nil(t, txn)
	})

	t.Run("own expense has no payee", func(t *testing.T) {
		txn := ConvertExpense("acct-1", "7", testExpense("1001", updated, share("7", "-5.00")))
		require.NotNil(t, txn)
		assert.Nil(t, txn.PayeeName)
		assert.Equal(t, int64(-5000), txn.Amount)
	})
}

func TestToMilliunits(t *testing.T) {
	cases := map[string]int64{
		"12.345":   12345,
		"12.3455":  12346,
		"-12.3455": -12346,
		"0.0004":   0,
		"-0.0005":  -1,
		"100":      100000,
	}
	for in, want := range cases {
		assert.Equal(t, want, ToMilliunits(decimal.RequireFromString(in)), in)
	}
}

func TestConvertAll(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	expenses := []models.Expense{
		testExpense("30", t2, share("42", "1")),
		testExpense("9", t2, share("42", "1")),
		testExpense("12", t1, share("7", "1")),
		testExpense("100", t1, share("42", "1")),
		testExpense("abc", t2, share("42", "1")),
	}

	records := ConvertAll("acct-1", "42", expenses)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.SourceID)
	}

	// "12" has no share for user 42; ties on t2 order numerically then lexically
	assert.Equal(t, []string{"100", "9", "30", "abc"}, ids)
	assert.Equal(t, t1, records[0].UpdatedAt)
}

func TestLessSourceID(t *testing.T) {
	assert.True(t, lessSourceID("9", "10"))
	assert.False(t, lessSourceID("10", "9"))
	assert.True(t, lessSourceID("10", "9a"))
	assert.False(t, lessSourceID("b", "a"))
	assert.True(t, lessSourceID("2", "1a"))
	assert.False(t, lessSourceID("1a", "2"))
	assert.False(t, lessSourceID("7", "7"))
}

func TestSortRecords_MixedIDsAreDeterministic(t *testing.T) {
	orders := [][]string{
		{"1a", "10", "2"},
		{"10", "2", "1a"},
		{"2", "1a", "10"},
		{"1a", "2", "10"},
		{"10", "1a", "2"},
		{"2", "10", "1a"},
	}

	for _, order := range orders {
		records := make([]models.SyncRecord, 0, len(order))
		for _, id := range order {
			records = append(records, models.SyncRecord{SourceID: id, UpdatedAt: t1})
		}

		SortRecords(records)

		got := make([]string, 0, len(records))
		for _, r := range records {
			got = append(got, r.SourceID)
		}
		assert.Equal(t, []string{"2", "10", "1a"}, got, "input order %v", order)
	}
}
