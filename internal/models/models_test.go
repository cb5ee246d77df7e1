package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", User{FirstName: " Ada "}.FullName())
	assert.Equal(t, "", User{}.FullName())
}

func TestExpense_ShareFor(t *testing.T) {
	e := Expense{Shares: []Share{
		{UserID: "7", NetBalance: decimal.NewFromInt(-5)},
		{UserID: "42", NetBalance: decimal.NewFromInt(5)},
	}}

	s, ok := e.ShareFor("42")
	require.True(t, ok)
	assert.True(t, s.NetBalance.Equal(decimal.NewFromInt(5)))

	_, ok = e.ShareFor("99")
	assert.False(t, ok)
}

func TestWatermark(t *testing.T) {
	at := time.Date(2024, 3, 2, 11, 30, 0, 120000000, time.FixedZone("CET", 3600))

	s := FormatWatermark(at)
	assert.Equal(t, "2024-03-02T10:30:00.120000Z", s)

	parsed, err := ParseWatermark(s)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))

	// fixed width keeps lexical and chronological order aligned
	assert.Less(t, FormatWatermark(at), FormatWatermark(at.Add(time.Microsecond)))

	_, err = ParseWatermark("2024-03-02")
	assert.Error(t, err)
}

func TestSyncRecordHelpers(t *testing.T) {
	records := []SyncRecord{
		{UpdatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Transaction: Transaction{ImportID: "split2ynab:1", Amount: 10}},
		{UpdatedAt: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Transaction: Transaction{ImportID: "split2ynab:2", Amount: 20}},
		{UpdatedAt: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), Transaction: Transaction{ImportID: "split2ynab:3", Amount: 30}},
	}

	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), MaxUpdatedAt(records))
	assert.True(t, MaxUpdatedAt(nil).IsZero())
	assert.Equal(t, []string{"split2ynab:1", "split2ynab:2", "split2ynab:3"}, ImportIDs(records))
	assert.Len(t, Transactions(records), 3)
	assert.Equal(t, int64(30), Transactions(records)[2].Amount)
}
