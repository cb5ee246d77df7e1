package services

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/split2ynab/backend/internal/models"
)

// ImportIDNamespace prefixes every import id this service writes
const ImportIDNamespace = "split2ynab"

var milliunitsPerUnit = decimal.NewFromInt(1000)

// ImportID derives the stable destination key for a source expense
func ImportID(sourceID string) string {
	return ImportIDNamespace + ":" + sourceID
}

// ToMilliunits scales a currency amount to milliunits, rounding half away from zero
func ToMilliunits(amount decimal.Decimal) int64 {
	return amount.Mul(milliunitsPerUnit).Round(0).IntPart()
}

// ConvertExpense maps an expense to a destination transaction on accountID.
// It returns nil when userID holds no share of the expense.
func ConvertExpense(accountID, userID string, e models.Expense) *models.Transaction {
	share, ok := e.ShareFor(userID)
	if !ok {
		return nil
	}

	txn := &models.Transaction{
		AccountID: accountID,
		Date:      e.Date.Format("2006-01-02"),
		Amount:    ToMilliunits(share.NetBalance),
		Memo:      e.Description,
		Cleared:   models.ClearedStateUncleared,
		Approved:  false,
		ImportID:  ImportID(e.ID),
	}

	if e.CreatedBy.ID != userID {
		payee := e.CreatedBy.FullName()
		txn.PayeeName = &payee
	}

	return txn
}

// ConvertAll converts expenses, drops those without a share for userID and
// orders the rest by UpdatedAt.
func ConvertAll(accountID, userID string, expenses []models.Expense) []models.SyncRecord {
	records := make([]models.SyncRecord, 0, len(expenses))
	for _, e := range expenses {
		txn := ConvertExpense(accountID, userID, e)
		if txn == nil {
			continue
		}
		records = append(records, models.SyncRecord{
			SourceID:    e.ID,
			UpdatedAt:   e.UpdatedAt,
			Transaction: *txn,
		})
	}

	SortRecords(records)
	return records
}

// SortRecords orders records by UpdatedAt ascending, then by source id
func SortRecords(records []models.SyncRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return lessSourceID(a.SourceID, b.SourceID)
	})
}

func lessSourceID(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return ai < bi
	case errA == nil:
		// integer ids sort ahead of everything else
		return true
	case errB == nil:
		return false
	}
	return strings.Compare(a, b) < 0
}
