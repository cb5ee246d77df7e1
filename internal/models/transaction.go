package models

import (
	"time"
)

// Cleared states accepted by the budgeting ledger
const (
	ClearedStateUncleared  = "uncleared"
	ClearedStateCleared    = "cleared"
	ClearedStateReconciled = "reconciled"
)

// Transaction represents a budgeting ledger transaction
type Transaction struct {
	ID        string  `json:"id,omitempty"`
	AccountID string  `json:"account_id" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Amount    int64   `json:"amount"` // in milliunits
	PayeeName *string `json:"payee_name,omitempty"`
	Memo      string  `json:"memo"`
	Cleared   string  `json:"cleared" validate:"omitempty,oneof=uncleared cleared reconciled"`
	Approved  bool    `json:"approved"`
	ImportID  string  `json:"import_id,omitempty"`
	Deleted   bool    `json:"deleted,omitempty"`
}

// SyncRecord pairs a converted transaction with the source fields the engine
// orders and checkpoints by.
type SyncRecord struct {
	SourceID    string      `json:"source_id"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Transaction Transaction `json:"transaction"`
}

// SaveResult is the ledger's answer to a batch create or update
type SaveResult struct {
	TransactionIDs     []string `json:"transaction_ids"`
	DuplicateImportIDs []string `json:"duplicate_import_ids"`
}

// Transactions unwraps the ledger payloads of a record batch
func Transactions(records []SyncRecord) []Transaction {
	txns := make([]Transaction, 0, len(records))
	for _, r := range records {
		txns = append(txns, r.Transaction)
	}
	return txns
}

// ImportIDs lists the import ids of a record batch in order
func ImportIDs(records []SyncRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Transaction.ImportID)
	}
	return ids
}

// MaxUpdatedAt returns the latest UpdatedAt in the batch, or the zero time for
// an empty batch.
func MaxUpdatedAt(records []SyncRecord) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.UpdatedAt.After(latest) {
			latest = r.UpdatedAt
		}
	}
	return latest
}
