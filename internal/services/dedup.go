package services

import (
	"context"
	"fmt"

	"github.com/split2ynab/backend/internal/models"
)

// DedupIndex is the set of import ids already known to the destination
type DedupIndex map[string]struct{}

// NewDedupIndex builds an index, skipping blank ids
func NewDedupIndex(ids []string) DedupIndex {
	idx := make(DedupIndex, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		idx[id] = struct{}{}
	}
	return idx
}

// Has reports whether importID is already known
func (d DedupIndex) Has(importID string) bool {
	_, ok := d[importID]
	return ok
}

// Partition splits records into updates (known import ids) and creates,
// keeping the input order within each list.
func (d DedupIndex) Partition(records []models.SyncRecord) (updates, creates []models.SyncRecord) {
	for _, r := range records {
		if d.Has(r.Transaction.ImportID) {
			updates = append(updates, r)
		} else {
			creates = append(creates, r)
		}
	}
	return updates, creates
}

// ImportIDSource provides the existing identifier set for one account
type ImportIDSource interface {
	ImportIDs(ctx context.Context, budgetID, accountID string) (DedupIndex, error)
}

// LedgerImportIDs reads import ids from the destination account's transactions.
// Deleted transactions still hold their import id, so they are kept.
type LedgerImportIDs struct {
	Ledger DestinationLedger
}

func (l LedgerImportIDs) ImportIDs(ctx context.Context, budgetID, accountID string) (DedupIndex, error) {
	txns, err := l.Ledger.GetTransactionsByAccount(ctx, budgetID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for account %s: %w", accountID, err)
	}

	ids := make([]string, 0, len(txns))
	for _, t := range txns {
		ids = append(ids, t.ImportID)
	}
	return NewDedupIndex(ids), nil
}

// JournalLister is the subset of the journal store the dedup index needs
type JournalLister interface {
	ImportIDs(ctx context.Context) ([]string, error)
}

// JournalImportIDs reads import ids from the local journal
type JournalImportIDs struct {
	Journal JournalLister
}

func (j JournalImportIDs) ImportIDs(ctx context.Context, _, _ string) (DedupIndex, error) {
	ids, err := j.Journal.ImportIDs(ctx)
	if err != nil {
		return nil, wrapKind(ErrStoreUnavailable, "read journal", err)
	}
	return NewDedupIndex(ids), nil
}
