package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/split2ynab/backend/internal/clients"
	"github.com/split2ynab/backend/internal/config"
)

// Error kinds surfaced by a run
var (
	// ErrConfiguration covers unknown budgets, accounts or category groups
	ErrConfiguration = config.ErrInvalid

	// ErrTransientSource is a failed or timed out source ledger query
	ErrTransientSource = errors.New("source ledger unavailable")

	// ErrStoreUnavailable is a state store that cannot be read or written
	ErrStoreUnavailable = errors.New("state store unavailable")

	// ErrWriteFailure is a batch the destination ledger rejected
	ErrWriteFailure = errors.New("destination write failed")
)

// SyncState is a step of the reconciliation state machine
type SyncState string

const (
	StateInit             SyncState = "INIT"
	StateFetchWatermark   SyncState = "FETCH_WATERMARK"
	StateQuerySource      SyncState = "QUERY_SOURCE"
	StateConvertAndSort   SyncState = "CONVERT_AND_SORT"
	StateBuildDedup       SyncState = "BUILD_DEDUP"
	StatePartition        SyncState = "PARTITION"
	StateWrite            SyncState = "WRITE"
	StateAdvanceWatermark SyncState = "ADVANCE_WATERMARK"
	StateDone             SyncState = "DONE"
	StateFailed           SyncState = "FAILED"
)

// RunError records the state a run failed in
type RunError struct {
	State SyncState
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("sync failed in %s: %v", e.State, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func wrapKind(kind error, msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", kind, msg, err)
}

// ClassifyError maps err to a short label for metrics and logs
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTransientSource):
		if errors.Is(err, clients.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return "source_timeout"
		}
		return "source"
	case errors.Is(err, ErrStoreUnavailable):
		return "store"
	case errors.Is(err, ErrWriteFailure):
		return "write"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}
