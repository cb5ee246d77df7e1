package metrics

import (
	"time"
)

// Collector receives run and funding outcomes. Implementations can export
// them to any backend.
type Collector interface {
	// Sync runs
	RecordRun(result string, duration time.Duration)
	RecordWritten(kind string, n int)
	RecordWatermark(t time.Time)

	// Funding balancer
	RecordFunding(result string)

	// Failures by kind, see services.ClassifyError
	RecordError(kind string)

	// Source client breaker
	RecordCircuitState(client string, state CircuitState)
}

// Run results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultNoop    = "noop"
	ResultDryRun  = "dry_run"
)

// Write kinds
const (
	KindCreate = "create"
	KindUpdate = "update"
)

// Funding results
const (
	FundingApplied   = "applied"
	FundingUnchanged = "unchanged"
	FundingSkipped   = "skipped"
	FundingFailed    = "failed"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector discards everything. It is the default when metrics are off.
type NoOpCollector struct{}

func (NoOpCollector) RecordRun(result string, duration time.Duration) {}

func (NoOpCollector) RecordWritten(kind string, n int) {}

func (NoOpCollector) RecordWatermark(t time.Time) {}

func (NoOpCollector) RecordFunding(result string) {}

func (NoOpCollector) RecordError(kind string) {}

func (NoOpCollector) RecordCircuitState(client string, state CircuitState) {}
