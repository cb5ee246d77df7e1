package services

import (
	"context"
	"sync"
	"time"

	"github.com/split2ynab/backend/internal/models"
)

// Status is the snapshot served by the status endpoint
type Status struct {
	LastRun     *RunResult     `json:"last_run,omitempty"`
	LastFunding *FundingStatus `json:"last_funding,omitempty"`
	Runs        int            `json:"runs"`
	Failures    int            `json:"failures"`
}

type FundingStatus struct {
	At          time.Time                  `json:"at"`
	Adjustments []models.FundingAdjustment `json:"adjustments"`
	Error       string                     `json:"error,omitempty"`
}

// StatusTracker remembers the most recent outcomes for the status endpoint
type StatusTracker struct {
	mu     sync.RWMutex
	status Status
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{}
}

func (t *StatusTracker) RecordRun(result *RunResult, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Runs++
	if err != nil {
		t.status.Failures++
	}
	if result != nil {
		snapshot := *result
		t.status.LastRun = &snapshot
	}
}

func (t *StatusTracker) RecordFunding(adjustments []models.FundingAdjustment, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fs := &FundingStatus{
		At:          time.Now(),
		Adjustments: append([]models.FundingAdjustment(nil), adjustments...),
	}
	if err != nil {
		fs.Error = err.Error()
	}
	t.status.LastFunding = fs
}

// Snapshot returns a copy safe to serialise outside the lock
func (t *StatusTracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// SyncJob wraps the engine for the scheduler, recording every outcome
func SyncJob(svc *SyncService, tracker *StatusTracker) Job {
	return func(ctx context.Context) error {
		result, err := svc.Run(ctx)
		if tracker != nil {
			tracker.RecordRun(result, err)
		}
		return err
	}
}

// FundingJob wraps the balancer for the scheduler
func FundingJob(svc *FundingService, tracker *StatusTracker) Job {
	return func(ctx context.Context) error {
		adjustments, err := svc.RunConfigured(ctx)
		if tracker != nil {
			tracker.RecordFunding(adjustments, err)
		}
		return err
	}
}
