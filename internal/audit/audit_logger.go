package audit

import (
	"time"

	"github.com/split2ynab/backend/internal/logging"
	"github.com/split2ynab/backend/internal/models"
	"go.uber.org/zap"
)

// Event types
const (
	EventBatch     = "BATCH"
	EventWatermark = "WATERMARK"
	EventFunding   = "FUNDING"
	EventError     = "ERROR"
)

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Details   any       `json:"details"`
}

// AuditLogger writes one structured line per ledger mutation
type AuditLogger struct {
	logger *logging.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *logging.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger.Named("audit"),
		now:    time.Now,
	}
}

// LogBatch records a create or update batch sent to the budget
func (a *AuditLogger) LogBatch(runID, kind string, records []models.SyncRecord, err error) {
	status := "SUCCESS"
	details := map[string]any{
		"kind":       kind,
		"count":      len(records),
		"import_ids": models.ImportIDs(records),
	}
	if err != nil {
		status = "FAILED"
		details["error"] = err.Error()
	}

	a.log(AuditEvent{
		EventType: EventBatch,
		RunID:     runID,
		Status:    status,
		Details:   details,
	})
}

// LogWatermark records a watermark advance
func (a *AuditLogger) LogWatermark(runID string, from *time.Time, to time.Time) {
	details := map[string]string{"to": models.FormatWatermark(to)}
	if from != nil {
		details["from"] = models.FormatWatermark(*from)
	}

	a.log(AuditEvent{
		EventType: EventWatermark,
		RunID:     runID,
		Status:    "SUCCESS",
		Details:   details,
	})
}

// LogFunding records the balancer's decision for one category
func (a *AuditLogger) LogFunding(runID string, adj models.FundingAdjustment) {
	status := "SUCCESS"
	switch {
	case adj.Error != "":
		status = "FAILED"
	case !adj.Applied:
		status = "SKIPPED"
	}

	a.log(AuditEvent{
		EventType: EventFunding,
		RunID:     runID,
		Status:    status,
		Details:   adj,
	})
}

func (a *AuditLogger) LogError(runID, state string, err error) {
	a.log(AuditEvent{
		EventType: EventError,
		RunID:     runID,
		Status:    "FAILED",
		Details:   map[string]string{"state": state, "error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	event.Timestamp = a.now()
	a.logger.Info("audit",
		zap.String("event_type", event.EventType),
		zap.String("run_id", event.RunID),
		zap.String("status", event.Status),
		zap.Time("timestamp", event.Timestamp),
		zap.Any("details", event.Details),
	)
}
