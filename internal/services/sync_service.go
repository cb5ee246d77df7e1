package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/split2ynab/backend/internal/audit"
	"github.com/split2ynab/backend/internal/config"
	"github.com/split2ynab/backend/internal/database"
	"github.com/split2ynab/backend/internal/logging"
	"github.com/split2ynab/backend/internal/metrics"
	"github.com/split2ynab/backend/internal/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RunResult summarises one pass of the reconciliation engine
type RunResult struct {
	RunID             string     `json:"run_id"`
	State             SyncState  `json:"state"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        time.Time  `json:"finished_at"`
	BudgetID          string     `json:"budget_id,omitempty"`
	AccountID         string     `json:"account_id,omitempty"`
	Fetched           int        `json:"fetched"`
	Converted         int        `json:"converted"`
	Updated           int        `json:"updated"`
	Created           int        `json:"created"`
	DryRun            bool       `json:"dry_run"`
	PreviousWatermark *time.Time `json:"previous_watermark,omitempty"`
	Watermark         *time.Time `json:"watermark,omitempty"`
	WatermarkAdvanced bool       `json:"watermark_advanced"`
	Error             string     `json:"error,omitempty"`
}

// Written is the number of records sent to the budget
func (r *RunResult) Written() int {
	return r.Updated + r.Created
}

type SyncService struct {
	cfg     *config.Config
	source  SourceLedger
	ledger  DestinationLedger
	state   StateStore
	dedup   ImportIDSource
	logger  *logging.Logger
	audit   *audit.AuditLogger
	metrics metrics.Collector
}

func NewSyncService(cfg *config.Config, source SourceLedger, ledger DestinationLedger, state StateStore, dedup ImportIDSource, logger *logging.Logger) *SyncService {
	if dedup == nil {
		dedup = LedgerImportIDs{Ledger: ledger}
	}
	return &SyncService{
		cfg:     cfg,
		source:  source,
		ledger:  ledger,
		state:   state,
		dedup:   dedup,
		logger:  logger.Named("sync"),
		audit:   audit.NewAuditLogger(logger),
		metrics: metrics.NoOpCollector{},
	}
}

// WithMetrics sets the collector run outcomes are reported to
func (s *SyncService) WithMetrics(c metrics.Collector) *SyncService {
	s.metrics = c
	return s
}

// Run performs one reconciliation pass. The watermark only moves after every
// batch of the pass has been accepted by the budget.
func (s *SyncService) Run(ctx context.Context) (result *RunResult, err error) {
	result = &RunResult{
		RunID:     uuid.NewString(),
		State:     StateInit,
		StartedAt: time.Now(),
		DryRun:    s.cfg.NoWrite,
	}
	log := s.logger.With(zap.String("run_id", result.RunID))
	outcome := metrics.ResultSuccess

	defer func() {
		result.FinishedAt = time.Now()
		if err != nil {
			var runErr *RunError
			state := string(result.State)
			if errors.As(err, &runErr) {
				state = string(runErr.State)
			}
			result.Error = err.Error()
			result.State = StateFailed
			outcome = metrics.ResultFailure

			s.metrics.RecordError(ClassifyError(err))
			s.audit.LogError(result.RunID, state, err)
			log.Error("sync run failed", zap.String("state", state), zap.Error(err))
		}
		s.metrics.RecordRun(outcome, result.FinishedAt.Sub(result.StartedAt))
	}()

	fail := func(state SyncState, err error) (*RunResult, error) {
		return result, &RunError{State: state, Err: err}
	}

	budgetID, accountID, err := s.resolveAccount(ctx)
	if err != nil {
		return fail(StateInit, err)
	}
	result.BudgetID, result.AccountID = budgetID, accountID
	log = log.With(zap.String("budget_id", budgetID), zap.String("account_id", accountID))

	// FETCH_WATERMARK
	result.State = StateFetchWatermark
	latest, hasLatest, err := s.state.Latest(ctx)
	if err != nil {
		return fail(StateFetchWatermark, wrapKind(ErrStoreUnavailable, "read watermark", err))
	}
	if hasLatest {
		prev := latest
		result.PreviousWatermark = &prev
	}

	startDate, err := s.startDate(ctx)
	if err != nil {
		return fail(StateFetchWatermark, err)
	}
	log.Info("watermark loaded",
		zap.Bool("present", hasLatest),
		zap.Time("latest_update", latest),
		zap.String("start_date", startDate),
	)

	// QUERY_SOURCE
	result.State = StateQuerySource
	user, expenses, err := s.querySource(ctx, startDate, latest, hasLatest)
	if err != nil {
		log.Error("source query failed",
			zap.String("dated_after", startDate),
			zap.Bool("incremental", hasLatest),
			zap.Error(err),
		)
		return fail(StateQuerySource, err)
	}
	result.Fetched = len(expenses)
	log.Debug("expenses", zap.String("user_id", user.ID), zap.Any("expenses", expenses))

	// CONVERT_AND_SORT
	result.State = StateConvertAndSort
	records := ConvertAll(accountID, user.ID, expenses)
	result.Converted = len(records)
	log.Debug("unlimited transactions", zap.Any("records", records))

	// BUILD_DEDUP
	result.State = StateBuildDedup
	index, err := s.dedup.ImportIDs(ctx, budgetID, accountID)
	if err != nil {
		return fail(StateBuildDedup, err)
	}
	log.Debug("existing import ids", zap.Int("count", len(index)))

	// PARTITION
	result.State = StatePartition
	if s.cfg.Limit > 0 && len(records) > s.cfg.Limit {
		records = records[:s.cfg.Limit]
	}
	updates, creates := index.Partition(records)
	log.Debug("transactions", zap.Any("updates", updates), zap.Any("creates", creates))

	// WRITE
	result.State = StateWrite
	if len(records) == 0 {
		log.Info("nothing to send", zap.Int("fetched", result.Fetched))
		outcome = metrics.ResultNoop
		result.State = StateDone
		return result, nil
	}
	if s.cfg.NoWrite {
		log.Info("writes suppressed",
			zap.Int("updates", len(updates)),
			zap.Int("creates", len(creates)),
		)
		outcome = metrics.ResultDryRun
		result.State = StateDone
		return result, nil
	}

	if err := s.write(ctx, result, budgetID, updates, creates); err != nil {
		return fail(StateWrite, err)
	}
	log.Info("transactions sent",
		zap.Int("updated", result.Updated),
		zap.Int("created", result.Created),
	)

	// ADVANCE_WATERMARK
	result.State = StateAdvanceWatermark
	next := models.MaxUpdatedAt(records)
	if !s.cfg.Writeback {
		log.Info("watermark writeback disabled", zap.Time("max_updated_at", next))
		result.State = StateDone
		return result, nil
	}

	if err := s.state.Advance(ctx, records); err != nil {
		return fail(StateAdvanceWatermark, wrapKind(ErrStoreUnavailable, "advance watermark", err))
	}
	result.Watermark = &next
	result.WatermarkAdvanced = true
	s.metrics.RecordWatermark(next)
	s.audit.LogWatermark(result.RunID, result.PreviousWatermark, next)
	log.Info("watermark advanced", zap.Time("max_updated_at", next))

	result.State = StateDone
	return result, nil
}

func (s *SyncService) resolveAccount(ctx context.Context) (string, string, error) {
	budgetID, err := ResolveBudget(ctx, s.ledger, s.cfg.YNAB.Budget)
	if err != nil {
		return "", "", err
	}

	accounts, err := s.ledger.GetAccounts(ctx, budgetID)
	if err != nil {
		return "", "", fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		if a.Name == s.cfg.YNAB.Account || a.ID == s.cfg.YNAB.Account {
			return budgetID, a.ID, nil
		}
	}
	return "", "", fmt.Errorf("%w: account %s not found", ErrConfiguration, s.cfg.YNAB.Account)
}

// ResolveBudget finds a budget whose name or id equals nameOrID
func ResolveBudget(ctx context.Context, ledger DestinationLedger, nameOrID string) (string, error) {
	budgets, err := ledger.GetBudgets(ctx)
	if err != nil {
		return "", fmt.Errorf("list budgets: %w", err)
	}
	for _, b := range budgets {
		if b.Name == nameOrID || b.ID == nameOrID {
			return b.ID, nil
		}
	}
	return "", fmt.Errorf("%w: budget %s not found", ErrConfiguration, nameOrID)
}

func (s *SyncService) startDate(ctx context.Context) (string, error) {
	if s.cfg.StartDate != "" {
		return s.cfg.StartDate, nil
	}
	start, err := s.state.Lookup(ctx, database.PathStartDate)
	if err != nil {
		return "", wrapKind(ErrStoreUnavailable, "read start date", err)
	}
	return start, nil
}

func (s *SyncService) querySource(ctx context.Context, startDate string, latest time.Time, hasLatest bool) (*models.User, []models.Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SourceTimeout)
	defer cancel()

	user, err := s.source.GetCurrentUser(ctx)
	if err != nil {
		return nil, nil, wrapKind(ErrTransientSource, "get current user", err)
	}

	q := models.ExpenseQuery{DatedAfter: startDate}
	if hasLatest {
		q.UpdatedAfter = &latest
	}
	expenses, err := s.source.GetExpenses(ctx, q)
	if err != nil {
		return nil, nil, wrapKind(ErrTransientSource, "get expenses", err)
	}

	if !hasLatest {
		return user, expenses, nil
	}

	// The source's updated_after filter is not trusted to be strict
	fresh := expenses[:0]
	for _, e := range expenses {
		if e.UpdatedAt.After(latest) {
			fresh = append(fresh, e)
		}
	}
	return user, fresh, nil
}

// write sends updates then creates. Both are attempted; any failure fails the pass.
func (s *SyncService) write(ctx context.Context, result *RunResult, budgetID string, updates, creates []models.SyncRecord) error {
	var errs error

	if len(updates) > 0 {
		_, err := s.ledger.UpdateTransactions(ctx, budgetID, models.Transactions(updates))
		s.audit.LogBatch(result.RunID, metrics.KindUpdate, updates, err)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("update %d transactions: %w", len(updates), err))
		} else {
			result.Updated = len(updates)
			s.metrics.RecordWritten(metrics.KindUpdate, len(updates))
		}
	}

	if len(creates) > 0 {
		res, err := s.ledger.CreateTransactions(ctx, budgetID, models.Transactions(creates))
		s.audit.LogBatch(result.RunID, metrics.KindCreate, creates, err)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("create %d transactions: %w", len(creates), err))
		} else {
			result.Created = len(creates)
			s.metrics.RecordWritten(metrics.KindCreate, len(creates))
			if res != nil && len(res.DuplicateImportIDs) > 0 {
				s.logger.Warn("budget reported duplicate import ids",
					zap.String("run_id", result.RunID),
					zap.Strings("import_ids", res.DuplicateImportIDs),
				)
			}
		}
	}

	if errs != nil {
		return wrapKind(ErrWriteFailure, "write batches", errs)
	}
	return nil
}
