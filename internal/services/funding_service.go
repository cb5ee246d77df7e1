package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/split2ynab/backend/internal/audit"
	"github.com/split2ynab/backend/internal/config"
	"github.com/split2ynab/backend/internal/logging"
	"github.com/split2ynab/backend/internal/metrics"
	"github.com/split2ynab/backend/internal/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// FundingService aligns each credit card payment category with the balance
// owed on the account of the same name.
type FundingService struct {
	cfg     *config.Config
	ledger  DestinationLedger
	logger  *logging.Logger
	audit   *audit.AuditLogger
	metrics metrics.Collector
	now     func() time.Time
}

func NewFundingService(cfg *config.Config, ledger DestinationLedger, logger *logging.Logger) *FundingService {
	return &FundingService{
		cfg:     cfg,
		ledger:  ledger,
		logger:  logger.Named("funding"),
		audit:   audit.NewAuditLogger(logger),
		metrics: metrics.NoOpCollector{},
		now:     time.Now,
	}
}

func (s *FundingService) WithMetrics(c metrics.Collector) *FundingService {
	s.metrics = c
	return s
}

// CurrentMonth is the first day of the current month, as the budget expects it
func (s *FundingService) CurrentMonth() string {
	return s.now().Format("2006-01") + "-01"
}

// RunConfigured rebalances the configured budget
func (s *FundingService) RunConfigured(ctx context.Context) ([]models.FundingAdjustment, error) {
	budgetID, err := ResolveBudget(ctx, s.ledger, s.cfg.YNAB.Budget)
	if err != nil {
		return nil, err
	}
	return s.Rebalance(ctx, budgetID)
}

// Rebalance computes and applies the funding delta for every category in the
// configured group. A failed category does not stop the others; failures are
// combined into the returned error alongside the full result list.
func (s *FundingService) Rebalance(ctx context.Context, budgetID string) ([]models.FundingAdjustment, error) {
	runID := uuid.NewString()
	month := s.CurrentMonth()
	log := s.logger.With(
		zap.String("run_id", runID),
		zap.String("budget_id", budgetID),
		zap.String("month", month),
	)

	groups, err := s.ledger.GetCategoryGroups(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list category groups: %w", err)
	}

	var group *models.CategoryGroup
	for i := range groups {
		if groups[i].Name == s.cfg.CCSGroup && !groups[i].Deleted {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		return nil, fmt.Errorf("%w: category group %s not found", ErrConfiguration, s.cfg.CCSGroup)
	}

	accounts, err := s.ledger.GetAccounts(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	byName := make(map[string]models.Account, len(accounts))
	for _, a := range accounts {
		if a.Deleted {
			continue
		}
		byName[a.Name] = a
	}

	var (
		adjustments []models.FundingAdjustment
		errs        error
	)
	for _, cat := range group.Categories {
		if cat.Deleted {
			continue
		}

		account, ok := byName[cat.Name]
		if !ok {
			log.Warn("no account for credit card category", zap.String("category", cat.Name))
			s.metrics.RecordFunding(metrics.FundingSkipped)
			continue
		}

		adj := ComputeFunding(cat, account)
		if adj.Delta == 0 {
			s.metrics.RecordFunding(metrics.FundingUnchanged)
		} else if s.cfg.NoWrite {
			log.Info("funding write suppressed", zap.String("category", cat.Name), zap.Int64("delta", adj.Delta))
			s.metrics.RecordFunding(metrics.FundingSkipped)
		} else {
			if _, err := s.ledger.UpdateMonthCategory(ctx, budgetID, month, cat.ID, adj.NewBudgeted); err != nil {
				adj.Error = err.Error()
				errs = multierr.Append(errs, fmt.Errorf("category %s: %w", cat.Name, err))
				s.metrics.RecordFunding(metrics.FundingFailed)
			} else {
				adj.Applied = true
				s.metrics.RecordFunding(metrics.FundingApplied)
			}
		}

		s.audit.LogFunding(runID, adj)
		log.Info("credit card category",
			zap.String("category", adj.Category),
			zap.Int64("needed_balance", adj.NeededBalance),
			zap.Int64("category_balance", adj.CategoryBalance),
			zap.Int64("delta", adj.Delta),
			zap.Bool("applied", adj.Applied),
		)
		adjustments = append(adjustments, adj)
	}

	if errs != nil {
		return adjustments, wrapKind(ErrWriteFailure, "fund credit card categories", errs)
	}
	return adjustments, nil
}

// ComputeFunding works out how much cat must be topped up so its balance
// covers the debt on account.
func ComputeFunding(cat models.Category, account models.Account) models.FundingAdjustment {
	needed := -account.Balance
	delta := needed - cat.Balance
	return models.FundingAdjustment{
		CategoryID:      cat.ID,
		Category:        cat.Name,
		AccountBalance:  account.Balance,
		CategoryBalance: cat.Balance,
		NeededBalance:   needed,
		Delta:           delta,
		Budgeted:        cat.Budgeted,
		NewBudgeted:     cat.Budgeted + delta,
	}
}
