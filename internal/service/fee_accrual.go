package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-erp-api/internal/dto"
	"github.com/noah-isme/campus-erp-api/internal/models"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
)

// AccrueLateFees recomputes the late fee of every past-due outstanding record
// from its current days overdue and marks it overdue. Re-running on the same
// day leaves the records unchanged.
func (s *FeeLedgerService) AccrueLateFees(ctx context.Context) (*dto.AccrualResult, error) {
	now := s.now()
	result := &dto.AccrualResult{RanAt: now}

	err := s.withTx(ctx, "late fee", func(tx *sqlx.Tx) error {
		fees, err := s.fees.ListPastDueForUpdate(ctx, tx, now)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overdue fees")
		}
		for i := range fees {
			fee := &fees[i]
			lateFee := fee.AccruedLateFee(now)
			if lateFee == fee.LateFee && fee.Status == models.FeeStatusOverdue {
				result.TotalLateFee += lateFee
				continue
			}
			if err := s.fees.UpdateLateFee(ctx, tx, fee.ID, lateFee, models.FeeStatusOverdue); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update late fee")
			}
			result.RecordsUpdated++
			result.TotalLateFee += lateFee
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("late fees accrued",
		zap.Int("records_updated", result.RecordsUpdated),
		zap.Int64("total_late_fee", result.TotalLateFee),
	)
	s.side.Metrics.RecordLateFeeSweep(result.RecordsUpdated)
	if result.RecordsUpdated > 0 {
		s.invalidateStats(ctx)
	}
	return result, nil
}

type lateFeeAccruer interface {
	AccrueLateFees(ctx context.Context) (*dto.AccrualResult, error)
}

// LateFeeScheduler runs the late fee sweep on a fixed interval inside the API process.
type LateFeeScheduler struct {
	ledger   lateFeeAccruer
	interval time.Duration
	logger   *zap.Logger
}

// NewLateFeeScheduler constructs a scheduler. A non-positive interval disables it.
func NewLateFeeScheduler(ledger lateFeeAccruer, interval time.Duration, logger *zap.Logger) *LateFeeScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LateFeeScheduler{ledger: ledger, interval: interval, logger: logger}
}

// Start boots a goroutine that sweeps on every tick until ctx is cancelled.
func (s *LateFeeScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
	s.logger.Info("late fee scheduler started", zap.Duration("interval", s.interval))
}

// RunOnce performs a single sweep, logging failures.
func (s *LateFeeScheduler) RunOnce(ctx context.Context) {
	if _, err := s.ledger.AccrueLateFees(ctx); err != nil {
		s.logger.Warn("late fee sweep failed", zap.Error(err))
	}
}
