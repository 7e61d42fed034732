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

const statisticsTrendMonths = 6

// PendingFeesForStudent returns the student's outstanding fees, due date first,
// with late fees brought up to date. Refreshed late fees are persisted.
func (s *FeeLedgerService) PendingFeesForStudent(ctx context.Context, studentID string, actor Actor) (*dto.PendingFeesResponse, error) {
	if err := actor.authorizeStudent(studentID); err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var fees []models.Fee
	err = s.withTx(ctx, "pending fees", func(tx *sqlx.Tx) error {
		outstanding, err := s.fees.ListOutstandingByStudent(ctx, tx, student.RollNo, true)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending fees")
		}
		for i := range outstanding {
			fee := &outstanding[i]
			if !fee.IsOverdue(now) {
				continue
			}
			lateFee := fee.AccruedLateFee(now)
			if lateFee == fee.LateFee && fee.Status == models.FeeStatusOverdue {
				continue
			}
			if err := s.fees.UpdateLateFee(ctx, tx, fee.ID, lateFee, models.FeeStatusOverdue); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh late fee")
			}
			fee.LateFee = lateFee
			fee.Status = models.FeeStatusOverdue
		}
		fees = outstanding
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.PendingFeesResponse{StudentID: student.RollNo, StudentName: student.Name, Fees: fees}
	if resp.Fees == nil {
		resp.Fees = []models.Fee{}
	}
	for i := range fees {
		resp.Summary.TotalAmount += fees[i].Amount
		resp.Summary.TotalLateFee += fees[i].LateFee
		resp.Summary.TotalDue += fees[i].TotalAmount()
		if fees[i].Status == models.FeeStatusOverdue {
			resp.Summary.OverdueCount++
		}
	}
	resp.Summary.Count = len(fees)
	return resp, nil
}

// Statistics aggregates ledger totals. Results are cached until the next mutation.
func (s *FeeLedgerService) Statistics(ctx context.Context) (*dto.FeeStatistics, error) {
	if s.side.Cache != nil {
		var cached dto.FeeStatistics
		hit, err := s.side.Cache.Get(ctx, feeStatsCacheKey, &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}

	totals, err := s.fees.StatusTotals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate fees")
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthly, err := s.fees.CollectedBetween(ctx, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate monthly collection")
	}
	trendStart := monthStart.AddDate(0, -(statisticsTrendMonths - 1), 0)
	trend, err := s.fees.MonthlyCollections(ctx, trendStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate collection trend")
	}
	byType, err := s.fees.FeeTypeBreakdown(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate fee types")
	}
	byCourse, err := s.fees.CourseBreakdown(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate courses")
	}
	for i := range byCourse {
		if byCourse[i].TotalFees > 0 {
			byCourse[i].CollectionRate = float64(byCourse[i].PaidFees) / float64(byCourse[i].TotalFees) * 100
		}
	}
	if byCourse == nil {
		byCourse = []models.CourseFeeTotal{}
	}

	stats := &dto.FeeStatistics{
		MonthlyCollection: monthly,
		MonthlyTrend:      fillTrend(trend, trendStart, statisticsTrendMonths),
		ByFeeType:         fillFeeTypes(byType),
		ByCourse:          byCourse,
		GeneratedAt:       now,
	}
	for _, total := range totals {
		stats.TotalFees += total.Count
		switch total.Status {
		case models.FeeStatusPaid:
			stats.PaidFees = total.Count
			stats.TotalCollected = total.Total
		case models.FeeStatusPending:
			stats.PendingFees = total.Count
			stats.TotalPending += total.Total
		case models.FeeStatusOverdue:
			stats.OverdueFees = total.Count
			stats.TotalPending += total.Total
		case models.FeeStatusCancelled:
			stats.CancelledFees = total.Count
		}
	}

	if s.side.Cache != nil {
		if err := s.side.Cache.Set(ctx, feeStatsCacheKey, stats, s.cfg.StatsCacheTTL); err != nil {
			s.logger.Warn("failed to cache fee statistics", zap.Error(err))
		}
	}
	return stats, nil
}

// fillTrend returns one bucket per month from start, zero-filling months without collections.
func fillTrend(rows []models.MonthlyCollection, start time.Time, months int) []models.MonthlyCollection {
	byMonth := make(map[string]int64, len(rows))
	for _, row := range rows {
		byMonth[row.Month] = row.Total
	}
	trend := make([]models.MonthlyCollection, 0, months)
	for i := 0; i < months; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		trend = append(trend, models.MonthlyCollection{Month: key, Total: byMonth[key]})
	}
	return trend
}

// fillFeeTypes returns one row per fee type in display order, zero for types
// without records.
func fillFeeTypes(rows []models.FeeTypeTotal) []models.FeeTypeTotal {
	byType := make(map[models.FeeType]models.FeeTypeTotal, len(rows))
	for _, row := range rows {
		byType[row.FeeType] = row
	}
	out := make([]models.FeeTypeTotal, 0, len(models.FeeTypes))
	for _, feeType := range models.FeeTypes {
		row := byType[feeType]
		row.FeeType = feeType
		out = append(out, row)
	}
	return out
}
