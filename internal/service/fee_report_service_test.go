package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-erp-api/internal/dto"
	"github.com/noah-isme/campus-erp-api/internal/models"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
)

type stubReportSource struct {
	rows   []models.FeeReportRow
	err    error
	filter models.FeeFilter
}

func (s *stubReportSource) Report(ctx context.Context, filter models.FeeFilter) ([]models.FeeReportRow, error) {
	s.filter = filter
	return s.rows, s.err
}

func reportRows() []models.FeeReportRow {
	paid := paidFee("f1", "RCP20261000001", 30000)
	pending := outstandingFee("f2", 10000, ledgerNow.AddDate(0, 0, 5))
	overdue := outstandingFee("f3", 9000, ledgerNow.AddDate(0, 0, -5))
	overdue.Status = models.FeeStatusOverdue
	overdue.LateFee = 1000
	cancelled := outstandingFee("f4", 5000, ledgerNow.AddDate(0, 0, -5))
	cancelled.Status = models.FeeStatusCancelled
	rows := []models.FeeReportRow{}
	for _, fee := range []models.Fee{paid, pending, overdue, cancelled} {
		rows = append(rows, models.FeeReportRow{Fee: fee, StudentName: "Asha Patel", CourseName: "Computer Science"})
	}
	return rows
}

func TestFeeReportSummary(t *testing.T) {
	source := &stubReportSource{rows: reportRows()}
	svc := NewFeeReportService(source, nil, nil, nil, nil)

	report, err := svc.Report(context.Background(), dto.FeeReportFilter{DateFrom: "2026-10-01", DateTo: "2026-10-31", CourseID: "course-cs", Status: "paid"})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.TotalRecords)
	assert.Equal(t, int64(55000), report.Summary.TotalAmount)
	assert.Equal(t, int64(30000), report.Summary.PaidAmount)
	assert.Equal(t, int64(20000), report.Summary.PendingAmount)
	assert.InDelta(t, 54.55, report.Summary.CollectionRate, 0.001)

	require.NotNil(t, source.filter.DateFrom)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *source.filter.DateFrom)
	require.NotNil(t, source.filter.DateTo)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), *source.filter.DateTo)
	require.NotNil(t, source.filter.Status)
	assert.Equal(t, models.FeeStatusPaid, *source.filter.Status)
	assert.Equal(t, "course-cs", *source.filter.CourseID)
}

func TestFeeReportRejectsBadFilters(t *testing.T) {
	svc := NewFeeReportService(&stubReportSource{}, nil, nil, nil, nil)

	_, err := svc.Report(context.Background(), dto.FeeReportFilter{DateFrom: "01/10/2026"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Report(context.Background(), dto.FeeReportFilter{DateFrom: "2026-10-31", DateTo: "2026-10-01"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Report(context.Background(), dto.FeeReportFilter{Status: "refunded"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Export(context.Background(), dto.FeeReportFilter{Format: "json"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeeReportExportCSV(t *testing.T) {
	svc := NewFeeReportService(&stubReportSource{rows: reportRows()}, nil, nil, nil, nil)
	svc.now = func() time.Time { return ledgerNow }

	doc, err := svc.Export(context.Background(), dto.FeeReportFilter{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "fee_report_20261019.csv", doc.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("\xEF\xBB\xBF")))
	assert.Contains(t, string(doc.Data), "Receipt,Student,Name,Course")
	assert.Contains(t, string(doc.Data), "RCP20261000001")
	assert.Contains(t, string(doc.Data), "Collection Rate,54.55%")
}

func TestFeeReportExportPDF(t *testing.T) {
	svc := NewFeeReportService(&stubReportSource{rows: reportRows()}, nil, nil, nil, nil)

	doc, err := svc.Export(context.Background(), dto.FeeReportFilter{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF")))
}

func TestFeeReportSourceFailure(t *testing.T) {
	svc := NewFeeReportService(&stubReportSource{err: errors.New("connection reset")}, nil, nil, nil, nil)

	_, err := svc.Report(context.Background(), dto.FeeReportFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
