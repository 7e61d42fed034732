package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-erp-api/internal/dto"
	"github.com/noah-isme/campus-erp-api/internal/models"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
	"github.com/noah-isme/campus-erp-api/pkg/export"
)

const reportDateLayout = "2006-01-02"

type feeReportSource interface {
	Report(ctx context.Context, filter models.FeeFilter) ([]models.FeeReportRow, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// FeeReportService builds fee collection reports in JSON, CSV or PDF form.
type FeeReportService struct {
	fees      feeReportSource
	csv       datasetRenderer
	pdf       datasetRenderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewFeeReportService constructs a FeeReportService.
func NewFeeReportService(fees feeReportSource, csv, pdf datasetRenderer, validate *validator.Validate, logger *zap.Logger) *FeeReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &FeeReportService{
		fees:      fees,
		csv:       csv,
		pdf:       pdf,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Report returns the filtered report rows and summary.
func (s *FeeReportService) Report(ctx context.Context, req dto.FeeReportFilter) (*dto.FeeReport, error) {
	filter, err := s.parseFilter(req)
	if err != nil {
		return nil, err
	}
	rows, err := s.fees.Report(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build fee report")
	}
	if rows == nil {
		rows = []models.FeeReportRow{}
	}
	return &dto.FeeReport{Rows: rows, Summary: summarizeReport(rows)}, nil
}

// Export renders the report as a CSV or PDF document.
func (s *FeeReportService) Export(ctx context.Context, req dto.FeeReportFilter) (*dto.Document, error) {
	format := strings.ToLower(req.Format)
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "export format must be csv or pdf")
	}
	report, err := s.Report(ctx, req)
	if err != nil {
		return nil, err
	}

	dataset := reportDataset(report)
	stamp := s.now().Format("20060102")
	var (
		data []byte
		doc  dto.Document
	)
	switch format {
	case "csv":
		data, err = s.csv.Render(dataset)
		doc = dto.Document{Filename: fmt.Sprintf("fee_report_%s.csv", stamp), ContentType: "text/csv; charset=utf-8"}
	case "pdf":
		data, err = s.pdf.Render(dataset)
		doc = dto.Document{Filename: fmt.Sprintf("fee_report_%s.pdf", stamp), ContentType: "application/pdf"}
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render fee report")
	}
	doc.Data = data
	s.logger.Info("fee report exported", zap.String("format", format), zap.Int("rows", len(report.Rows)))
	return &doc, nil
}

func (s *FeeReportService) parseFilter(req dto.FeeReportFilter) (models.FeeFilter, error) {
	var filter models.FeeFilter
	if err := s.validator.Struct(req); err != nil {
		return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report filter")
	}
	if req.DateFrom != "" {
		from, err := time.Parse(reportDateLayout, req.DateFrom)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "date_from must be YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := time.Parse(reportDateLayout, req.DateTo)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "date_to must be YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "date_to must not be before date_from")
	}
	if filter.DateTo != nil {
		// date_to is inclusive; the repository compares with <.
		end := filter.DateTo.AddDate(0, 0, 1)
		filter.DateTo = &end
	}
	if req.CourseID != "" {
		course := req.CourseID
		filter.CourseID = &course
	}
	if req.Status != "" {
		status := models.FeeStatus(req.Status)
		filter.Status = &status
	}
	return filter, nil
}

func summarizeReport(rows []models.FeeReportRow) dto.FeeReportSummary {
	summary := dto.FeeReportSummary{TotalRecords: len(rows)}
	for i := range rows {
		total := rows[i].TotalAmount()
		summary.TotalAmount += total
		switch rows[i].Status {
		case models.FeeStatusPaid:
			summary.PaidAmount += total
		case models.FeeStatusPending, models.FeeStatusOverdue:
			summary.PendingAmount += total
		}
	}
	if summary.TotalAmount > 0 {
		rate := float64(summary.PaidAmount) / float64(summary.TotalAmount) * 100
		summary.CollectionRate = float64(int64(rate*100+0.5)) / 100
	}
	return summary
}

func reportDataset(report *dto.FeeReport) export.Dataset {
	headers := []string{"Receipt", "Student", "Name", "Course", "Fee Type", "Semester", "Year", "Amount", "Late Fee", "Discount", "Total", "Status", "Due Date", "Paid On"}
	rows := make([]map[string]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		paidOn := ""
		if row.PaymentDate != nil {
			paidOn = row.PaymentDate.Format(reportDateLayout)
		}
		rows = append(rows, map[string]string{
			"Receipt":  deref(row.ReceiptNumber),
			"Student":  row.StudentID,
			"Name":     row.StudentName,
			"Course":   row.CourseName,
			"Fee Type": row.FeeType.Label(),
			"Semester": strconv.Itoa(row.Semester),
			"Year":     row.AcademicYear,
			"Amount":   export.FormatAmount(row.Amount),
			"Late Fee": export.FormatAmount(row.LateFee),
			"Discount": export.FormatAmount(row.Discount),
			"Total":    export.FormatAmount(row.TotalAmount()),
			"Status":   string(row.Status),
			"Due Date": row.DueDate.Format(reportDateLayout),
			"Paid On":  paidOn,
		})
	}
	summary := report.Summary
	return export.Dataset{
		Title:   "Fee Collection Report",
		Headers: headers,
		Rows:    rows,
		Summary: [][2]string{
			{"Total Records", strconv.Itoa(summary.TotalRecords)},
			{"Total Amount", export.FormatAmount(summary.TotalAmount)},
			{"Collected", export.FormatAmount(summary.PaidAmount)},
			{"Pending", export.FormatAmount(summary.PendingAmount)},
			{"Collection Rate", strconv.FormatFloat(summary.CollectionRate, 'f', 2, 64) + "%"},
		},
	}
}
