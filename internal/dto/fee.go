package dto

import (
	"time"

	"github.com/noah-isme/campus-erp-api/internal/models"
)

// GenerateDemandRequest captures POST /fees/demand payload.
type GenerateDemandRequest struct {
	CourseIDs    []string         `json:"courseIds" validate:"required,min=1,dive,required"`
	Semester     int              `json:"semester" validate:"required,min=1,max=8"`
	AcademicYear string           `json:"academicYear" validate:"required,len=7"`
	FeeTypes     []models.FeeType `json:"feeTypes" validate:"omitempty,dive,oneof=tuition hostel library laboratory exam miscellaneous"`
	DueInDays    int              `json:"dueInDays" validate:"omitempty,min=1,max=365"`
}

// DemandSkip records a student left untouched by demand generation.
type DemandSkip struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// DemandLine previews a created fee record.
type DemandLine struct {
	FeeID     string         `json:"feeId"`
	StudentID string         `json:"studentId"`
	FeeType   models.FeeType `json:"feeType"`
	Amount    int64          `json:"amount"`
}

// GenerateDemandResult summarises a demand generation run.
type GenerateDemandResult struct {
	FeesCreated     int          `json:"feesCreated"`
	StudentsSkipped int          `json:"studentsSkipped"`
	Skipped         []DemandSkip `json:"skipped"`
	DueDate         time.Time    `json:"dueDate"`
	Created         []DemandLine `json:"created"`
}

// AccrualResult summarises a late fee sweep.
type AccrualResult struct {
	RecordsUpdated int       `json:"recordsUpdated"`
	TotalLateFee   int64     `json:"totalLateFee"`
	RanAt          time.Time `json:"ranAt"`
}

// PayFeeRequest captures POST /fees/pay payload.
type PayFeeRequest struct {
	StudentID       string               `json:"studentId" validate:"required"`
	Amount          int64                `json:"amount" validate:"required,gt=0"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash online bank_transfer cheque demand_draft"`
	TransactionID   string               `json:"transactionId" validate:"omitempty,max=100,excludesall=."`
	ReferenceNumber string               `json:"referenceNumber" validate:"omitempty,max=100"`
	Remarks         string               `json:"remarks" validate:"omitempty,max=500"`
}

// PaymentLine is one fee record settled by a payment.
type PaymentLine struct {
	FeeID         string         `json:"feeId"`
	FeeType       models.FeeType `json:"feeType"`
	AmountPaid    int64          `json:"amountPaid"`
	ReceiptNumber string         `json:"receiptNumber"`
}

// PaymentAllocationResult is returned by a successful payment.
type PaymentAllocationResult struct {
	StudentID        string               `json:"studentId"`
	StudentName      string               `json:"studentName"`
	TransactionID    string               `json:"transactionId"`
	PaymentMethod    models.PaymentMethod `json:"paymentMethod"`
	PaymentDate      time.Time            `json:"paymentDate"`
	Lines            []PaymentLine        `json:"lines"`
	TotalApplied     int64                `json:"totalApplied"`
	RemainingBalance int64                `json:"remainingBalance"`
	ReceiptURL       *string              `json:"receiptUrl,omitempty"`
}

// PendingFeesSummary aggregates a student's outstanding fees.
type PendingFeesSummary struct {
	TotalAmount  int64 `json:"totalAmount"`
	TotalLateFee int64 `json:"totalLateFee"`
	TotalDue     int64 `json:"totalDue"`
	Count        int   `json:"count"`
	OverdueCount int   `json:"overdueCount"`
}

// PendingFeesResponse lists outstanding fees with their summary.
type PendingFeesResponse struct {
	StudentID   string             `json:"studentId"`
	StudentName string             `json:"studentName"`
	Fees        []models.Fee       `json:"fees"`
	Summary     PendingFeesSummary `json:"summary"`
}

// DiscountRequest captures POST /fees/:id/discount payload.
type DiscountRequest struct {
	Discount int64  `json:"discount" validate:"min=0"`
	Reason   string `json:"reason" validate:"required,max=255"`
}

// CancelRequest captures POST /fees/:id/cancel payload.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// CreateFeeRequest captures POST /fees payload.
type CreateFeeRequest struct {
	StudentID    string         `json:"studentId" validate:"required"`
	FeeType      models.FeeType `json:"feeType" validate:"required,oneof=tuition hostel library laboratory exam miscellaneous"`
	Amount       int64          `json:"amount" validate:"required,gt=0"`
	Semester     int            `json:"semester" validate:"required,min=1,max=8"`
	AcademicYear string         `json:"academicYear" validate:"required,len=7"`
	DueDate      *time.Time     `json:"dueDate" validate:"required"`
	Description  string         `json:"description" validate:"omitempty,max=255"`
}

// FeeStatistics is the dashboard aggregate returned by GET /fees/statistics.
type FeeStatistics struct {
	TotalFees         int                        `json:"totalFees"`
	PaidFees          int                        `json:"paidFees"`
	PendingFees       int                        `json:"pendingFees"`
	OverdueFees       int                        `json:"overdueFees"`
	CancelledFees     int                        `json:"cancelledFees"`
	TotalCollected    int64                      `json:"totalCollected"`
	TotalPending      int64                      `json:"totalPending"`
	MonthlyCollection int64                      `json:"monthlyCollection"`
	MonthlyTrend      []models.MonthlyCollection `json:"monthlyTrend"`
	ByFeeType         []models.FeeTypeTotal      `json:"byFeeType"`
	ByCourse          []models.CourseFeeTotal    `json:"byCourse"`
	GeneratedAt       time.Time                  `json:"generatedAt"`
}

// FeeReportFilter captures GET /fees/report query parameters.
type FeeReportFilter struct {
	DateFrom string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to" validate:"omitempty,datetime=2006-01-02"`
	CourseID string `form:"course_id" validate:"omitempty,max=64"`
	Status   string `form:"status" validate:"omitempty,oneof=pending paid overdue cancelled"`
	Format   string `form:"format" validate:"omitempty,oneof=json csv pdf"`
}

// FeeReportSummary aggregates the report rows.
type FeeReportSummary struct {
	TotalRecords   int     `json:"totalRecords"`
	TotalAmount    int64   `json:"totalAmount"`
	PaidAmount     int64   `json:"paidAmount"`
	PendingAmount  int64   `json:"pendingAmount"`
	CollectionRate float64 `json:"collectionRate"`
}

// FeeReport is the JSON report payload.
type FeeReport struct {
	Rows    []models.FeeReportRow `json:"rows"`
	Summary FeeReportSummary      `json:"summary"`
}

// Document is a rendered file returned to the handler layer.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}
