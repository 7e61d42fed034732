package models

import (
	"strings"
	"time"
)

// FeeType enumerates the billable fee categories.
type FeeType string

const (
	FeeTypeTuition       FeeType = "tuition"
	FeeTypeHostel        FeeType = "hostel"
	FeeTypeLibrary       FeeType = "library"
	FeeTypeLaboratory    FeeType = "laboratory"
	FeeTypeExam          FeeType = "exam"
	FeeTypeMiscellaneous FeeType = "miscellaneous"
)

// FeeTypes lists every fee type in display order.
var FeeTypes = []FeeType{
	FeeTypeTuition,
	FeeTypeHostel,
	FeeTypeLibrary,
	FeeTypeLaboratory,
	FeeTypeExam,
	FeeTypeMiscellaneous,
}

// Label returns the capitalised fee type used in descriptions.
func (t FeeType) Label() string {
	if t == "" {
		return ""
	}
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}

// FeeStatus tracks the fee record lifecycle.
type FeeStatus string

const (
	FeeStatusPending   FeeStatus = "pending"
	FeeStatusPaid      FeeStatus = "paid"
	FeeStatusOverdue   FeeStatus = "overdue"
	FeeStatusCancelled FeeStatus = "cancelled"
)

// Outstanding reports whether the status still owes money.
func (s FeeStatus) Outstanding() bool {
	return s == FeeStatusPending || s == FeeStatusOverdue
}

// PaymentMethod enumerates accepted payment instruments.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodDemandDraft  PaymentMethod = "demand_draft"
)

// Late fee schedule: a daily rate for the first month, a steeper rate after,
// capped at a quarter of the base amount.
const (
	LateFeeDailyRate         int64 = 50
	LateFeeExtendedDailyRate int64 = 100
	LateFeeGraceDays         int64 = 30
	LateFeeCapPercent        int64 = 25
)

// Fee is one student's obligation for one fee type in one semester and academic year.
type Fee struct {
	ID              string         `db:"id" json:"id"`
	StudentID       string         `db:"student_id" json:"student_id"`
	FeeType         FeeType        `db:"fee_type" json:"fee_type"`
	Amount          int64          `db:"amount" json:"amount"`
	LateFee         int64          `db:"late_fee" json:"late_fee"`
	Discount        int64          `db:"discount" json:"discount"`
	Semester        int            `db:"semester" json:"semester"`
	AcademicYear    string         `db:"academic_year" json:"academic_year"`
	DueDate         time.Time      `db:"due_date" json:"due_date"`
	Status          FeeStatus      `db:"status" json:"status"`
	PaymentMethod   *PaymentMethod `db:"payment_method" json:"payment_method,omitempty"`
	TransactionID   *string        `db:"transaction_id" json:"transaction_id,omitempty"`
	ReferenceNumber *string        `db:"reference_number" json:"reference_number,omitempty"`
	PaymentDate     *time.Time     `db:"payment_date" json:"payment_date,omitempty"`
	ReceiptNumber   *string        `db:"receipt_number" json:"receipt_number,omitempty"`
	ProcessedBy     *string        `db:"processed_by" json:"processed_by,omitempty"`
	Description     string         `db:"description" json:"description"`
	Remarks         string         `db:"remarks" json:"remarks"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// TotalAmount is the amount due: base plus late fee minus discount.
func (f *Fee) TotalAmount() int64 {
	return f.Amount + f.LateFee - f.Discount
}

// IsOverdue reports whether an outstanding fee is past its due date.
func (f *Fee) IsOverdue(now time.Time) bool {
	return f.Status.Outstanding() && now.After(f.DueDate)
}

// DaysOverdue returns whole days elapsed since the due date, or 0 when not overdue.
func (f *Fee) DaysOverdue(now time.Time) int64 {
	if !f.IsOverdue(now) {
		return 0
	}
	return int64(now.Sub(f.DueDate) / (24 * time.Hour))
}

// AccruedLateFee computes the late fee owed as of now, without mutating the record.
func (f *Fee) AccruedLateFee(now time.Time) int64 {
	return LateFeeFor(f.Amount, f.DaysOverdue(now))
}

// LateFeeFor applies the late fee schedule to a base amount.
func LateFeeFor(amount, daysOverdue int64) int64 {
	if daysOverdue <= 0 || amount <= 0 {
		return 0
	}
	var fee int64
	if daysOverdue <= LateFeeGraceDays {
		fee = daysOverdue * LateFeeDailyRate
	} else {
		fee = LateFeeGraceDays*LateFeeDailyRate + (daysOverdue-LateFeeGraceDays)*LateFeeExtendedDailyRate
	}
	if limit := amount * LateFeeCapPercent / 100; fee > limit {
		fee = limit
	}
	return fee
}

// FeeFilter narrows fee report queries. Nil fields are not applied.
type FeeFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	CourseID *string
	Status   *FeeStatus
}

// FeeReportRow is a fee joined with its student and course for reporting.
type FeeReportRow struct {
	Fee
	StudentName string `db:"student_name" json:"student_name"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// FeeStatusTotal aggregates fee totals per status.
type FeeStatusTotal struct {
	Status FeeStatus `db:"status" json:"status"`
	Count  int       `db:"count" json:"count"`
	Total  int64     `db:"total" json:"total"`
}

// FeeTypeTotal compares billed and paid records of one fee type.
type FeeTypeTotal struct {
	FeeType     FeeType `db:"fee_type" json:"fee_type"`
	TotalCount  int     `db:"total_count" json:"total_count"`
	PaidCount   int     `db:"paid_count" json:"paid_count"`
	TotalAmount int64   `db:"total_amount" json:"total_amount"`
	PaidAmount  int64   `db:"paid_amount" json:"paid_amount"`
}

// CourseFeeTotal is the collection summary of one course.
type CourseFeeTotal struct {
	CourseID        string  `db:"course_id" json:"course_id"`
	CourseName      string  `db:"course_name" json:"course_name"`
	TotalStudents   int     `db:"total_students" json:"total_students"`
	TotalFees       int     `db:"total_fees" json:"total_fees"`
	PaidFees        int     `db:"paid_fees" json:"paid_fees"`
	TotalAmount     int64   `db:"total_amount" json:"total_amount"`
	CollectedAmount int64   `db:"collected_amount" json:"collected_amount"`
	CollectionRate  float64 `db:"-" json:"collection_rate"`
}

// MonthlyCollection is one bucket of the collection trend.
type MonthlyCollection struct {
	Month string `db:"month" json:"month"`
	Total int64  `db:"total" json:"total"`
}
