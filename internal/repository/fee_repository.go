package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-erp-api/internal/models"
)

const feeColumns = `id, student_id, fee_type, amount, late_fee, discount, semester, academic_year, due_date, status,
payment_method, transaction_id, reference_number, payment_date, receipt_number, processed_by, description, remarks,
created_at, updated_at`

// FeeRepository persists fee records. Methods taking an exec run inside the
// caller's transaction when one is supplied.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a fee repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

func (r *FeeRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a fee record, locking the row when forUpdate is set.
func (r *FeeRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string, forUpdate bool) (*models.Fee, error) {
	query := `SELECT ` + feeColumns + ` FROM fees WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var fee models.Fee
	if err := sqlx.GetContext(ctx, r.exec(exec), &fee, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fee by id: %w", err)
	}
	return &fee, nil
}

// ListOutstandingByStudent returns pending and overdue fees oldest obligation first.
func (r *FeeRepository) ListOutstandingByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string, forUpdate bool) ([]models.Fee, error) {
	query := `SELECT ` + feeColumns + ` FROM fees WHERE student_id = $1 AND status IN ('pending', 'overdue') ORDER BY due_date ASC, created_at ASC`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var fees []models.Fee
	if err := sqlx.SelectContext(ctx, r.exec(exec), &fees, query, studentID); err != nil {
		return nil, fmt.Errorf("list outstanding fees: %w", err)
	}
	return fees, nil
}

// ListPastDueForUpdate locks every outstanding fee whose due date is before asOf.
func (r *FeeRepository) ListPastDueForUpdate(ctx context.Context, exec sqlx.ExtContext, asOf time.Time) ([]models.Fee, error) {
	query := `SELECT ` + feeColumns + ` FROM fees WHERE status IN ('pending', 'overdue') AND due_date < $1 ORDER BY due_date ASC FOR UPDATE`
	var fees []models.Fee
	if err := sqlx.SelectContext(ctx, r.exec(exec), &fees, query, asOf); err != nil {
		return nil, fmt.Errorf("list past due fees: %w", err)
	}
	return fees, nil
}

// ListByTransaction returns the paid records stamped with a transaction id in receipt order.
func (r *FeeRepository) ListByTransaction(ctx context.Context, transactionID string) ([]models.Fee, error) {
	query := `SELECT ` + feeColumns + ` FROM fees WHERE transaction_id = $1 AND status = 'paid' ORDER BY receipt_number ASC`
	var fees []models.Fee
	if err := r.db.SelectContext(ctx, &fees, query, transactionID); err != nil {
		return nil, fmt.Errorf("list fees by transaction: %w", err)
	}
	return fees, nil
}

// FindByReceipt returns the paid record carrying a receipt number.
func (r *FeeRepository) FindByReceipt(ctx context.Context, receiptNumber string) (*models.Fee, error) {
	query := `SELECT ` + feeColumns + ` FROM fees WHERE receipt_number = $1 LIMIT 1`
	var fee models.Fee
	if err := r.db.GetContext(ctx, &fee, query, receiptNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fee by receipt: %w", err)
	}
	return &fee, nil
}

// Create inserts a fee record, assigning id and timestamps when missing.
func (r *FeeRepository) Create(ctx context.Context, exec sqlx.ExtContext, fee *models.Fee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if fee.CreatedAt.IsZero() {
		fee.CreatedAt = now
	}
	fee.UpdatedAt = fee.CreatedAt

	const query = `INSERT INTO fees (` + feeColumns + `) VALUES (:id, :student_id, :fee_type, :amount, :late_fee, :discount,
:semester, :academic_year, :due_date, :status, :payment_method, :transaction_id, :reference_number, :payment_date,
:receipt_number, :processed_by, :description, :remarks, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, fee); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// Update writes every mutable column of a fee record.
func (r *FeeRepository) Update(ctx context.Context, exec sqlx.ExtContext, fee *models.Fee) error {
	fee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fees SET amount = :amount, late_fee = :late_fee, discount = :discount, status = :status,
payment_method = :payment_method, transaction_id = :transaction_id, reference_number = :reference_number,
payment_date = :payment_date, receipt_number = :receipt_number, processed_by = :processed_by,
description = :description, remarks = :remarks, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, fee)
	if err != nil {
		return fmt.Errorf("update fee: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fee rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateLateFee persists an accrued late fee together with the overdue status.
func (r *FeeRepository) UpdateLateFee(ctx context.Context, exec sqlx.ExtContext, id string, lateFee int64, status models.FeeStatus) error {
	const query = `UPDATE fees SET late_fee = $1, status = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.exec(exec).ExecContext(ctx, query, lateFee, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update late fee: %w", err)
	}
	return nil
}

// ExistingFeeTypes returns, per student, the fee types already billed for the semester and year.
func (r *FeeRepository) ExistingFeeTypes(ctx context.Context, exec sqlx.ExtContext, studentIDs []string, semester int, academicYear string) (map[string]map[models.FeeType]bool, error) {
	result := make(map[string]map[models.FeeType]bool)
	if len(studentIDs) == 0 {
		return result, nil
	}
	const query = `SELECT student_id, fee_type FROM fees WHERE student_id = ANY($1) AND semester = $2 AND academic_year = $3`
	var rows []struct {
		StudentID string         `db:"student_id"`
		FeeType   models.FeeType `db:"fee_type"`
	}
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, pq.Array(studentIDs), semester, academicYear); err != nil {
		return nil, fmt.Errorf("list existing fee types: %w", err)
	}
	for _, row := range rows {
		if result[row.StudentID] == nil {
			result[row.StudentID] = make(map[models.FeeType]bool)
		}
		result[row.StudentID][row.FeeType] = true
	}
	return result, nil
}

// StatusTotals counts records and sums their totals per status.
func (r *FeeRepository) StatusTotals(ctx context.Context) ([]models.FeeStatusTotal, error) {
	const query = `SELECT status, COUNT(*) AS count, COALESCE(SUM(amount + late_fee - discount), 0) AS total FROM fees GROUP BY status`
	var totals []models.FeeStatusTotal
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("fee status totals: %w", err)
	}
	return totals, nil
}

// CollectedBetween sums paid totals whose payment date falls in [from, to).
func (r *FeeRepository) CollectedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount + late_fee - discount), 0) FROM fees WHERE status = 'paid' AND payment_date >= $1 AND payment_date < $2`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, from, to); err != nil {
		return 0, fmt.Errorf("sum collected fees: %w", err)
	}
	return total, nil
}

// MonthlyCollections buckets paid totals by payment month starting at since.
func (r *FeeRepository) MonthlyCollections(ctx context.Context, since time.Time) ([]models.MonthlyCollection, error) {
	const query = `SELECT to_char(date_trunc('month', payment_date), 'YYYY-MM') AS month, COALESCE(SUM(amount + late_fee - discount), 0) AS total
FROM fees WHERE status = 'paid' AND payment_date >= $1 GROUP BY 1 ORDER BY 1`
	var months []models.MonthlyCollection
	if err := r.db.SelectContext(ctx, &months, query, since); err != nil {
		return nil, fmt.Errorf("monthly fee collections: %w", err)
	}
	return months, nil
}

// FeeTypeBreakdown counts and sums every record per fee type next to its paid share.
func (r *FeeRepository) FeeTypeBreakdown(ctx context.Context) ([]models.FeeTypeTotal, error) {
	const query = `SELECT fee_type, COUNT(*) AS total_count, COUNT(*) FILTER (WHERE status = 'paid') AS paid_count,
COALESCE(SUM(amount + late_fee - discount), 0) AS total_amount,
COALESCE(SUM(amount + late_fee - discount) FILTER (WHERE status = 'paid'), 0) AS paid_amount
FROM fees GROUP BY fee_type ORDER BY fee_type`
	var totals []models.FeeTypeTotal
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("fee type totals: %w", err)
	}
	return totals, nil
}

// CourseBreakdown summarises enrolment and collection per course, including
// courses without any fee records.
func (r *FeeRepository) CourseBreakdown(ctx context.Context) ([]models.CourseFeeTotal, error) {
	const query = `SELECT c.id AS course_id, c.name AS course_name,
COUNT(DISTINCT s.roll_no) AS total_students,
COUNT(f.id) AS total_fees,
COUNT(f.id) FILTER (WHERE f.status = 'paid') AS paid_fees,
COALESCE(SUM(f.amount + f.late_fee - f.discount), 0) AS total_amount,
COALESCE(SUM(f.amount + f.late_fee - f.discount) FILTER (WHERE f.status = 'paid'), 0) AS collected_amount
FROM courses c
LEFT JOIN students s ON s.course_id = c.id
LEFT JOIN fees f ON f.student_id = s.roll_no
GROUP BY c.id, c.name ORDER BY c.name`
	var totals []models.CourseFeeTotal
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("course fee totals: %w", err)
	}
	return totals, nil
}

// Report lists fees joined with student and course names.
func (r *FeeRepository) Report(ctx context.Context, filter models.FeeFilter) ([]models.FeeReportRow, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("f.created_at >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("f.created_at < $%d", len(args)))
	}
	if filter.CourseID != nil {
		args = append(args, *filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("f.status = $%d", len(args)))
	}

	columns := make([]string, 0, 20)
	for _, col := range strings.Split(feeColumns, ",") {
		columns = append(columns, "f."+strings.TrimSpace(col))
	}
	query := `SELECT ` + strings.Join(columns, ", ") + `, s.name AS student_name, COALESCE(c.name, '') AS course_name
FROM fees f JOIN students s ON s.roll_no = f.student_id LEFT JOIN courses c ON c.id = s.course_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY f.created_at DESC"

	var rows []models.FeeReportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("fee report: %w", err)
	}
	return rows, nil
}
