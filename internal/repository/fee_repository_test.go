package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-erp-api/internal/models"
)

var feeRowColumns = []string{"id", "student_id", "fee_type", "amount", "late_fee", "discount", "semester", "academic_year", "due_date", "status",
	"payment_method", "transaction_id", "reference_number", "payment_date", "receipt_number", "processed_by", "description", "remarks",
	"created_at", "updated_at"}

func addFeeRow(rows *sqlmock.Rows, id string, amount int64, status models.FeeStatus, due time.Time) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "CS2025001", string(models.FeeTypeTuition), amount, int64(0), int64(0), 1, "2025-26", due, string(status),
		nil, nil, nil, nil, nil, nil, "Tuition fee for 2025-26 - Semester 1", "", now, now)
}

func TestFeeRepositoryListOutstandingForUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	due := time.Now().AddDate(0, 0, -10)
	rows := sqlmock.NewRows(feeRowColumns)
	addFeeRow(rows, "fee-1", 30000, models.FeeStatusPending, due)
	addFeeRow(rows, "fee-2", 20000, models.FeeStatusOverdue, due.AddDate(0, 1, 0))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM fees WHERE student_id = $1 AND status IN ('pending', 'overdue') ORDER BY due_date ASC, created_at ASC FOR UPDATE")).
		WithArgs("CS2025001").
		WillReturnRows(rows)
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	fees, err := repo.ListOutstandingByStudent(context.Background(), tx, "CS2025001", true)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Len(t, fees, 2)
	assert.Equal(t, "fee-1", fees[0].ID)
	assert.Equal(t, models.FeeStatusOverdue, fees[1].Status)
	assert.Nil(t, fees[0].ReceiptNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM fees WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), nil, "missing", false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fees")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	fee := &models.Fee{StudentID: "CS2025001", FeeType: models.FeeTypeHostel, Amount: 25000, Semester: 1, AcademicYear: "2025-26", Status: models.FeeStatusPending, DueDate: time.Now()}
	require.NoError(t, repo.Create(context.Background(), nil, fee))
	assert.NotEmpty(t, fee.ID)
	assert.False(t, fee.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fees SET amount = ")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), nil, &models.Fee{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryExistingFeeTypes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "fee_type"}).
		AddRow("CS2025001", "tuition").
		AddRow("CS2025001", "hostel").
		AddRow("CS2025002", "tuition")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, fee_type FROM fees WHERE student_id = ANY($1) AND semester = $2 AND academic_year = $3")).
		WithArgs(sqlmock.AnyArg(), 1, "2025-26").
		WillReturnRows(rows)

	existing, err := repo.ExistingFeeTypes(context.Background(), nil, []string{"CS2025001", "CS2025002"}, 1, "2025-26")
	require.NoError(t, err)
	assert.True(t, existing["CS2025001"][models.FeeTypeHostel])
	assert.False(t, existing["CS2025002"][models.FeeTypeHostel])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryStatusTotals(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count", "total"}).
		AddRow("paid", 3, int64(90000)).
		AddRow("pending", 2, int64(40000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count")).WillReturnRows(rows)

	totals, err := repo.StatusTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, int64(90000), totals[0].Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryBreakdowns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE status = 'paid') AS paid_count")).
		WillReturnRows(sqlmock.NewRows([]string{"fee_type", "total_count", "paid_count", "total_amount", "paid_amount"}).
			AddRow("hostel", 4, 1, int64(120000), int64(30000)))
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN fees f ON f.student_id = s.roll_no")).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_name", "total_students", "total_fees", "paid_fees", "total_amount", "collected_amount"}).
			AddRow("BTECH-CSE", "B.Tech CSE", 40, 80, 60, int64(4000000), int64(3000000)).
			AddRow("MBA", "MBA", 0, 0, 0, int64(0), int64(0)))

	byType, err := repo.FeeTypeBreakdown(context.Background())
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, 4, byType[0].TotalCount)
	assert.Equal(t, int64(30000), byType[0].PaidAmount)

	byCourse, err := repo.CourseBreakdown(context.Background())
	require.NoError(t, err)
	require.Len(t, byCourse, 2)
	assert.Equal(t, 40, byCourse[0].TotalStudents)
	assert.Equal(t, int64(3000000), byCourse[0].CollectedAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryReportFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	course := "BTECH-CSE"
	status := models.FeeStatusPaid
	columns := append(append([]string{}, feeRowColumns...), "student_name", "course_name")
	now := time.Now()
	rows := sqlmock.NewRows(columns).AddRow("fee-1", "CS2025001", "tuition", int64(50000), int64(0), int64(0), 1, "2025-26", now, "paid",
		"cash", "TXN1A2B3C4D", nil, now, "RCP202610000001", nil, "", "", now, now, "Asha Patel", "B.Tech CSE")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE f.created_at >= $1 AND s.course_id = $2 AND f.status = $3 ORDER BY f.created_at DESC")).
		WithArgs(from, course, "paid").
		WillReturnRows(rows)

	result, err := repo.Report(context.Background(), models.FeeFilter{DateFrom: &from, CourseID: &course, Status: &status})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Asha Patel", result[0].StudentName)
	require.NotNil(t, result[0].ReceiptNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptCounterReserve(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReceiptCounterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO receipt_counters (period, last_serial) VALUES ($1, $2)")).
		WithArgs("202610", 2).
		WillReturnRows(sqlmock.NewRows([]string{"last_serial"}).AddRow(7))

	first, err := repo.Reserve(context.Background(), nil, "202610", 2)
	require.NoError(t, err)
	assert.Equal(t, 6, first)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.Reserve(context.Background(), nil, "202610", 0)
	assert.Error(t, err)
}

func TestReceiptCounterClaimTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReceiptCounterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payment_transactions (transaction_id, student_id) VALUES ($1, $2)")).
		WithArgs("TXNSHARED1", "CS2025001").
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}).AddRow("TXNSHARED1"))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (transaction_id) DO NOTHING")).
		WithArgs("TXNSHARED1", "CS2025002").
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}))

	claimed, err := repo.ClaimTransaction(context.Background(), nil, "TXNSHARED1", "CS2025001")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimTransaction(context.Background(), nil, "TXNSHARED1", "CS2025002")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
