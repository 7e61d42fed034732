package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-erp-api/internal/models"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
)

func outstandingFee(id string, amount int64, due time.Time) models.Fee {
	return models.Fee{
		ID:           id,
		StudentID:    "CS2025001",
		FeeType:      models.FeeTypeTuition,
		Amount:       amount,
		Semester:     1,
		AcademicYear: "2025-26",
		DueDate:      due,
		Status:       models.FeeStatusPending,
		Description:  "Tuition fee for 2025-26 - Semester 1",
	}
}

func TestPlanAllocationOrderingWithSplit(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	fees := []models.Fee{
		outstandingFee("d1", 10000, now.AddDate(0, 0, 5)),
		outstandingFee("d2", 20000, now.AddDate(0, 0, 10)),
		outstandingFee("d3", 30000, now.AddDate(0, 0, 15)),
	}

	plan, err := planAllocation(fees, 25000, now)
	require.NoError(t, err)

	require.Len(t, plan.settlements, 2)
	assert.Equal(t, "d1", plan.settlements[0].fee.ID)
	assert.Equal(t, int64(10000), plan.settlements[0].applied)
	assert.Equal(t, "d2", plan.settlements[1].fee.ID)
	assert.Equal(t, int64(15000), plan.settlements[1].applied)
	assert.Equal(t, int64(15000), plan.settlements[1].fee.Amount)

	require.NotNil(t, plan.remainder)
	assert.Equal(t, int64(5000), plan.remainder.TotalAmount())
	assert.Equal(t, fees[1].DueDate, plan.remainder.DueDate)
	assert.Equal(t, models.FeeStatusPending, plan.remainder.Status)
	assert.Equal(t, "Tuition fee for 2025-26 - Semester 1 (Partial payment remaining)", plan.remainder.Description)
	assert.Equal(t, int64(60000), plan.outstanding)

	assert.Equal(t, int64(20000), fees[1].Amount, "input slice must not be modified")
}

func TestPlanAllocationRemainderKeepsLateFee(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	fee := outstandingFee("late", 10000, now.AddDate(0, 0, -20))
	fee.LateFee = 1000
	fee.Status = models.FeeStatusOverdue

	plan, err := planAllocation([]models.Fee{fee}, 4000, now)
	require.NoError(t, err)

	paid := plan.settlements[0].fee
	assert.Equal(t, int64(4000), paid.Amount)
	assert.Equal(t, int64(0), paid.LateFee)
	assert.Equal(t, int64(0), paid.Discount)

	require.NotNil(t, plan.remainder)
	assert.Equal(t, int64(1000), plan.remainder.LateFee)
	assert.Equal(t, int64(6000), plan.remainder.Amount)
	assert.Equal(t, models.FeeStatusOverdue, plan.remainder.Status)
	assert.Equal(t, int64(11000), paid.TotalAmount()+plan.remainder.TotalAmount())
}

func TestPlanAllocationRemainderLateFeeBounded(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	fee := outstandingFee("late", 10000, now.AddDate(0, 0, -40))
	fee.LateFee = 2500
	fee.Status = models.FeeStatusOverdue

	plan, err := planAllocation([]models.Fee{fee}, 11000, now)
	require.NoError(t, err)

	assert.Equal(t, int64(1500), plan.remainder.TotalAmount())
	assert.Equal(t, int64(1500), plan.remainder.LateFee)
	assert.Equal(t, int64(0), plan.remainder.Amount)
}

func TestPlanAllocationExactCoverNoRemainder(t *testing.T) {
	now := time.Now()
	fees := []models.Fee{outstandingFee("a", 30000, now), outstandingFee("b", 20000, now.Add(time.Hour))}

	plan, err := planAllocation(fees, 50000, now)
	require.NoError(t, err)
	assert.Len(t, plan.settlements, 2)
	assert.Nil(t, plan.remainder)
}

func TestPlanAllocationErrors(t *testing.T) {
	now := time.Now()

	_, err := planAllocation(nil, 100, now)
	assert.True(t, errors.Is(err, appErrors.ErrNoPendingFees))

	_, err = planAllocation([]models.Fee{outstandingFee("a", 100, now)}, 101, now)
	assert.True(t, errors.Is(err, appErrors.ErrAmountExceedsPending))
}

func TestReceiptNumberFormat(t *testing.T) {
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "RCP20260300001", receiptNumber(at, 1))
	assert.Equal(t, "RCP20260312345", receiptNumber(at, 12345))
	assert.Equal(t, "202603", receiptPeriod(at))
}
