package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/campus-erp-api/internal/models"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
)

const partialRemainderSuffix = " (Partial payment remaining)"

// settlement is a fee record that a payment settles, with the amount applied to it.
type settlement struct {
	fee     models.Fee
	applied int64
}

// allocationPlan is the result of walking a student's outstanding fees oldest first.
type allocationPlan struct {
	settlements []settlement
	remainder   *models.Fee
	outstanding int64
}

// planAllocation applies amount to outstanding fees in the given order. Fees
// covered in full are settled as-is; the boundary fee is shrunk to the paid
// portion and a remainder sibling carries the rest. The input slice is not modified.
func planAllocation(outstanding []models.Fee, amount int64, now time.Time) (*allocationPlan, error) {
	if len(outstanding) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoPendingFees, "")
	}

	var total int64
	for i := range outstanding {
		total += outstanding[i].TotalAmount()
	}
	if amount > total {
		return nil, appErrors.Clone(appErrors.ErrAmountExceedsPending,
			fmt.Sprintf("payment amount (%d) exceeds total pending amount (%d)", amount, total))
	}

	plan := &allocationPlan{outstanding: total}
	remaining := amount
	for i := range outstanding {
		if remaining <= 0 {
			break
		}
		fee := outstanding[i]
		due := fee.TotalAmount()
		if remaining >= due {
			plan.settlements = append(plan.settlements, settlement{fee: fee, applied: due})
			remaining -= due
			continue
		}

		plan.remainder = splitRemainder(fee, due-remaining, now)
		fee.Amount = remaining
		fee.LateFee = 0
		fee.Discount = 0
		plan.settlements = append(plan.settlements, settlement{fee: fee, applied: remaining})
		remaining = 0
	}

	return plan, nil
}

// splitRemainder builds the unpaid sibling of a partially paid fee. The late
// fee carries over up to the remainder total; the rest becomes base amount.
func splitRemainder(original models.Fee, remainderTotal int64, now time.Time) *models.Fee {
	lateFee := original.LateFee
	if lateFee > remainderTotal {
		lateFee = remainderTotal
	}
	status := models.FeeStatusPending
	if original.Status == models.FeeStatusOverdue || original.IsOverdue(now) {
		status = models.FeeStatusOverdue
	}
	return &models.Fee{
		StudentID:    original.StudentID,
		FeeType:      original.FeeType,
		Amount:       remainderTotal - lateFee,
		LateFee:      lateFee,
		Semester:     original.Semester,
		AcademicYear: original.AcademicYear,
		DueDate:      original.DueDate,
		Status:       status,
		Description:  original.Description + partialRemainderSuffix,
	}
}

// receiptNumber formats RCP<YYYY><MM><NNNNN>.
func receiptNumber(at time.Time, serial int) string {
	return fmt.Sprintf("RCP%04d%02d%05d", at.Year(), int(at.Month()), serial)
}

// receiptPeriod is the counter scope of a payment timestamp.
func receiptPeriod(at time.Time) string {
	return at.Format("200601")
}
