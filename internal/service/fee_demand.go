package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-erp-api/internal/dto"
	"github.com/noah-isme/campus-erp-api/internal/models"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
	"github.com/noah-isme/campus-erp-api/pkg/jobs"
)

const (
	skipReasonAlreadyGenerated = "fees already generated"
	skipReasonNothingBillable  = "no billable fee types"
)

// GenerateDemand bills a cohort of students for a semester. Re-running with the
// same arguments creates nothing new: existing (student, fee type, semester,
// academic year) records are skipped.
func (s *FeeLedgerService) GenerateDemand(ctx context.Context, req dto.GenerateDemandRequest, actor Actor) (*dto.GenerateDemandResult, error) {
	if len(req.FeeTypes) == 0 {
		req.FeeTypes = []models.FeeType{models.FeeTypeTuition}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid demand payload")
	}
	dueInDays := req.DueInDays
	if dueInDays == 0 {
		dueInDays = s.cfg.DefaultDueDays
	}
	feeTypes := uniqueFeeTypes(req.FeeTypes)

	students, err := s.students.ListForDemand(ctx, req.CourseIDs, req.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active students found for the given courses and semester")
	}

	now := s.now()
	dueDate := now.AddDate(0, 0, dueInDays)
	result := &dto.GenerateDemandResult{DueDate: dueDate, Skipped: []dto.DemandSkip{}, Created: []dto.DemandLine{}}
	notices := make([]FeeNotice, 0, len(students))

	err = s.withTx(ctx, "demand", func(tx *sqlx.Tx) error {
		ids := make([]string, 0, len(students))
		for _, student := range students {
			ids = append(ids, student.RollNo)
		}
		existing, err := s.fees.ExistingFeeTypes(ctx, tx, ids, req.Semester, req.AcademicYear)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing fees")
		}

		for i := range students {
			student := students[i]
			var created []dto.DemandLine
			billable := false
			for _, feeType := range feeTypes {
				amount := s.cfg.Schedule.amountFor(feeType, &student)
				if amount <= 0 {
					continue
				}
				billable = true
				if existing[student.RollNo][feeType] {
					continue
				}
				fee := &models.Fee{
					StudentID:    student.RollNo,
					FeeType:      feeType,
					Amount:       amount,
					Semester:     req.Semester,
					AcademicYear: req.AcademicYear,
					DueDate:      dueDate,
					Status:       models.FeeStatusPending,
					Description:  demandDescription(feeType, req.AcademicYear, req.Semester),
					CreatedAt:    now,
				}
				if err := s.fees.Create(ctx, tx, fee); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee")
				}
				created = append(created, dto.DemandLine{FeeID: fee.ID, StudentID: student.RollNo, FeeType: feeType, Amount: amount})
			}

			switch {
			case !billable:
				result.Skipped = append(result.Skipped, dto.DemandSkip{StudentID: student.RollNo, Name: student.Name, Reason: skipReasonNothingBillable})
			case len(created) == 0:
				result.Skipped = append(result.Skipped, dto.DemandSkip{StudentID: student.RollNo, Name: student.Name, Reason: skipReasonAlreadyGenerated})
			default:
				result.Created = append(result.Created, created...)
				notices = append(notices, FeeNotice{
					StudentID:    student.RollNo,
					Name:         student.Name,
					Email:        student.Email,
					AcademicYear: req.AcademicYear,
					Semester:     req.Semester,
					DueDate:      dueDate,
					Lines:        created,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.FeesCreated = len(result.Created)
	result.StudentsSkipped = len(result.Skipped)

	s.logger.Info("fee demand generated",
		zap.Strings("courses", req.CourseIDs),
		zap.Int("semester", req.Semester),
		zap.String("academic_year", req.AcademicYear),
		zap.Int("created", result.FeesCreated),
		zap.Int("skipped", result.StudentsSkipped),
	)
	if result.FeesCreated > 0 {
		s.side.Metrics.RecordFeesCreated("demand", result.FeesCreated)
		s.invalidateStats(ctx)
	}
	s.sendNotices(ctx, notices)
	s.audit(ctx, actor, models.AuditActionFeeDemand, req.AcademicYear, map[string]interface{}{
		"courses":  req.CourseIDs,
		"semester": req.Semester,
		"created":  result.FeesCreated,
	})
	return result, nil
}

func (s *FeeLedgerService) sendNotices(ctx context.Context, notices []FeeNotice) {
	if s.side.Notifier == nil {
		return
	}
	for _, notice := range notices {
		notice := notice
		if strings.TrimSpace(notice.Email) == "" {
			continue
		}
		s.dispatch(ctx, jobs.Job{ID: notice.StudentID, Type: jobs.TypeFeeNotice, Payload: notice}, func(ctx context.Context) error {
			return s.side.Notifier.SendFeeNotice(ctx, notice)
		})
	}
}

// amountFor returns the base amount billed for a fee type. Tuition follows the
// course's per-semester fee; hostel is billed only to students with an allocation.
func (f FeeSchedule) amountFor(feeType models.FeeType, student *models.StudentAccount) int64 {
	switch feeType {
	case models.FeeTypeTuition:
		if student.CourseFeePerTerm != nil && *student.CourseFeePerTerm > 0 {
			return *student.CourseFeePerTerm
		}
		return f.TuitionDefault
	case models.FeeTypeHostel:
		if student.HasHostel() {
			return f.Hostel
		}
		return 0
	case models.FeeTypeLibrary:
		return f.Library
	case models.FeeTypeLaboratory:
		return f.Laboratory
	case models.FeeTypeExam:
		return f.Exam
	case models.FeeTypeMiscellaneous:
		return f.Miscellaneous
	default:
		return 0
	}
}

func uniqueFeeTypes(types []models.FeeType) []models.FeeType {
	seen := make(map[models.FeeType]bool, len(types))
	out := make([]models.FeeType, 0, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
