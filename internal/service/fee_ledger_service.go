package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-erp-api/internal/dto"
	"github.com/noah-isme/campus-erp-api/internal/models"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
	"github.com/noah-isme/campus-erp-api/pkg/jobs"
)

const feeStatsCacheKey = "fees:statistics"

type feeStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string, forUpdate bool) (*models.Fee, error)
	ListOutstandingByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string, forUpdate bool) ([]models.Fee, error)
	ListPastDueForUpdate(ctx context.Context, exec sqlx.ExtContext, asOf time.Time) ([]models.Fee, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]models.Fee, error)
	FindByReceipt(ctx context.Context, receiptNumber string) (*models.Fee, error)
	Create(ctx context.Context, exec sqlx.ExtContext, fee *models.Fee) error
	Update(ctx context.Context, exec sqlx.ExtContext, fee *models.Fee) error
	UpdateLateFee(ctx context.Context, exec sqlx.ExtContext, id string, lateFee int64, status models.FeeStatus) error
	ExistingFeeTypes(ctx context.Context, exec sqlx.ExtContext, studentIDs []string, semester int, academicYear string) (map[string]map[models.FeeType]bool, error)
	StatusTotals(ctx context.Context) ([]models.FeeStatusTotal, error)
	CollectedBetween(ctx context.Context, from, to time.Time) (int64, error)
	MonthlyCollections(ctx context.Context, since time.Time) ([]models.MonthlyCollection, error)
	FeeTypeBreakdown(ctx context.Context) ([]models.FeeTypeTotal, error)
	CourseBreakdown(ctx context.Context) ([]models.CourseFeeTotal, error)
	Report(ctx context.Context, filter models.FeeFilter) ([]models.FeeReportRow, error)
}

type studentReader interface {
	FindByID(ctx context.Context, rollNo string) (*models.StudentAccount, error)
	ListForDemand(ctx context.Context, courseIDs []string, semester int) ([]models.StudentAccount, error)
}

type receiptSequence interface {
	Reserve(ctx context.Context, exec sqlx.ExtContext, period string, n int) (int, error)
	ClaimTransaction(ctx context.Context, exec sqlx.ExtContext, transactionID, studentID string) (bool, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type receiptIssuer interface {
	Link(transactionID string, paidAt time.Time) (string, error)
	RenderAndStore(ctx context.Context, transactionID string) error
}

type notifier interface {
	SendFeeNotice(ctx context.Context, notice FeeNotice) error
}

type paymentBroadcaster interface {
	BroadcastPayment(ctx context.Context, event PaymentEvent) error
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// FeeSchedule holds the base amount billed per fee type.
type FeeSchedule struct {
	TuitionDefault int64
	Hostel         int64
	Library        int64
	Laboratory     int64
	Exam           int64
	Miscellaneous  int64
}

// FeeLedgerConfig governs ledger behaviour.
type FeeLedgerConfig struct {
	Schedule       FeeSchedule
	DefaultDueDays int
	StatsCacheTTL  time.Duration
}

// LedgerCollaborators are the post-commit side effects of ledger operations.
// Every field is optional.
type LedgerCollaborators struct {
	Receipts    receiptIssuer
	Notifier    notifier
	Broadcaster paymentBroadcaster
	Cache       statsCache
	Jobs        jobDispatcher
	Audit       auditRecorder
	Metrics     *MetricsService
}

// Actor identifies the authenticated caller of a ledger operation.
type Actor struct {
	UserID    string
	Role      models.UserRole
	StudentID string
	IP        string
	UserAgent string
}

// ActorFromClaims maps token claims to a ledger actor.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role, StudentID: claims.StudentID}
}

// processedBy is nil for self-service student payments.
func (a Actor) processedBy() *string {
	if a.UserID == "" || a.Role == models.RoleStudent {
		return nil
	}
	id := a.UserID
	return &id
}

func (a Actor) authorizeStudent(studentID string) error {
	if a.Role == models.RoleStudent && a.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only access their own fees")
	}
	return nil
}

// FeeLedgerService owns the fee record lifecycle.
type FeeLedgerService struct {
	fees      feeStore
	students  studentReader
	sequence  receiptSequence
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	cfg       FeeLedgerConfig
	side      LedgerCollaborators
	now       func() time.Time
}

// NewFeeLedgerService constructs the ledger service.
func NewFeeLedgerService(
	fees feeStore,
	students studentReader,
	sequence receiptSequence,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg FeeLedgerConfig,
	side LedgerCollaborators,
) *FeeLedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDueDays <= 0 {
		cfg.DefaultDueDays = 30
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = 5 * time.Minute
	}
	return &FeeLedgerService{
		fees:      fees,
		students:  students,
		sequence:  sequence,
		tx:        tx,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		side:      side,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Pay allocates a payment across the student's outstanding fees, oldest due date first.
func (s *FeeLedgerService) Pay(ctx context.Context, req dto.PayFeeRequest, actor Actor) (*dto.PaymentAllocationResult, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if err := actor.authorizeStudent(req.StudentID); err != nil {
		return nil, err
	}

	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	transactionID := req.TransactionID
	if transactionID == "" {
		transactionID = generateTransactionID()
	}
	method := req.PaymentMethod
	processedBy := actor.processedBy()

	result := &dto.PaymentAllocationResult{
		StudentID:     student.RollNo,
		StudentName:   student.Name,
		TransactionID: transactionID,
		PaymentMethod: method,
		PaymentDate:   now,
	}

	err = s.withTx(ctx, "payment", func(tx *sqlx.Tx) error {
		claimed, err := s.sequence.ClaimTransaction(ctx, tx, transactionID, student.RollNo)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register transaction")
		}
		if !claimed {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("transaction id %s is already in use", transactionID))
		}

		outstanding, err := s.fees.ListOutstandingByStudent(ctx, tx, student.RollNo, true)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending fees")
		}

		plan, err := planAllocation(outstanding, req.Amount, now)
		if err != nil {
			return err
		}

		first, err := s.sequence.Reserve(ctx, tx, receiptPeriod(now), len(plan.settlements))
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate receipt numbers")
		}

		for i := range plan.settlements {
			fee := plan.settlements[i].fee
			number := receiptNumber(now, first+i)
			paidAt := now
			fee.Status = models.FeeStatusPaid
			fee.PaymentDate = &paidAt
			fee.PaymentMethod = &method
			fee.TransactionID = &transactionID
			fee.ReferenceNumber = optionalString(req.ReferenceNumber)
			fee.ReceiptNumber = &number
			fee.ProcessedBy = processedBy
			if req.Remarks != "" {
				fee.Remarks = req.Remarks
			}
			if err := s.fees.Update(ctx, tx, &fee); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
			}
			result.Lines = append(result.Lines, dto.PaymentLine{
				FeeID:         fee.ID,
				FeeType:       fee.FeeType,
				AmountPaid:    plan.settlements[i].applied,
				ReceiptNumber: number,
			})
			result.TotalApplied += plan.settlements[i].applied
		}

		if plan.remainder != nil {
			if err := s.fees.Create(ctx, tx, plan.remainder); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record remaining balance")
			}
		}

		result.RemainingBalance = plan.outstanding - req.Amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterPayment(ctx, result, actor)
	return result, nil
}

// ApplyDiscount sets the discount on an outstanding fee.
func (s *FeeLedgerService) ApplyDiscount(ctx context.Context, feeID string, req dto.DiscountRequest, actor Actor) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discount payload")
	}

	var updated *models.Fee
	err := s.withTx(ctx, "discount", func(tx *sqlx.Tx) error {
		fee, err := s.lockFee(ctx, tx, feeID)
		if err != nil {
			return err
		}
		if !fee.Status.Outstanding() {
			return appErrors.Clone(appErrors.ErrInvalidStateTransition, fmt.Sprintf("cannot discount a %s fee", fee.Status))
		}
		if req.Discount > fee.Amount {
			return appErrors.Clone(appErrors.ErrInvalidStateTransition,
				fmt.Sprintf("discount (%d) exceeds base amount (%d)", req.Discount, fee.Amount))
		}

		fee.Discount = req.Discount
		fee.Remarks = "Discount applied: " + req.Reason
		fee.ProcessedBy = actor.processedBy()
		if err := s.fees.Update(ctx, tx, fee); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply discount")
		}
		updated = fee
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.audit(ctx, actor, models.AuditActionFeeDiscount, updated.ID, map[string]interface{}{"discount": req.Discount, "reason": req.Reason})
	return updated, nil
}

// CancelPayment voids a paid fee. The record becomes a terminal audit marker;
// no balance is restored.
func (s *FeeLedgerService) CancelPayment(ctx context.Context, feeID string, req dto.CancelRequest, actor Actor) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancellation payload")
	}

	var cancelled *models.Fee
	err := s.withTx(ctx, "cancellation", func(tx *sqlx.Tx) error {
		fee, err := s.lockFee(ctx, tx, feeID)
		if err != nil {
			return err
		}
		if fee.Status != models.FeeStatusPaid {
			return appErrors.Clone(appErrors.ErrInvalidStateTransition, fmt.Sprintf("only paid fees can be cancelled, fee is %s", fee.Status))
		}

		voided := ""
		if fee.ReceiptNumber != nil {
			voided = *fee.ReceiptNumber
		}
		fee.Status = models.FeeStatusCancelled
		fee.Remarks = fmt.Sprintf("Cancelled: %s (receipt %s)", req.Reason, voided)
		fee.ReceiptNumber = nil
		fee.ProcessedBy = actor.processedBy()
		if err := s.fees.Update(ctx, tx, fee); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel payment")
		}
		cancelled = fee
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.audit(ctx, actor, models.AuditActionFeeCancel, cancelled.ID, map[string]interface{}{"reason": req.Reason})
	return cancelled, nil
}

// Create inserts a pending fee record directly.
func (s *FeeLedgerService) Create(ctx context.Context, req dto.CreateFeeRequest, actor Actor) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}
	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = demandDescription(req.FeeType, req.AcademicYear, req.Semester)
	}
	fee := &models.Fee{
		StudentID:    student.RollNo,
		FeeType:      req.FeeType,
		Amount:       req.Amount,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		DueDate:      req.DueDate.UTC(),
		Status:       models.FeeStatusPending,
		Description:  description,
		ProcessedBy:  actor.processedBy(),
	}
	if err := s.fees.Create(ctx, nil, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee")
	}

	s.side.Metrics.RecordFeesCreated("manual", 1)
	s.invalidateStats(ctx)
	s.audit(ctx, actor, models.AuditActionFeeCreate, fee.ID, map[string]interface{}{"student_id": fee.StudentID, "amount": fee.Amount})
	return fee, nil
}

// Get returns a single fee record.
func (s *FeeLedgerService) Get(ctx context.Context, feeID string) (*models.Fee, error) {
	fee, err := s.fees.FindByID(ctx, nil, feeID, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	return fee, nil
}

// withTx runs fn in a transaction and rolls back when fn fails.
func (s *FeeLedgerService) withTx(ctx context.Context, label string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to commit %s transaction", label))
	}
	return nil
}

func (s *FeeLedgerService) loadStudent(ctx context.Context, rollNo string) (*models.StudentAccount, error) {
	student, err := s.students.FindByID(ctx, rollNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *FeeLedgerService) lockFee(ctx context.Context, tx *sqlx.Tx, feeID string) (*models.Fee, error) {
	fee, err := s.fees.FindByID(ctx, tx, feeID, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	return fee, nil
}

func (s *FeeLedgerService) afterPayment(ctx context.Context, result *dto.PaymentAllocationResult, actor Actor) {
	s.side.Metrics.RecordPayment(string(result.PaymentMethod), result.TotalApplied, len(result.Lines))
	s.invalidateStats(ctx)

	if s.side.Broadcaster != nil {
		event := PaymentEvent{
			StudentID:     result.StudentID,
			Amount:        result.TotalApplied,
			PaymentMethod: string(result.PaymentMethod),
			TransactionID: result.TransactionID,
			PaidAt:        result.PaymentDate,
		}
		if err := s.side.Broadcaster.BroadcastPayment(ctx, event); err != nil {
			s.logger.Warn("failed to broadcast fee payment", zap.String("transaction_id", result.TransactionID), zap.Error(err))
		}
	}

	if s.side.Receipts != nil {
		if link, err := s.side.Receipts.Link(result.TransactionID, result.PaymentDate); err != nil {
			s.logger.Warn("failed to sign receipt link", zap.String("transaction_id", result.TransactionID), zap.Error(err))
		} else {
			result.ReceiptURL = &link
		}
		transactionID := result.TransactionID
		s.dispatch(ctx, jobs.Job{ID: transactionID, Type: jobs.TypeRenderReceipt, Payload: transactionID}, func(ctx context.Context) error {
			return s.side.Receipts.RenderAndStore(ctx, transactionID)
		})
	}

	s.audit(ctx, actor, models.AuditActionFeePay, result.TransactionID, map[string]interface{}{
		"student_id": result.StudentID,
		"amount":     result.TotalApplied,
		"lines":      len(result.Lines),
	})
}

// dispatch enqueues a background job, running it inline when no queue is wired
// or the queue rejects it. Failures are logged only.
func (s *FeeLedgerService) dispatch(ctx context.Context, job jobs.Job, inline func(ctx context.Context) error) {
	if s.side.Jobs != nil {
		err := s.side.Jobs.Enqueue(job)
		if err == nil {
			return
		}
		s.logger.Warn("failed to enqueue job, running inline", zap.String("type", job.Type), zap.String("job_id", job.ID), zap.Error(err))
	}
	if err := inline(ctx); err != nil {
		s.logger.Warn("background job failed", zap.String("type", job.Type), zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (s *FeeLedgerService) invalidateStats(ctx context.Context) {
	if s.side.Cache == nil {
		return
	}
	if err := s.side.Cache.Invalidate(ctx, feeStatsCacheKey+"*"); err != nil {
		s.logger.Warn("failed to invalidate fee statistics cache", zap.Error(err))
	}
}

func (s *FeeLedgerService) audit(ctx context.Context, actor Actor, action, resourceID string, values map[string]interface{}) {
	if s.side.Audit == nil {
		return
	}
	payload, err := json.Marshal(values)
	if err != nil {
		payload = []byte(`{}`)
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "fees",
		ResourceID: optionalString(resourceID),
		NewValues:  payload,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if actor.UserID != "" {
		userID := actor.UserID
		entry.UserID = &userID
	}
	if err := s.side.Audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record fee audit log", zap.String("action", action), zap.Error(err))
	}
}

// generateTransactionID returns TXN followed by 8 uppercase hex characters.
func generateTransactionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TXN" + strings.ToUpper(raw[:8])
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func demandDescription(feeType models.FeeType, academicYear string, semester int) string {
	return fmt.Sprintf("%s fee for %s - Semester %d", feeType.Label(), academicYear, semester)
}
