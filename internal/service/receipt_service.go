package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-erp-api/internal/dto"
	"github.com/noah-isme/campus-erp-api/internal/models"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
	"github.com/noah-isme/campus-erp-api/pkg/export"
	"github.com/noah-isme/campus-erp-api/pkg/jobs"
	"github.com/noah-isme/campus-erp-api/pkg/storage"
)

type receiptFeeReader interface {
	ListByTransaction(ctx context.Context, transactionID string) ([]models.Fee, error)
	FindByReceipt(ctx context.Context, receiptNumber string) (*models.Fee, error)
}

type receiptStudentReader interface {
	FindByID(ctx context.Context, rollNo string) (*models.StudentAccount, error)
}

type receiptStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Exists(filename string) bool
}

type receiptRenderer interface {
	Render(receipt export.Receipt) ([]byte, error)
}

// ReceiptConfig tunes receipt rendering and download links.
type ReceiptConfig struct {
	Institution string
	APIPrefix   string
}

// ReceiptService renders, stores and serves payment receipts. One PDF is kept
// per transaction; it lists every fee the transaction settled.
type ReceiptService struct {
	fees     receiptFeeReader
	students receiptStudentReader
	store    receiptStore
	signer   *storage.SignedURLSigner
	renderer receiptRenderer
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ReceiptConfig
}

// NewReceiptService constructs a ReceiptService.
func NewReceiptService(fees receiptFeeReader, students receiptStudentReader, store receiptStore, signer *storage.SignedURLSigner, renderer receiptRenderer, metrics *MetricsService, logger *zap.Logger, cfg ReceiptConfig) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewReceiptRenderer()
	}
	if cfg.Institution == "" {
		cfg.Institution = "Campus ERP"
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ReceiptService{
		fees:     fees,
		students: students,
		store:    store,
		signer:   signer,
		renderer: renderer,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Link returns a signed download URL for the transaction receipt.
func (s *ReceiptService) Link(transactionID string, paidAt time.Time) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("receipt signer not configured")
	}
	token, _, err := s.signer.Generate(transactionID, storage.ReceiptPath(receiptPeriod(paidAt), transactionID))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/fees/receipts/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token), nil
}

// RenderAndStore renders the receipt PDF for a transaction and writes it to storage.
func (s *ReceiptService) RenderAndStore(ctx context.Context, transactionID string) error {
	_, err := s.render(ctx, transactionID)
	return err
}

// HandleJob renders a receipt queued by the ledger.
func (s *ReceiptService) HandleJob(ctx context.Context, job jobs.Job) error {
	transactionID, ok := job.Payload.(string)
	if !ok || transactionID == "" {
		return fmt.Errorf("receipt job %s: payload must be a transaction id", job.ID)
	}
	return s.RenderAndStore(ctx, transactionID)
}

// ByTransaction returns the receipt for a transaction.
func (s *ReceiptService) ByTransaction(ctx context.Context, transactionID string, actor Actor) (*dto.ReceiptResponse, error) {
	fees, student, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := actor.authorizeStudent(student.RollNo); err != nil {
		return nil, err
	}
	return s.view(fees, student), nil
}

// ByNumber resolves a receipt number to its transaction receipt.
func (s *ReceiptService) ByNumber(ctx context.Context, receiptNumber string, actor Actor) (*dto.ReceiptResponse, error) {
	fee, err := s.fees.FindByReceipt(ctx, receiptNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipt")
	}
	if fee.TransactionID == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
	}
	return s.ByTransaction(ctx, *fee.TransactionID, actor)
}

// Download validates a signed token and returns the stored PDF, rendering it
// first when the background job has not run yet.
func (s *ReceiptService) Download(ctx context.Context, token string) (*dto.Document, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt downloads are disabled")
	}
	transactionID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired receipt link")
	}
	return s.document(ctx, transactionID, relPath)
}

// Document returns the receipt PDF of a transaction for an authenticated caller.
func (s *ReceiptService) Document(ctx context.Context, transactionID string, actor Actor) (*dto.Document, error) {
	fees, student, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := actor.authorizeStudent(student.RollNo); err != nil {
		return nil, err
	}
	var paidAt time.Time
	if fees[0].PaymentDate != nil {
		paidAt = *fees[0].PaymentDate
	}
	return s.document(ctx, transactionID, storage.ReceiptPath(receiptPeriod(paidAt), transactionID))
}

func (s *ReceiptService) document(ctx context.Context, transactionID, relPath string) (*dto.Document, error) {
	var (
		data []byte
		err  error
	)
	if s.store.Exists(relPath) {
		data, err = s.store.Read(relPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read receipt")
		}
	} else {
		data, err = s.render(ctx, transactionID)
		if err != nil {
			return nil, err
		}
	}
	return &dto.Document{
		Filename:    fmt.Sprintf("receipt_%s.pdf", transactionID),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func (s *ReceiptService) render(ctx context.Context, transactionID string) ([]byte, error) {
	fees, student, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	receipt := buildReceipt(s.cfg.Institution, fees, student)
	data, err := s.renderer.Render(receipt)
	if err != nil {
		s.metrics.RecordReceipt(false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}

	relPath := storage.ReceiptPath(receiptPeriod(receipt.Meta.PaymentDate), transactionID)
	if _, err := s.store.Save(relPath, data); err != nil {
		s.metrics.RecordReceipt(false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store receipt")
	}
	s.metrics.RecordReceipt(true)
	s.logger.Info("receipt stored", zap.String("transaction_id", transactionID), zap.String("path", relPath), zap.Int("lines", len(fees)))
	return data, nil
}

func (s *ReceiptService) load(ctx context.Context, transactionID string) ([]models.Fee, *models.StudentAccount, error) {
	fees, err := s.fees.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}
	if len(fees) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
	}
	for i := range fees[1:] {
		if fees[i+1].StudentID != fees[0].StudentID {
			s.logger.Error("transaction spans students", zap.String("transaction_id", transactionID))
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "transaction records belong to more than one student")
		}
	}
	student, err := s.students.FindByID(ctx, fees[0].StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return fees, student, nil
}

func (s *ReceiptService) view(fees []models.Fee, student *models.StudentAccount) *dto.ReceiptResponse {
	first := fees[0]
	resp := &dto.ReceiptResponse{
		TransactionID:   deref(first.TransactionID),
		StudentID:       student.RollNo,
		StudentName:     student.Name,
		CourseName:      student.CourseName,
		ReferenceNumber: first.ReferenceNumber,
		Lines:           make([]dto.ReceiptLineView, 0, len(fees)),
	}
	if first.PaymentMethod != nil {
		resp.PaymentMethod = *first.PaymentMethod
	}
	if first.PaymentDate != nil {
		resp.PaymentDate = *first.PaymentDate
		if link, err := s.Link(resp.TransactionID, resp.PaymentDate); err == nil {
			resp.DownloadURL = link
		}
	}
	for _, fee := range fees {
		amount := fee.TotalAmount()
		resp.Lines = append(resp.Lines, dto.ReceiptLineView{
			FeeID:         fee.ID,
			ReceiptNumber: deref(fee.ReceiptNumber),
			FeeType:       fee.FeeType,
			Description:   fee.Description,
			Semester:      fee.Semester,
			AcademicYear:  fee.AcademicYear,
			Amount:        amount,
		})
		resp.Total += amount
	}
	return resp
}

func buildReceipt(institution string, fees []models.Fee, student *models.StudentAccount) export.Receipt {
	first := fees[0]
	receipt := export.Receipt{
		Institution: institution,
		Student: export.ReceiptStudent{
			Name:   student.Name,
			RollNo: student.RollNo,
			Course: student.CourseName,
			Email:  student.Email,
		},
		Meta: export.ReceiptMeta{
			TransactionID:   deref(first.TransactionID),
			ReferenceNumber: deref(first.ReferenceNumber),
		},
	}
	if first.PaymentMethod != nil {
		receipt.Meta.PaymentMethod = string(*first.PaymentMethod)
	}
	if first.PaymentDate != nil {
		receipt.Meta.PaymentDate = *first.PaymentDate
	}
	for _, fee := range fees {
		receipt.Lines = append(receipt.Lines, export.ReceiptLine{
			ReceiptNumber: deref(fee.ReceiptNumber),
			Description:   fee.Description,
			FeeType:       fee.FeeType.Label(),
			Semester:      fee.Semester,
			AcademicYear:  fee.AcademicYear,
			Amount:        fee.TotalAmount(),
		})
	}
	return receipt
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
