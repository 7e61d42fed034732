package service

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-erp-api/internal/dto"
	"github.com/noah-isme/campus-erp-api/pkg/export"
	"github.com/noah-isme/campus-erp-api/pkg/jobs"
	"github.com/noah-isme/campus-erp-api/pkg/mailer"
)

// FeeNotice tells a student which fees a demand run created for them.
type FeeNotice struct {
	StudentID    string
	Name         string
	Email        string
	AcademicYear string
	Semester     int
	DueDate      time.Time
	Lines        []dto.DemandLine
}

// Total sums the billed amounts.
func (n FeeNotice) Total() int64 {
	var total int64
	for _, line := range n.Lines {
		total += line.Amount
	}
	return total
}

var feeNoticeTemplate = template.Must(template.New("fee_notice").Funcs(template.FuncMap{
	"amount": export.FormatAmount,
	"date":   func(t time.Time) string { return t.Format("02 Jan 2006") },
}).Parse(`Dear {{.Name}},

Fees for semester {{.Semester}} of academic year {{.AcademicYear}} have been issued to your account ({{.StudentID}}).

{{range .Lines}}  {{printf "%-15s" .FeeType}} {{amount .Amount}}
{{end}}
  Total due: {{amount .Total}}
  Due date:  {{date .DueDate}}

A late fee applies to payments received after the due date.
`))

// NotificationService renders fee notices and hands them to the mail sender.
type NotificationService struct {
	sender      mailer.Sender
	institution string
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(sender mailer.Sender, institution string, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = mailer.NewLogSender(logger)
	}
	if institution == "" {
		institution = "Campus ERP"
	}
	return &NotificationService{sender: sender, institution: institution, metrics: metrics, logger: logger}
}

// SendFeeNotice emails the notice to the student.
func (s *NotificationService) SendFeeNotice(ctx context.Context, notice FeeNotice) error {
	msg, err := s.compose(notice)
	if err != nil {
		s.metrics.RecordNotification(false)
		return err
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.RecordNotification(false)
		return fmt.Errorf("send fee notice to %s: %w", notice.StudentID, err)
	}
	s.metrics.RecordNotification(true)
	s.logger.Debug("fee notice sent", zap.String("student_id", notice.StudentID), zap.Int("lines", len(notice.Lines)))
	return nil
}

// HandleJob delivers a notice queued by demand generation.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(FeeNotice)
	if !ok {
		return fmt.Errorf("fee notice job %s: unexpected payload %T", job.ID, job.Payload)
	}
	return s.SendFeeNotice(ctx, notice)
}

func (s *NotificationService) compose(notice FeeNotice) (mailer.Message, error) {
	var body bytes.Buffer
	if err := feeNoticeTemplate.Execute(&body, notice); err != nil {
		return mailer.Message{}, fmt.Errorf("render fee notice: %w", err)
	}
	return mailer.Message{
		To:          []mail.Address{{Name: notice.Name, Address: notice.Email}},
		Subject:     fmt.Sprintf("%s: fees due for %s semester %d", s.institution, notice.AcademicYear, notice.Semester),
		TextContent: body.String(),
	}, nil
}
