package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a rendered email ready for delivery.
type Message struct {
	To          []mail.Address
	Subject     string
	TextContent string
	HTMLContent string
	Attachments []Attachment
}

// HasRecipients reports whether the message has at least one recipient address.
func (m Message) HasRecipients() bool {
	for _, to := range m.To {
		if to.Address != "" {
			return true
		}
	}
	return false
}

// Sender delivers messages. Implementations return an error so the job queue can retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns a SendGrid sender when an API key is configured, otherwise a
// sender that only logs the message.
func New(apiKey, fromName, fromAddress string, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiKey == "" {
		return &LogSender{logger: logger}
	}
	return &SendgridSender{
		key:    apiKey,
		from:   sgmail.NewEmail(fromName, fromAddress),
		logger: logger,
	}
}

// SendgridSender posts messages to the SendGrid v3 mail API.
type SendgridSender struct {
	key    string
	from   *sgmail.Email
	logger *zap.Logger
}

// Send delivers the message synchronously.
func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	if !msg.HasRecipients() {
		return fmt.Errorf("send email %q: no recipients", msg.Subject)
	}
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send email %q: %w", msg.Subject, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send email %q: status %d: %s", msg.Subject, res.StatusCode, res.Body)
	}
	s.logger.Debug("email sent", zap.String("subject", msg.Subject), zap.Int("status", res.StatusCode))
	return nil
}

func (s *SendgridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		if to.Address == "" {
			continue
		}
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	for _, a := range msg.Attachments {
		att := sgmail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(a.ContentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}
	return m
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a logging sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message envelope.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if !msg.HasRecipients() {
		return fmt.Errorf("send email %q: no recipients", msg.Subject)
	}
	addresses := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		addresses = append(addresses, to.String())
	}
	s.logger.Info("email not delivered, mail transport disabled",
		zap.Strings("to", addresses),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}
