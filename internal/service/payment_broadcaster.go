package service

import (
	"context"
	"time"
)

// PaymentChannel is the pub/sub channel dashboards subscribe to for live payments.
const PaymentChannel = "fees:payments"

// PaymentEvent is published after a payment commits.
type PaymentEvent struct {
	StudentID     string    `json:"studentId"`
	Amount        int64     `json:"amount"`
	PaymentMethod string    `json:"paymentMethod"`
	TransactionID string    `json:"transactionId"`
	PaidAt        time.Time `json:"paidAt"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// PaymentBroadcaster fans payment events out over Redis pub/sub.
type PaymentBroadcaster struct {
	pub     publisher
	channel string
}

// NewPaymentBroadcaster constructs a broadcaster; a nil publisher disables it.
func NewPaymentBroadcaster(pub publisher, channel string) *PaymentBroadcaster {
	if channel == "" {
		channel = PaymentChannel
	}
	return &PaymentBroadcaster{pub: pub, channel: channel}
}

// BroadcastPayment publishes the event.
func (b *PaymentBroadcaster) BroadcastPayment(ctx context.Context, event PaymentEvent) error {
	if b == nil || b.pub == nil {
		return nil
	}
	return b.pub.Publish(ctx, b.channel, event)
}
