package adapter

import (
	"context"
	"time"
)

// ChargeResult is the provider-agnostic outcome of a synchronous charge
// submission. Definitive confirmation may still arrive later by webhook.
type ChargeResult struct {
	PaymentIntentID string
	Status          string // provider status, e.g. "succeeded" / "processing"
	CreatedAt       time.Time
}

type RefundResult struct {
	RefundID  string
	Status    string
	Amount    int64
	CreatedAt time.Time
}

// PaymentGateway is the hex port for the payment processor (Stripe-shaped).
// Metadata always carries the staged transaction id so asynchronous webhook
// confirmations can correlate back to the write-ahead record.
type PaymentGateway interface {
	Name() string

	// CreateCharge submits a charge against a saved payment method.
	CreateCharge(ctx context.Context, amount int64, paymentMethodID string, metadata map[string]string) (ChargeResult, error)

	// CreateRefund reverses part or all of a captured payment.
	CreateRefund(ctx context.Context, paymentIntentID string, amount int64, metadata map[string]string) (RefundResult, error)
}
