package model

import (
	"fmt"
	"time"

	"club-registration/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment records a processor-backed monetary transaction.
// PaymentIntentID is nil for zero-dollar transactions that never reached
// the processor.
type Payment struct {
	ID              string
	UserID          string
	TotalAmount     int64
	FinalAmount     int64
	PaymentIntentID *string
	Status          PaymentStatus
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Payment) IsZero() bool { return p == nil || p.ID == "" }

type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
)

// RefundKind classifies a refund against the originating payment.
type RefundKind string

const (
	RefundFull    RefundKind = "full"
	RefundPartial RefundKind = "partial"
	RefundZero    RefundKind = "zero"
)

// Refund references a Payment. StripeRefundID stays nil for zero-dollar
// refunds, which never contact the processor.
type Refund struct {
	ID             string
	PaymentID      string
	UserID         string
	Amount         int64
	Reason         string
	Status         RefundStatus
	StripeRefundID *string
	ProcessedBy    string
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

// ClassifyRefund validates amount against the originating payment and
// classifies the refund. Amount may never exceed the payment's final amount.
func ClassifyRefund(amount int64, p *Payment) (RefundKind, error) {
	if p == nil || amount < 0 {
		return "", domain.ErrInvalidArgument
	}
	if amount > p.FinalAmount {
		return "", domain.ErrRefundExceedsPayment
	}
	switch {
	case amount == 0:
		return RefundZero, nil
	case amount == p.FinalAmount:
		return RefundFull, nil
	default:
		return RefundPartial, nil
	}
}

// RefundMessage builds the member-facing confirmation line for a refund.
func RefundMessage(kind RefundKind, amount, original int64) string {
	switch kind {
	case RefundFull:
		return fmt.Sprintf("Full refund of %s processed successfully", FormatCents(amount))
	case RefundPartial:
		return fmt.Sprintf("Partial refund of %s (of %s) processed successfully", FormatCents(amount), FormatCents(original))
	default:
		return "Refund recorded, no charge to reverse"
	}
}

// FormatCents renders integer cents as a dollar string, e.g. 2000 -> "$20.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
