package model

import (
	"time"

	"club-registration/internal/domain"
)

// SyncStatus is the staged transaction's accounting-sync state machine:
//
//	staged -> pending -> completed | failed
//	staged -> completed            (zero-dollar short circuit)
//	staged -> ignore               (admin discard)
//	pending -> failed              (processor rejection / rollback)
//
// Transitions only move forward except on explicit failure; a record is
// never submitted externally while still staged.
type SyncStatus string

const (
	SyncStaged    SyncStatus = "staged"
	SyncPending   SyncStatus = "pending"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
	SyncIgnore    SyncStatus = "ignore"
)

// CanTransition is the single source of truth for legal sync transitions.
func (s SyncStatus) CanTransition(to SyncStatus) bool {
	switch s {
	case SyncStaged:
		return to == SyncPending || to == SyncCompleted || to == SyncFailed || to == SyncIgnore
	case SyncPending:
		return to == SyncCompleted || to == SyncFailed
	default:
		return false
	}
}

type TransactionKind string

const (
	TransactionCharge TransactionKind = "charge"
	TransactionRefund TransactionKind = "refund"
)

type LineItemKind string

const (
	LineItemMembership   LineItemKind = "membership"
	LineItemRegistration LineItemKind = "registration"
	LineItemDonation     LineItemKind = "donation"
)

// LineItem is one accounting line within a staged transaction. Zero-dollar
// transactions still carry a zero-amount line for audit completeness.
type LineItem struct {
	Kind           LineItemKind
	Description    string
	Amount         int64
	AccountingCode string
}

// Amounts captures the money computation for one transaction.
type Amounts struct {
	Gross    int64
	Discount int64
	Net      int64
}

// ComputeAmounts applies a percentage discount to a base amount.
// The discount is floor(base*pct/100) and the net is clamped at zero.
func ComputeAmounts(base int64, discountPct int64) (Amounts, error) {
	if base < 0 || discountPct < 0 || discountPct > 100 {
		return Amounts{}, domain.ErrInvalidArgument
	}
	d := base * discountPct / 100
	net := base - d
	if net < 0 {
		net = 0
	}
	return Amounts{Gross: base, Discount: d, Net: net}, nil
}

// ComputeFixedDiscount applies a fixed-cents discount (assistance credits,
// presale codes with absolute value). Net never goes negative; the recorded
// discount is capped at the base so Gross = Discount + Net always holds.
func ComputeFixedDiscount(base int64, discount int64) (Amounts, error) {
	if base < 0 || discount < 0 {
		return Amounts{}, domain.ErrInvalidArgument
	}
	if discount > base {
		discount = base
	}
	return Amounts{Gross: base, Discount: discount, Net: base - discount}, nil
}

// StagedTransaction is the write-ahead record of an intended external
// transaction, created before any processor call so a crash between phases
// leaves identifiable, recoverable state.
type StagedTransaction struct {
	ID            string // ULID: sortable, doubles as the processor metadata key
	Kind          TransactionKind
	UserID        string
	Amounts       Amounts
	LineItems     []LineItem
	DiscountCodes []string
	SyncStatus    SyncStatus
	// Set when the record is linked to a concrete money movement; required
	// before any external submission.
	PaymentID *string
	RefundID  *string
	// Set immediately before the processor call. A pending record without
	// it provably never reached the processor and is safe to roll back.
	SubmittedAt   *time.Time
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (st *StagedTransaction) IsZero() bool { return st == nil || st.ID == "" }

// Linked reports whether the record has been tied to a Payment or Refund.
func (st *StagedTransaction) Linked() bool {
	return st != nil && (st.PaymentID != nil || st.RefundID != nil)
}

// IsZeroDollar reports whether the net payable is exactly zero, which
// bypasses the processor entirely.
func (st *StagedTransaction) IsZeroDollar() bool {
	return st != nil && st.Amounts.Net == 0
}
