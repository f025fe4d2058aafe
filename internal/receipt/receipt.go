package receipt

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("receipt not found")
	ErrActivityNotFound  = errors.New("activity not found")
	ErrInvalidTransition = errors.New("invalid receipt status transition")
)

// Status represents the lifecycle state of a payment claim.
type Status string

const (
	StatusSubmitted    Status = "submitted"
	StatusPending      Status = "pending"
	StatusManualReview Status = "manual_review"
	StatusVerified     Status = "verified"
	StatusRejected     Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusPending, StatusManualReview, StatusVerified, StatusRejected:
		return true
	}

	return false
}

// Open reports whether a receipt in this status can still be verified or rejected.
func (s Status) Open() bool {
	return s == StatusSubmitted || s == StatusPending || s == StatusManualReview
}

// OpenStatuses lists the statuses Open accepts.
func OpenStatuses() []Status {
	return []Status{StatusSubmitted, StatusPending, StatusManualReview}
}

// Activity is the form or event a payment is claimed against.
type Activity struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Extracted holds the best-effort fields read from the receipt image. Any field may be absent.
type Extracted struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Date            *time.Time       `json:"date,omitempty"`
	Reference       *string          `json:"reference,omitempty"`
	SenderName      *string          `json:"sender_name,omitempty"`
	BeneficiaryName *string          `json:"beneficiary_name,omitempty"`
	// IsCorrectBeneficiary is false when the payment went to someone else.
	IsCorrectBeneficiary *bool `json:"is_correct_beneficiary,omitempty"`
}

// Receipt is a payment claim submitted against an activity.
type Receipt struct {
	ID            uuid.UUID
	ActivityID    uuid.UUID
	ClaimedAmount *decimal.Decimal
	Extracted     Extracted
	ReceiptPath   string
	Status        Status
	// LinkedTransactionID is set if and only if Status is verified.
	LinkedTransactionID *uuid.UUID
	VerificationNote    string
	VerifiedAt          *time.Time
	VerifiedBy          string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Amount returns the extracted amount, falling back to the self-declared one.
func (r *Receipt) Amount() (decimal.Decimal, bool) {
	if r.Extracted.Amount != nil {
		return *r.Extracted.Amount, true
	}

	if r.ClaimedAmount != nil {
		return *r.ClaimedAmount, true
	}

	return decimal.Decimal{}, false
}

// FraudRisk reports an extraction that flagged the wrong beneficiary.
func (r *Receipt) FraudRisk() bool {
	return r.Extracted.IsCorrectBeneficiary != nil && !*r.Extracted.IsCorrectBeneficiary
}
