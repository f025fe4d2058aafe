package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("transaction not found")

// Transaction is a normalized bank statement credit.
type Transaction struct {
	ID uuid.UUID
	// Date is the calendar day the bank posted the credit.
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Reference   *string
	// IsReconciled is derived on read: a verified receipt links this transaction.
	IsReconciled bool
	CreatedAt    time.Time
}

// Matchable reports whether the row carries a usable date and amount.
func (t *Transaction) Matchable() bool {
	return !t.Date.IsZero() && !t.Amount.IsNegative()
}

// ReferenceValue returns the bank reference or an empty string.
func (t *Transaction) ReferenceValue() string {
	if t.Reference == nil {
		return ""
	}

	return *t.Reference
}
