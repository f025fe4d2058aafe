package reconcile

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyReconciled = errors.New("transaction already reconciled")
)

// AlreadyReconciledError reports a verify that lost the race for its transaction. Refreshed holds the
// receipt's suggestions recomputed without the claimed transaction, when they could be loaded.
type AlreadyReconciledError struct {
	ReceiptID     uuid.UUID
	TransactionID uuid.UUID
	Refreshed     *PendingItem
}

func (e *AlreadyReconciledError) Error() string {
	return fmt.Sprintf("transaction %s already reconciled by another receipt", e.TransactionID)
}

func (e *AlreadyReconciledError) Is(target error) bool {
	return target == ErrAlreadyReconciled
}

// PersistenceError wraps a failure of the durable store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
