package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/matching"
	"github.com/MrJamesThe3rd/offertory/internal/metrics"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
)

//go:generate mockgen -source=engine.go -destination=engine_mock.go -package=reconcile
type Ledger interface {
	List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
}

type Receipts interface {
	Get(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error)
	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]*receipt.Receipt, error)
}

// Store performs the guarded verification write. It returns ErrAlreadyReconciled when the transaction
// is already linked to a verified receipt, ErrInvalidTransition when the receipt left the open states,
// and ErrNotFound for an unknown receipt or transaction.
type Store interface {
	PersistVerification(ctx context.Context, v Verification) error
}

type Verification struct {
	ReceiptID     uuid.UUID
	TransactionID uuid.UUID
	Note          string
	VerifiedBy    string
	At            time.Time
}

type PendingItem struct {
	Receipt     *receipt.Receipt
	Suggestions []matching.Candidate
	TopMatch    *matching.Candidate
	Tier        matching.Tier
	Priority    int
}

type VerifiedItem struct {
	Receipt     *receipt.Receipt
	Transaction *ledger.Transaction
}

// Workbench is the reconciliation view of one activity against the global ledger.
type Workbench struct {
	ActivityID   uuid.UUID
	Receipts     []*receipt.Receipt
	Transactions []*ledger.Transaction
	Pending      []PendingItem
	Verified     []VerifiedItem
	Rejected     []*receipt.Receipt
}

type VerifyParams struct {
	ReceiptID     uuid.UUID
	TransactionID uuid.UUID
	Note          string
	VerifiedBy    string
}

type Engine struct {
	ledger   Ledger
	receipts Receipts
	store    Store
	matcher  *matching.Matcher
	now      func() time.Time
}

func NewEngine(l Ledger, r Receipts, s Store, m *matching.Matcher) *Engine {
	return &Engine{ledger: l, receipts: r, store: s, matcher: m, now: time.Now}
}

// LoadActivity reads the activity's receipts and the full ledger and computes candidates for every
// receipt that can still be verified. Nothing is cached; each call reflects the store.
func (e *Engine) LoadActivity(ctx context.Context, activityID uuid.UUID) (*Workbench, error) {
	receipts, err := e.receipts.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, lookupError("list receipts", err)
	}

	txs, err := e.ledger.List(ctx, ledger.ListFilter{})
	if err != nil {
		return nil, &PersistenceError{Op: "list transactions", Err: err}
	}

	byID := make(map[uuid.UUID]*ledger.Transaction, len(txs))
	for _, tx := range txs {
		byID[tx.ID] = tx
	}

	wb := &Workbench{ActivityID: activityID, Receipts: receipts, Transactions: txs}

	for _, r := range receipts {
		switch {
		case r.Status.Open():
			item := e.pendingItem(r, txs)
			metrics.IncMatchTier(string(item.Tier))
			wb.Pending = append(wb.Pending, item)
		case r.Status == receipt.StatusVerified:
			var tx *ledger.Transaction
			if r.LinkedTransactionID != nil {
				tx = byID[*r.LinkedTransactionID]
			}

			if tx == nil {
				slog.Warn("verified receipt without linked transaction", "receipt_id", r.ID)
			}

			wb.Verified = append(wb.Verified, VerifiedItem{Receipt: r, Transaction: tx})
		case r.Status == receipt.StatusRejected:
			wb.Rejected = append(wb.Rejected, r)
		}
	}

	slices.SortStableFunc(wb.Pending, func(a, b PendingItem) int {
		return a.Priority - b.Priority
	})

	return wb, nil
}

func (e *Engine) pendingItem(r *receipt.Receipt, pool []*ledger.Transaction) PendingItem {
	res := e.matcher.Match(r, pool)

	return PendingItem{
		Receipt:     r,
		Suggestions: res.Candidates,
		TopMatch:    res.Top(),
		Tier:        res.Tier,
		Priority:    res.Tier.Priority(),
	}
}

// ListPending returns the open receipts of an activity, best tier first, load order within a tier.
func (e *Engine) ListPending(ctx context.Context, activityID uuid.UUID) ([]PendingItem, error) {
	wb, err := e.LoadActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	return wb.Pending, nil
}

func (e *Engine) ListVerified(ctx context.Context, activityID uuid.UUID) ([]VerifiedItem, error) {
	wb, err := e.LoadActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	return wb.Verified, nil
}

// Ledger is the global administrative view: every transaction with its reconciled flag.
func (e *Engine) Ledger(ctx context.Context) ([]*ledger.Transaction, error) {
	txs, err := e.ledger.List(ctx, ledger.ListFilter{})
	if err != nil {
		return nil, &PersistenceError{Op: "list transactions", Err: err}
	}

	return txs, nil
}

// Verify links an open receipt to an unreconciled transaction. When another receipt claims the
// transaction first, the returned *AlreadyReconciledError carries refreshed suggestions.
func (e *Engine) Verify(ctx context.Context, params VerifyParams) (*VerifiedItem, error) {
	r, err := e.receipts.Get(ctx, params.ReceiptID)
	if err != nil {
		return nil, lookupError("get receipt", err)
	}

	if !r.Status.Open() {
		return nil, fmt.Errorf("%w: receipt %s is %s", ErrInvalidTransition, r.ID, r.Status)
	}

	tx, err := e.ledger.Get(ctx, params.TransactionID)
	if err != nil {
		return nil, lookupError("get transaction", err)
	}

	if tx.IsReconciled {
		return nil, e.claimed(ctx, r, tx.ID)
	}

	v := Verification{
		ReceiptID:     r.ID,
		TransactionID: tx.ID,
		Note:          params.Note,
		VerifiedBy:    params.VerifiedBy,
		At:            e.now(),
	}

	if err := e.store.PersistVerification(ctx, v); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyReconciled):
			return nil, e.claimed(ctx, r, tx.ID)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidTransition):
			return nil, err
		}

		metrics.IncVerification(metrics.OutcomeError)

		return nil, &PersistenceError{Op: "persist verification", Err: err}
	}

	r.Status = receipt.StatusVerified
	r.LinkedTransactionID = &tx.ID
	r.VerificationNote = v.Note
	r.VerifiedBy = v.VerifiedBy
	r.VerifiedAt = &v.At
	r.UpdatedAt = v.At
	tx.IsReconciled = true

	metrics.IncVerification(metrics.OutcomeVerified)
	slog.Info("receipt verified", "receipt_id", r.ID, "transaction_id", tx.ID, "verified_by", v.VerifiedBy)

	return &VerifiedItem{Receipt: r, Transaction: tx}, nil
}

func (e *Engine) claimed(ctx context.Context, r *receipt.Receipt, txID uuid.UUID) error {
	metrics.IncVerification(metrics.OutcomeClaimed)
	slog.Warn("transaction already reconciled", "receipt_id", r.ID, "transaction_id", txID)

	claimErr := &AlreadyReconciledError{ReceiptID: r.ID, TransactionID: txID}

	pool, err := e.ledger.List(ctx, ledger.ListFilter{Unreconciled: true})
	if err != nil {
		slog.Error("failed to refresh suggestions", "receipt_id", r.ID, "error", err)
		return claimErr
	}

	pool = slices.DeleteFunc(pool, func(tx *ledger.Transaction) bool { return tx.ID == txID })
	item := e.pendingItem(r, pool)
	claimErr.Refreshed = &item

	return claimErr
}

func lookupError(op string, err error) error {
	if errors.Is(err, receipt.ErrNotFound) || errors.Is(err, receipt.ErrActivityNotFound) ||
		errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return &PersistenceError{Op: op, Err: err}
}
