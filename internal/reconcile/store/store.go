package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
)

// uniqueViolation is the SQLSTATE raised when a second verified receipt claims a transaction.
const uniqueViolation = "23505"

const openStatuses = `('submitted', 'pending', 'manual_review')`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// PersistVerification moves the receipt to verified and records the audit event in one transaction.
// The update only applies while no other verified receipt links the transaction; the partial unique
// index on receipts(linked_transaction_id) rejects the loser of a concurrent race.
func (s *Store) PersistVerification(ctx context.Context, v reconcile.Verification) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		UPDATE receipts AS r
		SET status = 'verified',
			linked_transaction_id = $2,
			verification_note = $3,
			verified_by = $4,
			verified_at = $5,
			updated_at = $5
		FROM (SELECT id, status FROM receipts WHERE id = $1 FOR UPDATE) AS prev
		WHERE r.id = prev.id
			AND prev.status IN ` + openStatuses + `
			AND EXISTS (SELECT 1 FROM bank_transactions t WHERE t.id = $2)
			AND NOT EXISTS (
				SELECT 1 FROM receipts o
				WHERE o.linked_transaction_id = $2 AND o.status = 'verified'
			)
		RETURNING prev.status
	`

	var fromStatus string

	err = dbTx.QueryRowContext(ctx, query, v.ReceiptID, v.TransactionID, v.Note, v.VerifiedBy, v.At).Scan(&fromStatus)
	if isUniqueViolation(err) {
		return reconcile.ErrAlreadyReconciled
	}

	if errors.Is(err, sql.ErrNoRows) {
		return classifyMiss(ctx, dbTx, v.ReceiptID, v.TransactionID)
	}

	if err != nil {
		return fmt.Errorf("updating receipt: %w", err)
	}

	event := `
		INSERT INTO verification_events
			(receipt_id, transaction_id, action, from_status, to_status, note, performed_by, created_at)
		VALUES ($1, $2, 'verify', $3, $4, $5, $6, $7)
	`

	_, err = dbTx.ExecContext(ctx, event,
		v.ReceiptID, v.TransactionID, fromStatus, receipt.StatusVerified, v.Note, v.VerifiedBy, v.At,
	)
	if err != nil {
		return fmt.Errorf("recording verification event: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return reconcile.ErrAlreadyReconciled
		}

		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// classifyMiss explains why the guarded update touched no row.
func classifyMiss(ctx context.Context, dbTx *sql.Tx, receiptID, txID uuid.UUID) error {
	var status string

	err := dbTx.QueryRowContext(ctx, `SELECT status FROM receipts WHERE id = $1`, receiptID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: receipt %s", reconcile.ErrNotFound, receiptID)
	}

	if err != nil {
		return fmt.Errorf("checking receipt: %w", err)
	}

	if !receipt.Status(status).Open() {
		return fmt.Errorf("%w: receipt is %s", reconcile.ErrInvalidTransition, status)
	}

	var exists bool
	if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bank_transactions WHERE id = $1)`, txID).Scan(&exists); err != nil {
		return fmt.Errorf("checking transaction: %w", err)
	}

	if !exists {
		return fmt.Errorf("%w: transaction %s", reconcile.ErrNotFound, txID)
	}

	return reconcile.ErrAlreadyReconciled
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
