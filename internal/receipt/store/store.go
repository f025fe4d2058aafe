package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/offertory/internal/receipt"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// openStatusList renders the open statuses as a SQL list literal for guarded updates.
func openStatusList() string {
	quoted := make([]string, 0, len(receipt.OpenStatuses()))
	for _, s := range receipt.OpenStatuses() {
		quoted = append(quoted, "'"+string(s)+"'")
	}

	return "(" + strings.Join(quoted, ", ") + ")"
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, activity_id, claimed_amount, extracted, receipt_path, status,
// linked_transaction_id, verification_note, verified_at, verified_by, created_at, updated_at
func scanReceipt(s scanner) (*receipt.Receipt, error) {
	var r receipt.Receipt

	var claimed decimal.NullDecimal

	var extracted []byte

	var status string

	var linked *uuid.UUID

	var verifiedAt sql.NullTime

	if err := s.Scan(
		&r.ID, &r.ActivityID, &claimed, &extracted, &r.ReceiptPath, &status,
		&linked, &r.VerificationNote, &verifiedAt, &r.VerifiedBy, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if claimed.Valid {
		r.ClaimedAmount = &claimed.Decimal
	}

	if len(extracted) > 0 {
		if err := json.Unmarshal(extracted, &r.Extracted); err != nil {
			return nil, fmt.Errorf("decoding extracted fields: %w", err)
		}
	}

	r.Status = receipt.Status(status)
	r.LinkedTransactionID = linked

	if verifiedAt.Valid {
		r.VerifiedAt = &verifiedAt.Time
	}

	return &r, nil
}

const selectReceiptColumns = `
	r.id, r.activity_id, r.claimed_amount, r.extracted, r.receipt_path, r.status,
	r.linked_transaction_id, r.verification_note, r.verified_at, r.verified_by, r.created_at, r.updated_at
`

func (s *Store) CreateActivity(ctx context.Context, a *receipt.Activity) error {
	query := `
		INSERT INTO activities (name, created_at)
		VALUES ($1, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, a.Name).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("creating activity: %w", err)
	}

	return nil
}

func (s *Store) GetActivity(ctx context.Context, id uuid.UUID) (*receipt.Activity, error) {
	query := `SELECT id, name, created_at FROM activities WHERE id = $1`

	var a receipt.Activity

	if err := s.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, receipt.ErrActivityNotFound
		}

		return nil, fmt.Errorf("getting activity: %w", err)
	}

	return &a, nil
}

func (s *Store) ListActivities(ctx context.Context) ([]*receipt.Activity, error) {
	query := `SELECT id, name, created_at FROM activities ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var activities []*receipt.Activity

	for rows.Next() {
		var a receipt.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}

		activities = append(activities, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activities: %w", err)
	}

	return activities, nil
}

func (s *Store) CreateReceipt(ctx context.Context, r *receipt.Receipt) error {
	extracted, err := json.Marshal(r.Extracted)
	if err != nil {
		return fmt.Errorf("encoding extracted fields: %w", err)
	}

	query := `
		INSERT INTO receipts (activity_id, claimed_amount, extracted, receipt_path, status, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	var claimed decimal.NullDecimal
	if r.ClaimedAmount != nil {
		claimed = decimal.NewNullDecimal(*r.ClaimedAmount)
	}

	err = s.db.QueryRowContext(ctx, query,
		r.ActivityID,
		claimed,
		string(extracted),
		r.ReceiptPath,
		r.Status,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating receipt: %w", err)
	}

	return nil
}

func (s *Store) GetReceipt(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error) {
	query := `SELECT ` + selectReceiptColumns + ` FROM receipts r WHERE r.id = $1`

	r, err := scanReceipt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, receipt.ErrNotFound
		}

		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	return r, nil
}

func (s *Store) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]*receipt.Receipt, error) {
	query := `SELECT ` + selectReceiptColumns + `
		FROM receipts r
		WHERE r.activity_id = $1
		ORDER BY r.created_at ASC, r.id ASC`

	rows, err := s.db.QueryContext(ctx, query, activityID)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*receipt.Receipt

	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning receipt: %w", err)
		}

		receipts = append(receipts, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating receipts: %w", err)
	}

	return receipts, nil
}

// RejectReceipt writes the rejection and its audit event in one transaction.
func (s *Store) RejectReceipt(ctx context.Context, id uuid.UUID, note, rejectedBy string, at time.Time) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	var fromStatus string

	query := `
		UPDATE receipts AS r
		SET status = 'rejected', verification_note = $2, verified_by = $3, updated_at = $4
		FROM (SELECT id, status FROM receipts WHERE id = $1 FOR UPDATE) AS prev
		WHERE r.id = prev.id AND prev.status IN ` + openStatusList() + `
		RETURNING prev.status
	`

	err = dbTx.QueryRowContext(ctx, query, id, note, rejectedBy, at).Scan(&fromStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return classifyMiss(ctx, dbTx, id)
	}

	if err != nil {
		return fmt.Errorf("rejecting receipt: %w", err)
	}

	event := `
		INSERT INTO verification_events (receipt_id, action, from_status, to_status, note, performed_by, created_at)
		VALUES ($1, 'reject', $2, 'rejected', $3, $4, $5)
	`
	if _, err := dbTx.ExecContext(ctx, event, id, fromStatus, note, rejectedBy, at); err != nil {
		return fmt.Errorf("recording rejection event: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func classifyMiss(ctx context.Context, dbTx *sql.Tx, id uuid.UUID) error {
	var exists bool
	if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM receipts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking receipt: %w", err)
	}

	if !exists {
		return receipt.ErrNotFound
	}

	return receipt.ErrInvalidTransition
}
