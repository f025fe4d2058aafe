package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/offertory/internal/ledger"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New returns a ledger store. Posted dates are calendar days and are rebuilt in loc on read.
func New(db *sql.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}

	return &Store{db: db, loc: loc}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, posted_on, amount, description, reference, is_reconciled, created_at
func (s *Store) scanTransaction(sc scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction

	var postedOn sql.NullTime

	var reference sql.NullString

	if err := sc.Scan(
		&tx.ID, &postedOn, &tx.Amount, &tx.Description, &reference, &tx.IsReconciled, &tx.CreatedAt,
	); err != nil {
		return nil, err
	}

	if postedOn.Valid {
		d := postedOn.Time
		tx.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
	}

	if reference.Valid {
		tx.Reference = &reference.String
	}

	return &tx, nil
}

const selectTransactionColumns = `
	t.id, t.posted_on, t.amount, t.description, t.reference,
	EXISTS (
		SELECT 1 FROM receipts r
		WHERE r.linked_transaction_id = t.id AND r.status = 'verified'
	) AS is_reconciled,
	t.created_at
`

const insertTransaction = `
	INSERT INTO bank_transactions (posted_on, amount, description, reference, created_at)
	VALUES ($1::date, $2, $3, $4, NOW())
	RETURNING id, created_at
`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insert(ctx context.Context, q queryRower, tx *ledger.Transaction) error {
	return q.QueryRowContext(ctx, insertTransaction,
		tx.Date.Format(time.DateOnly),
		tx.Amount,
		tx.Description,
		tx.Reference,
	).Scan(&tx.ID, &tx.CreatedAt)
}

func (s *Store) CreateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	if err := insert(ctx, s.db, tx); err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM bank_transactions t
		WHERE t.id = $1`

	tx, err := s.scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM bank_transactions t
		WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Unreconciled {
		query += ` AND NOT EXISTS (
			SELECT 1 FROM receipts r
			WHERE r.linked_transaction_id = t.id AND r.status = 'verified'
		)`
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.posted_on >= $%d::date", argIdx)

		args = append(args, filter.StartDate.Format(time.DateOnly))
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.posted_on <= $%d::date", argIdx)

		args = append(args, filter.EndDate.Format(time.DateOnly))
		argIdx++
	}

	query += " ORDER BY t.seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction

	for rows.Next() {
		tx, err := s.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func importLockKey(minDate, maxDate time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(minDate.Format(time.DateOnly)))
	h.Write([]byte{0})
	h.Write([]byte(maxDate.Format(time.DateOnly)))

	return int64(h.Sum64())
}

type importTx struct {
	store *Store
	tx    *sql.Tx
}

// BeginImport opens a transaction holding an advisory lock on the statement's date range so overlapping
// uploads serialize their duplicate checks.
func (s *Store) BeginImport(ctx context.Context, minDate, maxDate time.Time) (ledger.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(minDate, maxDate)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{store: s, tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) FindDuplicates(ctx context.Context, params []ledger.CreateParams) ([]*ledger.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	minDate := params[0].Date
	maxDate := params[0].Date
	keySet := make(map[ledger.DuplicateKey]struct{}, len(params))

	for _, p := range params {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}

		keySet[ledger.KeyOf(p.Date, p.Amount, p.Reference, p.Description)] = struct{}{}
	}

	query := `SELECT ` + selectTransactionColumns + `
		FROM bank_transactions t
		WHERE t.posted_on >= $1::date AND t.posted_on <= $2::date
		ORDER BY t.seq ASC`

	rows, err := itx.tx.QueryContext(ctx, query, minDate.Format(time.DateOnly), maxDate.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	var duplicates []*ledger.Transaction

	for rows.Next() {
		tx, err := itx.store.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		if _, found := keySet[ledger.KeyOf(tx.Date, tx.Amount, tx.Reference, tx.Description)]; !found {
			continue
		}

		duplicates = append(duplicates, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate rows: %w", err)
	}

	return duplicates, nil
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*ledger.Transaction) error {
	for _, tx := range txs {
		if err := insert(ctx, itx.tx, tx); err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}
