package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/offertory/internal/importer/bankcsv"
	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/metrics"
)

type Service struct {
	parser Parser
	ledger Ledger
}

func NewService(loc *time.Location, l Ledger) *Service {
	return &Service{parser: bankcsv.New(loc), ledger: l}
}

// Result summarizes one statement upload. When Conflicts is non-empty nothing was written and the
// operator confirms which rows to insert.
type Result struct {
	Profile   string
	Charset   string
	Imported  []*ledger.Transaction
	New       []ledger.CreateParams
	Conflicts []ledger.Conflict
	Dropped   int
	Skipped   int
}

// Import parses a statement export and adds its credits to the ledger.
func (s *Service) Import(ctx context.Context, profile string, r io.Reader) (*Result, error) {
	st, err := s.parser.Parse(r, profile)
	if err != nil {
		return nil, fmt.Errorf("parse statement: %w", err)
	}

	metrics.AddImportRows(metrics.RowsDropped, st.Dropped())

	res := &Result{
		Profile: st.Profile,
		Charset: st.Charset,
		Dropped: st.Dropped(),
		Skipped: st.Skipped,
	}

	batch, err := s.ledger.ImportBatch(ctx, st.Rows)
	if err != nil {
		return nil, fmt.Errorf("import batch: %w", err)
	}

	res.Imported = batch.Imported
	res.New = batch.New
	res.Conflicts = batch.Conflicts

	metrics.AddImportRows(metrics.RowsImported, len(batch.Imported))
	metrics.AddImportRows(metrics.RowsConflict, len(batch.Conflicts))

	slog.Info("statement imported",
		"profile", st.Profile,
		"charset", st.Charset,
		"imported", len(batch.Imported),
		"conflicts", len(batch.Conflicts),
		"dropped", st.Dropped(),
		"skipped", st.Skipped,
	)

	return res, nil
}

// Confirm inserts rows the operator accepted after a conflicting import.
func (s *Service) Confirm(ctx context.Context, params []ledger.CreateParams) ([]*ledger.Transaction, error) {
	txs, err := s.ledger.CreateBatch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	metrics.AddImportRows(metrics.RowsImported, len(txs))

	return txs, nil
}
