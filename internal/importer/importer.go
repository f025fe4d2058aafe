package importer

import (
	"context"
	"io"

	"github.com/MrJamesThe3rd/offertory/internal/importer/bankcsv"
	"github.com/MrJamesThe3rd/offertory/internal/ledger"
)

//go:generate mockgen -source=importer.go -destination=importer_mock.go -package=importer
type Parser interface {
	Parse(r io.Reader, profile string) (*bankcsv.Statement, error)
}

type Ledger interface {
	ImportBatch(ctx context.Context, params []ledger.CreateParams) (*ledger.ImportResult, error)
	CreateBatch(ctx context.Context, params []ledger.CreateParams) ([]*ledger.Transaction, error)
}
