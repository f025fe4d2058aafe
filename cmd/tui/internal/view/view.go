package view

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/offertory/internal/importer"
	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// CommonModel is embedded by all views.
type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// Reconciler is the part of the reconciliation engine the workbench drives.
type Reconciler interface {
	ListPending(ctx context.Context, activityID uuid.UUID) ([]reconcile.PendingItem, error)
	ManualSearch(ctx context.Context, receiptID uuid.UUID, query string) ([]*ledger.Transaction, error)
	Verify(ctx context.Context, params reconcile.VerifyParams) (*reconcile.VerifiedItem, error)
	Ledger(ctx context.Context) ([]*ledger.Transaction, error)
}

type Receipts interface {
	ListActivities(ctx context.Context) ([]*receipt.Activity, error)
	Reject(ctx context.Context, id uuid.UUID, note, rejectedBy string) (*receipt.Receipt, error)
}

type Importer interface {
	Import(ctx context.Context, profile string, r io.Reader) (*importer.Result, error)
	Confirm(ctx context.Context, params []ledger.CreateParams) ([]*ledger.Transaction, error)
}
