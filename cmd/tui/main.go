package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/offertory/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/offertory/internal/config"
	"github.com/MrJamesThe3rd/offertory/internal/database"
	"github.com/MrJamesThe3rd/offertory/internal/importer"
	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/offertory/internal/ledger/store"
	"github.com/MrJamesThe3rd/offertory/internal/matching"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	receiptStore "github.com/MrJamesThe3rd/offertory/internal/receipt/store"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
	reconcileStore "github.com/MrJamesThe3rd/offertory/internal/reconcile/store"
)

type model struct {
	engine         *reconcile.Engine
	receiptService *receipt.Service
	importService  *importer.Service
	appName        string
	staff          string

	currentView View

	importView view.ImportModel
	reviewView view.ReviewModel
	ledgerView view.LedgerModel
}

type View int

const (
	ViewMenu   View = 0
	ViewReview View = 1
	ViewLedger View = 2
	ViewImport View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.DatabaseOptions())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	staff := cfg.App.Operator
	if staff == "" {
		staff = os.Getenv("USER")
	}

	ledgerSvc := ledger.NewService(ledgerStore.New(db, loc))
	receiptSvc := receipt.NewService(receiptStore.New(db))
	engine := reconcile.NewEngine(ledgerSvc, receiptSvc, reconcileStore.New(db), matching.NewMatcher(loc))
	impSvc := importer.NewService(loc, ledgerSvc)

	return model{
		engine:         engine,
		receiptService: receiptSvc,
		importService:  impSvc,
		appName:        cfg.App.Name,
		staff:          staff,
		currentView:    ViewMenu,
		importView:     view.NewImportModel(impSvc),
		reviewView:     view.NewReviewModel(engine, receiptSvc, staff),
		ledgerView:     view.NewLedgerModel(engine),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewReview
				m.reviewView = view.NewReviewModel(m.engine, m.receiptService, m.staff)

				return m, m.reviewView.Init()
			case "2":
				m.currentView = ViewLedger
				m.ledgerView = view.NewLedgerModel(m.engine)

				return m, m.ledgerView.Init()
			case "3":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.importService)

				return m, m.importView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewReview:
		var newModel tea.Model
		newModel, cmd = m.reviewView.Update(msg)
		m.reviewView = newModel.(view.ReviewModel)
	case ViewLedger:
		var newModel tea.Model
		newModel, cmd = m.ledgerView.Update(msg)
		m.ledgerView = newModel.(view.LedgerModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + " reconciliation\n\n" +
				"1. Review Pending Receipts\n" +
				"2. Bank Ledger\n" +
				"3. Import Bank Statement\n\n" +
				"q. Quit\n\n" +
				lipgloss.NewStyle().Faint(true).Render("signed in as "+m.staff),
		)
	case ViewReview:
		return m.reviewView.View()
	case ViewLedger:
		return m.ledgerView.View()
	case ViewImport:
		return m.importView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
