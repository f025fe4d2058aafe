package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/offertory/internal/ledger"
)

type LedgerModel struct {
	CommonModel
	engine Reconciler

	table    table.Model
	txs      []*ledger.Transaction
	onlyOpen bool

	loading bool
	err     error
}

func NewLedgerModel(engine Reconciler) LedgerModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Amount", Width: 12},
		{Title: "Description", Width: 40},
		{Title: "Reference", Width: 20},
		{Title: "Reconciled", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return LedgerModel{engine: engine, table: t, loading: true}
}

func (m LedgerModel) Title() string { return "Bank Ledger" }

func (m LedgerModel) ShortHelp() string {
	return "Esc: back | u: toggle unreconciled only | r: refresh"
}

func (m LedgerModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m LedgerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadLedgerMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.txs = msg.txs
			m.refreshTable()
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "u":
			m.onlyOpen = !m.onlyOpen
			m.refreshTable()

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m LedgerModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading ledger...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	filter := "All"
	if m.onlyOpen {
		filter = "Unreconciled"
	}

	reconciled := 0
	for _, tx := range m.txs {
		if tx.IsReconciled {
			reconciled++
		}
	}

	header := fmt.Sprintf("Filter: [u] %s | %d of %d reconciled",
		activeStyle.Render(filter), reconciled, len(m.txs))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
		faintStyle.Render(m.ShortHelp()),
	))
}

func (m *LedgerModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		if m.onlyOpen && tx.IsReconciled {
			continue
		}

		flag := ""
		if tx.IsReconciled {
			flag = "yes"
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			FormatAmount(tx.Amount),
			tx.Description,
			orDash(tx.Reference),
			flag,
		})
	}

	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

type loadLedgerMsg struct {
	txs []*ledger.Transaction
	err error
}

func (m LedgerModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.engine.Ledger(ctx)

		return loadLedgerMsg{txs: txs, err: err}
	}
}
