package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
)

type reviewState int

const (
	reviewStatePickActivity reviewState = iota
	reviewStateQueue
	reviewStateSearch
	reviewStateNote
)

type noteAction int

const (
	noteVerify noteAction = iota
	noteReject
)

// ReviewModel walks the pending receipts of one activity, best matches first.
type ReviewModel struct {
	CommonModel
	engine   Reconciler
	receipts Receipts
	staff    string

	state      reviewState
	activities list.Model
	activity   *receipt.Activity

	queue []reconcile.PendingItem
	pos   int

	// options are the transactions offered for the current receipt: its suggestions,
	// or manual search results while searched is set.
	options  []*ledger.Transaction
	cursor   int
	searched bool

	searchInput textinput.Model

	form   *huh.Form
	action noteAction

	loading bool
	status  string
	err     error
}

func NewReviewModel(engine Reconciler, receipts Receipts, staff string) ReviewModel {
	si := textinput.New()
	si.Placeholder = "description, amount or reference"
	si.Prompt = "/ "
	si.Width = 50

	l := list.New(nil, list.NewDefaultDelegate(), 60, 20)
	l.Title = "Select activity"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	return ReviewModel{
		engine:      engine,
		receipts:    receipts,
		staff:       staff,
		activities:  l,
		searchInput: si,
		loading:     true,
	}
}

func (m ReviewModel) Title() string { return "Review Receipts" }

func (m ReviewModel) ShortHelp() string {
	switch m.state {
	case reviewStateQueue:
		return "Up/Down: candidate | Enter: verify | /: search | x: reject | n/p: next/prev receipt | r: reload | Esc: back"
	case reviewStateSearch:
		return "Enter: search | Esc: back to suggestions"
	case reviewStateNote:
		return "Enter: submit | Esc: cancel"
	}

	return "Enter: select | Esc: back"
}

func (m ReviewModel) Init() tea.Cmd {
	return m.loadActivitiesCmd()
}

// Pending returns the receipts still waiting in the loaded queue.
func (m ReviewModel) Pending() []reconcile.PendingItem {
	return m.queue
}

func (m ReviewModel) current() *reconcile.PendingItem {
	if m.pos < 0 || m.pos >= len(m.queue) {
		return nil
	}

	return &m.queue[m.pos]
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activitiesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		items := make([]list.Item, len(msg.activities))
		for i, a := range msg.activities {
			items[i] = activityItem{activity: a}
		}

		return m, m.activities.SetItems(items)

	case pendingMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.queue = msg.items
		m.state = reviewStateQueue
		m.setPos(0)

		if len(m.queue) == 0 {
			m.status = "No receipts pending for this activity."
		}

		return m, nil

	case searchMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Search failed: %v", msg.err)
			return m, nil
		}

		m.options = msg.txs
		m.cursor = 0
		m.searched = true
		m.state = reviewStateQueue
		m.status = fmt.Sprintf("%d transactions match %q", len(msg.txs), msg.query)

		return m, nil

	case verifyMsg:
		return m.handleVerify(msg)

	case rejectMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Reject failed: %v", msg.err)
			return m, nil
		}

		m.removeCurrent()
		m.status = "Receipt rejected."

		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		switch m.state {
		case reviewStatePickActivity:
			return m.updatePickActivity(msg)
		case reviewStateQueue:
			return m.updateQueue(msg)
		case reviewStateSearch:
			return m.updateSearch(msg)
		}
	}

	if m.state == reviewStateNote {
		return m.updateNote(msg)
	}

	if m.state == reviewStateSearch {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)

		return m, cmd
	}

	if m.state == reviewStatePickActivity {
		var cmd tea.Cmd
		m.activities, cmd = m.activities.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ReviewModel) handleVerify(msg verifyMsg) (tea.Model, tea.Cmd) {
	m.loading = false

	var claimed *reconcile.AlreadyReconciledError

	switch {
	case msg.err == nil:
		m.removeCurrent()
		m.status = successStyle.Render(fmt.Sprintf("Verified against %s (%s).",
			msg.item.Transaction.Description, FormatAmount(msg.item.Transaction.Amount)))
	case errors.As(msg.err, &claimed):
		m.status = warnStyle.Render("That transaction was just claimed by another receipt. Suggestions refreshed.")
		if cur := m.current(); cur != nil && claimed.Refreshed != nil {
			refreshed := *claimed.Refreshed
			refreshed.Receipt = cur.Receipt
			m.queue[m.pos] = refreshed
		}

		m.setPos(m.pos)
	case errors.Is(msg.err, reconcile.ErrInvalidTransition):
		m.removeCurrent()
		m.status = errorStyle.Render("Receipt is no longer open; removed from the queue.")
	default:
		m.status = errorStyle.Render(fmt.Sprintf("Verify failed: %v", msg.err))
	}

	return m, nil
}

func (m ReviewModel) updatePickActivity(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.activities.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.activities, cmd = m.activities.Update(msg)

		return m, cmd
	}

	switch msg.Type {
	case tea.KeyEsc:
		return m, Back
	case tea.KeyEnter:
		item, ok := m.activities.SelectedItem().(activityItem)
		if !ok {
			return m, nil
		}

		m.activity = item.activity
		m.loading = true

		return m, m.loadPendingCmd()
	}

	var cmd tea.Cmd
	m.activities, cmd = m.activities.Update(msg)

	return m, cmd
}

func (m ReviewModel) updateQueue(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.searched {
			m.setPos(m.pos)
			m.status = ""

			return m, nil
		}

		m.state = reviewStatePickActivity
		m.queue = nil
		m.status = ""

		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "n", "right":
		m.setPos(m.pos + 1)
	case "p", "left":
		m.setPos(m.pos - 1)
	case "r":
		m.loading = true
		return m, m.loadPendingCmd()
	case "/":
		if m.current() == nil {
			return m, nil
		}

		m.state = reviewStateSearch
		m.searchInput.SetValue("")

		return m, m.searchInput.Focus()
	case "enter":
		if m.current() == nil || m.cursor >= len(m.options) {
			return m, nil
		}

		return m.openNote(noteVerify)
	case "x":
		if m.current() == nil {
			return m, nil
		}

		return m.openNote(noteReject)
	}

	return m, nil
}

func (m ReviewModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchInput.Blur()
		m.state = reviewStateQueue

		return m, nil
	case tea.KeyEnter:
		m.searchInput.Blur()
		m.loading = true

		return m, m.searchCmd(m.searchInput.Value())
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	return m, cmd
}

func (m ReviewModel) openNote(action noteAction) (tea.Model, tea.Cmd) {
	m.action = action

	title := "Verification note"
	if action == noteReject {
		title = "Rejection reason"
	}

	input := huh.NewInput().
		Key("note").
		Title(title)

	if action == noteReject {
		input = input.Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("a reason is required to reject")
			}

			return nil
		})
	}

	m.form = huh.NewForm(huh.NewGroup(input)).WithWidth(60).WithShowHelp(false)
	m.state = reviewStateNote

	return m, m.form.Init()
}

func (m ReviewModel) updateNote(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		m.state = reviewStateQueue

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	note := strings.TrimSpace(m.form.GetString("note"))

	m.form = nil
	m.state = reviewStateQueue
	m.loading = true

	if m.action == noteReject {
		return m, m.rejectCmd(note)
	}

	return m, m.verifyCmd(m.options[m.cursor], note)
}

func (m *ReviewModel) setPos(pos int) {
	if pos < 0 {
		pos = 0
	}

	if pos >= len(m.queue) {
		pos = len(m.queue) - 1
	}

	m.pos = pos
	m.cursor = 0
	m.searched = false
	m.options = nil

	if cur := m.current(); cur != nil {
		for _, c := range cur.Suggestions {
			m.options = append(m.options, c.Transaction)
		}
	}
}

func (m *ReviewModel) removeCurrent() {
	if m.current() == nil {
		return
	}

	m.queue = append(m.queue[:m.pos:m.pos], m.queue[m.pos+1:]...)
	m.setPos(m.pos)

	if len(m.queue) == 0 {
		m.status += "\n\nAll receipts for this activity are reviewed."
	}
}

func (m ReviewModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	if m.state == reviewStatePickActivity {
		if m.loading {
			return lipgloss.NewStyle().Padding(2).Render("Loading activities...")
		}

		return lipgloss.NewStyle().Padding(1).Render(m.activities.View())
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", activeStyle.Render(m.activity.Name))

	cur := m.current()
	if cur == nil {
		fmt.Fprintf(&b, "\n%s\n\n%s", m.status, faintStyle.Render("r: reload | Esc: back"))
		return lipgloss.NewStyle().Padding(1).Render(b.String())
	}

	fmt.Fprintf(&b, "Receipt %d/%d\n\n", m.pos+1, len(m.queue))
	b.WriteString(renderReceipt(cur.Receipt))

	b.WriteString("\n")

	if m.searched {
		b.WriteString("Manual search results:\n")
	} else {
		fmt.Fprintf(&b, "Suggestions: %s (%d%%)\n", cur.Tier, cur.Tier.Confidence())
	}

	if len(m.options) == 0 {
		b.WriteString(faintStyle.Render("  no candidates, press / to search the ledger") + "\n")
	}

	for i, tx := range m.options {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		line := fmt.Sprintf("%s%s  %10s  %-30s  %s", cursor, FormatDate(tx.Date), FormatAmount(tx.Amount),
			tx.Description, orDash(tx.Reference))
		if i == m.cursor {
			line = activeStyle.Render(line)
		}

		b.WriteString(line + "\n")
	}

	panel := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Render(b.String())

	footer := ""

	switch {
	case m.loading:
		footer = "Working..."
	case m.state == reviewStateSearch:
		footer = m.searchInput.View()
	case m.state == reviewStateNote && m.form != nil:
		footer = m.form.View()
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		panel,
		footer,
		m.status,
		faintStyle.Render(m.ShortHelp()),
	))
}

func renderReceipt(r *receipt.Receipt) string {
	var b strings.Builder

	amount := "-"
	if a, ok := r.Amount(); ok {
		amount = FormatAmount(a)
	}

	date := "-"
	if r.Extracted.Date != nil {
		date = FormatDate(*r.Extracted.Date)
	}

	fmt.Fprintf(&b, "Amount:    %s\n", amount)
	fmt.Fprintf(&b, "Date:      %s\n", date)
	fmt.Fprintf(&b, "Reference: %s\n", orDash(r.Extracted.Reference))
	fmt.Fprintf(&b, "Sender:    %s\n", orDash(r.Extracted.SenderName))
	fmt.Fprintf(&b, "Status:    %s\n", r.Status)

	if r.FraudRisk() {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render(fmt.Sprintf("Paid to another beneficiary: %s", orDash(r.Extracted.BeneficiaryName))))
	}

	return b.String()
}

type activityItem struct {
	activity *receipt.Activity
}

func (i activityItem) Title() string       { return i.activity.Name }
func (i activityItem) Description() string { return "created " + FormatDate(i.activity.CreatedAt) }
func (i activityItem) FilterValue() string { return i.activity.Name }

type activitiesMsg struct {
	activities []*receipt.Activity
	err        error
}

type pendingMsg struct {
	items []reconcile.PendingItem
	err   error
}

type searchMsg struct {
	query string
	txs   []*ledger.Transaction
	err   error
}

type verifyMsg struct {
	item *reconcile.VerifiedItem
	err  error
}

type rejectMsg struct {
	err error
}

func (m ReviewModel) loadActivitiesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		activities, err := m.receipts.ListActivities(ctx)

		return activitiesMsg{activities: activities, err: err}
	}
}

func (m ReviewModel) loadPendingCmd() tea.Cmd {
	id := m.activity.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		items, err := m.engine.ListPending(ctx, id)

		return pendingMsg{items: items, err: err}
	}
}

func (m ReviewModel) searchCmd(query string) tea.Cmd {
	id := m.current().Receipt.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.engine.ManualSearch(ctx, id, query)

		return searchMsg{query: query, txs: txs, err: err}
	}
}

func (m ReviewModel) verifyCmd(tx *ledger.Transaction, note string) tea.Cmd {
	params := reconcile.VerifyParams{
		ReceiptID:     m.current().Receipt.ID,
		TransactionID: tx.ID,
		Note:          note,
		VerifiedBy:    m.staff,
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		item, err := m.engine.Verify(ctx, params)

		return verifyMsg{item: item, err: err}
	}
}

func (m ReviewModel) rejectCmd(note string) tea.Cmd {
	id := m.current().Receipt.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.receipts.Reject(ctx, id, note, m.staff)

		return rejectMsg{err: err}
	}
}
