package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/msgscope/internal/apiclient"
	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/internal/msgscope"
	"github.com/hay-kot/msgscope/internal/router"
	"github.com/hay-kot/msgscope/internal/styles"
)

// maxColumnWidth caps a result column so wide hex dumps do not push the
// other columns off screen.
const maxColumnWidth = 48

// Querier runs queries and owns the SIM history. *msgscope.Service
// satisfies it.
type Querier interface {
	Run(ctx context.Context, route router.Route, p query.Params) (msgscope.Result, error)
	History(ctx context.Context) ([]string, error)
	SetLastView(ctx context.Context, path string) error
}

// Options configures the TUI behavior.
type Options struct {
	Route         router.Route  // View shown first
	Lookback      time.Duration // Window used when since is empty
	ToastDuration time.Duration // How long a toast stays visible
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	svc  Querier
	opts Options
	keys keyMap
	now  func() time.Time

	form   QueryForm
	values query.Form // inputs carried across views
	recall recall
	focus  focusArea

	table   table.Model
	result  *msgscope.Result
	spinner spinner.Model
	help    help.Model
	toasts  toasts

	loading  bool
	seq      int // id of the query in flight; older results are dropped
	status   string
	width    int
	height   int
	quitting bool
}

// historyLoadedMsg is sent when the SIM history is loaded.
type historyLoadedMsg struct {
	entries []string
	err     error
}

// queryDoneMsg is sent when a query finishes, with the history as it stands
// afterwards.
type queryDoneMsg struct {
	seq     int
	result  msgscope.Result
	err     error
	history []string
}

// viewSavedMsg is sent when the active view has been persisted.
type viewSavedMsg struct {
	err error
}

// New creates a new TUI model.
func New(svc Querier, opts Options) Model {
	if opts.Route.Path == "" {
		opts.Route = router.Default()
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = 3 * time.Second
	}

	t := table.New(
		table.WithFocused(false),
		table.WithStyles(tableStyles()),
		table.WithHeight(10),
	)

	h := help.New()
	h.Styles = helpStyles()
	h.ShortSeparator = " • "

	return Model{
		svc:     svc,
		opts:    opts,
		keys:    defaultKeyMap(),
		now:     time.Now,
		form:    NewQueryForm(opts.Route, query.Form{}),
		recall:  newRecall(nil),
		focus:   focusForm,
		table:   t,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		help:    h,
		toasts:  newToasts(opts.ToastDuration),
	}
}

// Route returns the active view.
func (m Model) Route() router.Route {
	return m.form.Route()
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadHistory(),
		m.saveView(m.form.Route().Path),
		m.form.Focus(),
	)
}

func (m Model) loadHistory() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		entries, err := svc.History(context.Background())
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (m Model) saveView(path string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return viewSavedMsg{err: svc.SetLastView(context.Background(), path)}
	}
}

func (m Model) runQuery(seq int, route router.Route, p query.Params) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		res, err := svc.Run(ctx, route, p)
		entries, _ := svc.History(ctx)
		return queryDoneMsg{seq: seq, result: res, err: err, history: entries}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case NotifyMsg:
		return m, m.toasts.Push(toastError, msg.Text)

	case toastExpiredMsg:
		m.toasts.Remove(msg.id)
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			return m, m.toasts.Push(toastError, fmt.Sprintf("load history: %v", msg.err))
		}
		m.recall.Reset(msg.entries)
		return m, nil

	case viewSavedMsg:
		if msg.err != nil {
			return m, m.toasts.Push(toastError, fmt.Sprintf("save view: %v", msg.err))
		}
		return m, nil

	case queryDoneMsg:
		return m.handleQueryDone(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m Model) handleQueryDone(msg queryDoneMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.seq {
		return m, nil
	}

	m.loading = false
	if msg.history != nil {
		m.recall.Reset(msg.history)
	}

	if msg.err != nil {
		m.status = "query failed"
		// API failures already reached the user through the client's notifier.
		if isAPIError(msg.err) {
			return m, nil
		}
		return m, m.toasts.Push(toastError, msg.err.Error())
	}

	m.setResult(msg.result)
	m.status = fmt.Sprintf("%d rows in %s", msg.result.Len(), msg.result.Elapsed.Round(time.Millisecond))
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextView):
		return m.switchView(router.Next(m.form.Route().Path))
	case key.Matches(msg, m.keys.PrevView):
		return m.switchView(router.Prev(m.form.Route().Path))
	case key.Matches(msg, m.keys.Focus):
		m.focus = m.focus.toggle()
		if m.focus == focusForm {
			m.table.Blur()
			return m, m.form.Focus()
		}
		m.form.Blur()
		m.table.Focus()
		return m, nil
	}

	if m.focus == focusResults {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	onSim := m.form.Focused() == fieldSim

	switch {
	case key.Matches(msg, m.keys.NextField):
		m.form.NextField()
		m.recall.Leave()
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.form.PrevField()
		m.recall.Leave()
		return m, nil
	case onSim && key.Matches(msg, m.keys.Older):
		m.form.SetValue(fieldSim, m.recall.Older(m.form.Value(fieldSim)))
		return m, nil
	case onSim && key.Matches(msg, m.keys.Newer):
		m.form.SetValue(fieldSim, m.recall.Newer(m.form.Value(fieldSim)))
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	if onSim {
		m.recall.Leave()
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m Model) switchView(route router.Route) (tea.Model, tea.Cmd) {
	m.values = m.form.Form(m.values)
	m.form = NewQueryForm(route, m.values)
	if m.focus == focusResults {
		m.form.Blur()
	}
	m.recall.Leave()

	// A result belongs to the view that produced it.
	m.result = nil
	m.table.SetRows(nil)
	m.loading = false
	m.seq++
	m.status = ""
	m.resize()

	return m, m.saveView(route.Path)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	m.values = m.form.Form(m.values)
	route := m.form.Route()

	p, err := m.values.Parse(m.now(), m.opts.Lookback)
	if err != nil {
		m.status = "invalid input"
		return m, m.toasts.Push(toastError, err.Error())
	}

	m.seq++
	m.loading = true
	m.status = fmt.Sprintf("querying %s for %s", route.Title, p.SimNo)
	m.recall.Leave()

	return m, tea.Batch(m.runQuery(m.seq, route, p), m.spinner.Tick)
}

func (m *Model) setResult(res msgscope.Result) {
	m.result = &res

	t := msgscope.Tabulate(res)
	rows := make([]table.Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = table.Row(r)
	}

	// Rows are cleared first so the table never renders rows wider than the
	// new column set.
	m.table.SetRows(nil)
	m.table.SetColumns(tableColumns(t))
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

// tableColumns sizes each column to its widest cell.
func tableColumns(t msgscope.Table) []table.Column {
	cols := make([]table.Column, len(t.Columns))
	for i, title := range t.Columns {
		w := lipgloss.Width(title)
		for _, row := range t.Rows {
			if i < len(row) {
				w = max(w, lipgloss.Width(row[i]))
			}
		}
		cols[i] = table.Column{Title: title, Width: min(w, maxColumnWidth)}
	}
	return cols
}

// resize fits the results table between the form and the footer.
func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}

	// banner (2) + tabs (2) + form + blank (1) + results border (2) +
	// status (1) + help (1)
	used := 9 + len(m.form.Keys())
	h := max(m.height-used, 3)

	m.table.SetWidth(max(m.width-2, 10))
	m.table.SetHeight(h)
	m.help.Width = m.width
}

func isAPIError(err error) bool {
	var appErr *apiclient.ApplicationError
	var tErr *apiclient.TransportError
	return errors.As(err, &appErr) || errors.As(err, &tErr)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		bannerStyle.Render(styles.Banner),
		m.renderTabs(),
		m.form.View(),
		"",
		m.renderResults(),
		m.renderStatus(),
	}

	if m.toasts.Len() > 0 {
		sections = append(sections, m.toasts.View(m.width))
	}

	sections = append(sections, " "+m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTabs() string {
	active := m.form.Route().Path
	routes := router.Routes()

	tabs := make([]string, 0, len(routes))
	for _, r := range routes {
		if r.Path == active {
			tabs = append(tabs, styles.ActiveTabStyle.Render(r.Title))
		} else {
			tabs = append(tabs, styles.TabStyle.Render(r.Title))
		}
	}
	return tabBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m Model) renderResults() string {
	var body string
	switch {
	case m.result == nil:
		body = emptyStyle.Render("Enter a SIM number and press enter to run the query.")
	case len(m.table.Rows()) == 0:
		body = emptyStyle.Render("No messages in this window.")
	default:
		body = m.table.View()
	}

	style := resultsStyle
	if m.focus == focusResults {
		style = focusedResultsStyle
	}
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.Render(body)
}

func (m Model) renderStatus() string {
	status := m.status
	if m.loading {
		status = m.spinner.View() + " " + status
	}
	if status == "" {
		status = m.form.Route().Path
	}
	return statusStyle.Render(strings.TrimSpace(status))
}
