// Package panel is the interactive terminal history panel: a date range
// slider, a live search box and a date-grouped visit list that loads older
// batches as it is scrolled.
package panel

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/runnerr0/histfeed/internal/history"
	"github.com/runnerr0/histfeed/internal/logging"
)

// rowPixels is the height one terminal line stands for when comparing
// against scroll thresholds configured in pixels.
const rowPixels = 20

// Options tunes input timing.
type Options struct {
	SelectionDebounce time.Duration
	SearchDebounce    time.Duration
	ScrollThrottle    time.Duration
	ScrollThreshold   int // pixels
	Logger            zerolog.Logger
}

// DefaultOptions returns the standard timings.
func DefaultOptions() Options {
	return Options{
		SelectionDebounce: 300 * time.Millisecond,
		SearchDebounce:    300 * time.Millisecond,
		ScrollThrottle:    history.DefaultScrollThrottle,
		ScrollThreshold:   history.DefaultScrollThreshold,
		Logger:            zerolog.Nop(),
	}
}

type focus int

const (
	focusList focus = iota
	focusSearch
	focusSlider
)

type rowKind int

const (
	rowHeader rowKind = iota
	rowVisit
)

type row struct {
	kind  rowKind
	label string
	visit history.Visit
}

// Messages
type openMsg struct{}

type batchMsg struct {
	result history.BatchResult
}

type selectionSettledMsg struct {
	token uint64
}

type scrollCheckMsg struct{}

type searchSettledMsg struct {
	token uint64
}

type removedMsg struct {
	url string
	n   int64
	err error
}

// Model is the bubbletea model for the panel.
type Model struct {
	ctx   context.Context
	store history.Store
	feed  *history.Feed
	gate  *history.ScrollGate
	opts  Options
	log   zerolog.Logger

	keys    keyMap
	help    help.Model
	search  textinput.Model
	spinner spinner.Model

	focus     focus
	handle    history.Handle
	selection history.Debouncer
	query     history.Debouncer

	view   history.View
	rows   []row
	cursor int
	offset int
	width  int
	height int

	opened bool
	status string
}

// New builds a panel over feed. store must be the feed's store; batch
// fetches run against it off the update loop.
func New(ctx context.Context, store history.Store, feed *history.Feed, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Search loaded history"
	ti.Prompt = "/ "
	ti.CharLimit = 200
	ti.Cursor.SetMode(cursor.CursorStatic)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return Model{
		ctx:     ctx,
		store:   store,
		feed:    feed,
		gate:    history.NewScrollGate(feed, opts.ScrollThrottle, opts.ScrollThreshold),
		opts:    opts,
		log:     opts.Logger.With().Str("component", "panel").Logger(),
		keys:    newKeyMap(),
		help:    help.New(),
		search:  ti,
		spinner: sp,
		handle:  history.HandleMin,
	}
}

// Feed returns the feed the panel renders.
func (m Model) Feed() *history.Feed {
	return m.feed
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return openMsg{} },
		m.spinner.Tick,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.search.Width = max(10, msg.Width-4)
		m.help.Width = msg.Width
		m.ensureVisible()
		cmd := m.fill()
		return m, cmd

	case openMsg:
		return m.open()

	case batchMsg:
		if !m.feed.Apply(msg.result) {
			return m, nil
		}
		m.rebuild()
		cmd := m.fill()
		return m, cmd

	case selectionSettledMsg:
		if !m.selection.Settled(msg.token) {
			return m, nil
		}
		before := m.feed.Active()
		req, ok := m.feed.CommitSelection()
		if !ok && m.feed.Active() == before {
			return m, nil
		}
		// The window was reopened even when it had nothing to fetch.
		m.cursor, m.offset = 0, 0
		m.rebuild()
		if !ok {
			return m, nil
		}
		return m, m.fetch(req)

	case scrollCheckMsg:
		if _, pending := m.gate.Deferred(); !pending {
			return m, nil
		}
		return m.observeScroll()

	case searchSettledMsg:
		if !m.query.Settled(msg.token) {
			return m, nil
		}
		m.feed.SetQuery(m.search.Value())
		m.cursor, m.offset = 0, 0
		m.rebuild()
		cmd := m.fill()
		return m, cmd

	case removedMsg:
		if msg.err != nil {
			m.status = "Delete failed: " + msg.err.Error()
			m.log.Warn().Err(msg.err).Str("url", logging.RedactURL(msg.url)).Msg("remove failed")
			return m, nil
		}
		m.feed.Forget(msg.url)
		m.status = fmt.Sprintf("Deleted %d visit(s)", msg.n)
		m.log.Info().Int64("visits", msg.n).Str("url", logging.RedactURL(msg.url)).Msg("visits removed")
		m.rebuild()
		cmd := m.fill()
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.focus == focusSearch {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) open() (tea.Model, tea.Cmd) {
	req, ok, err := m.feed.Open(m.ctx)
	if err != nil {
		m.rebuild()
		return m, nil
	}
	m.opened = true
	m.rebuild()
	if !ok {
		return m, nil
	}
	return m, m.fetch(req)
}

// fetch runs req off the update loop; the result comes back as a batchMsg.
func (m Model) fetch(req history.BatchRequest) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return batchMsg{result: req.Do(ctx, store)}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	if m.focus == focusSearch {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Focus):
		return m.cycleFocus()
	case key.Matches(msg, m.keys.Search):
		return m.setFocus(focusSearch)
	case key.Matches(msg, m.keys.Retry):
		return m.retry()
	}

	if m.focus == focusSlider {
		return m.handleSliderKey(msg)
	}

	page := m.listHeight()
	switch {
	case key.Matches(msg, m.keys.Up):
		return m.move(-1)
	case key.Matches(msg, m.keys.Down):
		return m.move(1)
	case key.Matches(msg, m.keys.PageUp):
		return m.move(-page)
	case key.Matches(msg, m.keys.PageDown):
		return m.move(page)
	case key.Matches(msg, m.keys.Top):
		return m.move(-len(m.rows))
	case key.Matches(msg, m.keys.Bottom):
		return m.move(len(m.rows))
	case key.Matches(msg, m.keys.Delete):
		return m.remove()
	case key.Matches(msg, m.keys.Clear):
		if m.search.Value() == "" {
			return m, nil
		}
		m.search.SetValue("")
		cmd := m.settleSearch(0)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Focus):
		return m.cycleFocus()
	case key.Matches(msg, m.keys.Submit):
		m, _ = m.withFocus(focusList)
		cmd := m.settleSearch(0)
		return m, cmd
	case key.Matches(msg, m.keys.Clear):
		m.search.SetValue("")
		m, _ = m.withFocus(focusList)
		cmd := m.settleSearch(0)
		return m, cmd
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}
	settle := m.settleSearch(m.opts.SearchDebounce)
	return m, tea.Batch(cmd, settle)
}

// settleSearch applies the query once no keystroke arrives for d.
func (m *Model) settleSearch(d time.Duration) tea.Cmd {
	token := m.query.Touch()
	if d <= 0 {
		return func() tea.Msg { return searchSettledMsg{token: token} }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return searchSettledMsg{token: token} })
}

func (m Model) handleSliderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Older):
		return m.nudge(1)
	case key.Matches(msg, m.keys.Newer):
		return m.nudge(-1)
	case key.Matches(msg, m.keys.OlderWeek):
		return m.nudge(7)
	case key.Matches(msg, m.keys.NewerWeek):
		return m.nudge(-7)
	case key.Matches(msg, m.keys.Handle):
		if m.handle == history.HandleMin {
			m.handle = history.HandleMax
		} else {
			m.handle = history.HandleMin
		}
		return m, nil
	case key.Matches(msg, m.keys.Reset):
		m.feed.ResetSelection()
		cmd := m.settleSelection()
		return m, cmd
	}
	return m, nil
}

// nudge moves the focused handle by days. The slider redraws at once; the
// feed reloads after the selection debounce.
func (m Model) nudge(days int) (tea.Model, tea.Cmd) {
	lo, hi := m.feed.Handles()
	current := lo
	if m.handle == history.HandleMax {
		current = hi
	}
	if !m.feed.SetHandle(m.handle, current+days) {
		return m, nil
	}
	cmd := m.settleSelection()
	return m, cmd
}

func (m *Model) settleSelection() tea.Cmd {
	token := m.selection.Touch()
	return tea.Tick(m.opts.SelectionDebounce, func(time.Time) tea.Msg {
		return selectionSettledMsg{token: token}
	})
}

func (m Model) cycleFocus() (tea.Model, tea.Cmd) {
	return m.setFocus((m.focus + 1) % 3)
}

func (m Model) setFocus(f focus) (tea.Model, tea.Cmd) {
	next, cmd := m.withFocus(f)
	return next, cmd
}

func (m Model) withFocus(f focus) (Model, tea.Cmd) {
	m.focus = f
	if f == focusSearch {
		return m, m.search.Focus()
	}
	m.search.Blur()
	return m, nil
}

func (m Model) retry() (tea.Model, tea.Cmd) {
	if !m.opened {
		return m.open()
	}
	req, ok := m.feed.Retry()
	if !ok {
		return m, nil
	}
	m.status = ""
	m.rebuild()
	return m, m.fetch(req)
}

func (m Model) remove() (tea.Model, tea.Cmd) {
	if m.cursor >= len(m.rows) || m.rows[m.cursor].kind != rowVisit {
		return m, nil
	}
	u := m.rows[m.cursor].visit.URL
	ctx, store := m.ctx, m.store
	return m, func() tea.Msg {
		n, err := store.Remove(ctx, u)
		return removedMsg{url: u, n: n, err: err}
	}
}

func (m Model) move(delta int) (tea.Model, tea.Cmd) {
	if len(m.rows) == 0 {
		return m, nil
	}
	m.cursor = clamp(m.cursor+delta, 0, len(m.rows)-1)
	m.ensureVisible()

	next, cmd := m.observeScroll()
	if cmd != nil {
		return next, cmd
	}
	if wait, pending := m.gate.Deferred(); pending {
		return next, tea.Tick(wait, func(time.Time) tea.Msg { return scrollCheckMsg{} })
	}
	return next, nil
}

func (m Model) observeScroll() (tea.Model, tea.Cmd) {
	req, ok := m.gate.Observe(m.metrics())
	if !ok {
		return m, nil
	}
	m.rebuild()
	return m, m.fetch(req)
}

// fill requests the next batch while the rendered list does not reach
// past the viewport by the scroll threshold. It bypasses the scroll
// throttle: nothing is being scrolled.
func (m *Model) fill() tea.Cmd {
	if !m.opened || m.feed.State() != history.StateIdle {
		return nil
	}
	if m.metrics().Remaining() >= m.threshold() {
		return nil
	}
	req, ok := m.feed.RequestMore()
	if !ok {
		m.rebuild()
		return nil
	}
	m.rebuild()
	return m.fetch(req)
}

func (m Model) threshold() int {
	if m.opts.ScrollThreshold > 0 {
		return m.opts.ScrollThreshold
	}
	return history.DefaultScrollThreshold
}

func (m Model) metrics() history.Metrics {
	return history.Metrics{
		ScrollTop:    m.offset * rowPixels,
		ClientHeight: m.listHeight() * rowPixels,
		ScrollHeight: len(m.rows) * rowPixels,
	}
}

// rebuild regroups the feed into display rows.
func (m *Model) rebuild() {
	m.view = m.feed.View()
	m.rows = nil
	for _, s := range m.view.Sections {
		m.rows = append(m.rows, row{kind: rowHeader, label: s.Label})
		for _, v := range s.Records {
			m.rows = append(m.rows, row{kind: rowVisit, visit: v})
		}
	}
	m.cursor = clamp(m.cursor, 0, max(0, len(m.rows)-1))
	m.ensureVisible()
}

func (m *Model) ensureVisible() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	m.offset = clamp(m.offset, 0, max(0, len(m.rows)-h))
}

// chromeLines is everything but the list: title, slider, dates, search,
// status and help.
const chromeLines = 7

func (m Model) listHeight() int {
	if m.height == 0 {
		return 20
	}
	return max(3, m.height-chromeLines)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
