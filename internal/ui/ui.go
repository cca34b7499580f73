package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	btable "github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/procpulse/internal/config"
	"github.com/Dicklesworthstone/procpulse/internal/llm"
	"github.com/Dicklesworthstone/procpulse/internal/notice"
	"github.com/Dicklesworthstone/procpulse/internal/query"
	"github.com/Dicklesworthstone/procpulse/internal/source"
	"github.com/Dicklesworthstone/procpulse/internal/state"
	"github.com/Dicklesworthstone/procpulse/internal/table"
)

const defaultNoticeTTL = 5 * time.Second

type focus int

const (
	focusTable focus = iota
	focusSearch
	focusQuery
)

// Deps are the components the dashboard drives.
type Deps struct {
	Store     *state.Store
	Submitter *query.Submitter
	Notices   *notice.Center
	NoticeTTL time.Duration
	Logger    *slog.Logger
}

// Model renders the store and routes input to it.
type Model struct {
	ctx       context.Context
	ctxCancel context.CancelFunc

	store     *state.Store
	submitter *query.Submitter
	notices   *notice.Center
	noticeTTL time.Duration
	logger    *slog.Logger
	now       func() time.Time

	snap   state.Snapshot
	vs     table.State
	view   table.View
	toasts []notice.Notice
	focus  focus

	// jumping is set between g and enter; jump holds the digits typed so far.
	jumping bool
	jump    string

	llmProbed    bool
	llmAvailable bool
	submitting   bool

	search textinput.Model
	input  textinput.Model
	procs  btable.Model
	chat   viewport.Model
	spin   spinner.Model
	help   help.Model

	width  int
	height int
}

// New builds a Model. Cancelling ctx, or quitting, cancels in-flight queries.
func New(ctx context.Context, d Deps) *Model {
	ctx, cancel := context.WithCancel(ctx)
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.NoticeTTL <= 0 {
		d.NoticeTTL = defaultNoticeTTL
	}

	search := textinput.New()
	search.Prompt = "search: "
	search.Placeholder = "name, pid, status or user"
	search.CharLimit = 64

	input := textinput.New()
	input.Prompt = "ask: "
	input.Placeholder = "e.g. which process is using the most memory?"
	input.CharLimit = 500

	procs := btable.New(
		btable.WithColumns(columns(table.DefaultSort())),
		btable.WithHeight(table.PageSize+1),
		btable.WithFocused(true),
	)
	styles := btable.DefaultStyles()
	styles.Header = styles.Header.Foreground(colorAccent).Bold(true)
	styles.Selected = styles.Selected.Foreground(colorWhite).Background(colorSelect)
	procs.SetStyles(styles)

	m := &Model{
		ctx:       ctx,
		ctxCancel: cancel,
		store:     d.Store,
		submitter: d.Submitter,
		notices:   d.Notices,
		noticeTTL: d.NoticeTTL,
		logger:    d.Logger,
		now:       time.Now,
		vs:        table.DefaultState(),
		search:    search,
		input:     input,
		procs:     procs,
		chat:      viewport.New(80, 6),
		spin:      spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(labelStyle)),
		help:      help.New(),
		width:     120,
		height:    40,
	}
	m.sync()
	return m
}

// Messages
type (
	tickMsg    struct{}
	updateMsg  struct{}
	noticeMsg  notice.Notice
	probeMsg   struct{ ok bool }
	refreshMsg struct{ err error }
	replyMsg   struct {
		reply string
		err   error
	}
)

func tickCmd() tea.Cmd { return tea.Tick(time.Second/2, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) waitForUpdate() tea.Cmd {
	ch := m.store.Updates()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return updateMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForNotice() tea.Cmd {
	if m.notices == nil {
		return nil
	}
	ch := m.notices.C()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case n := <-ch:
			return noticeMsg(n)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) probe() tea.Cmd {
	sub, ctx := m.submitter, m.ctx
	return func() tea.Msg { return probeMsg{ok: sub.Probe(ctx)} }
}

func (m *Model) refresh() tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg { return refreshMsg{err: store.Refresh(ctx)} }
}

// submit sends the query box. Blank input goes through Submit as well so
// the warning is posted, but nothing is sent and no state changes.
func (m *Model) submit() tea.Cmd {
	if m.submitting {
		return nil
	}
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		_, _ = m.submitter.Submit(m.ctx, nil, text)
		return nil
	}
	m.submitting = true
	sub, ctx, procs := m.submitter, m.ctx, m.snap.Processes
	return func() tea.Msg {
		reply, err := sub.Submit(ctx, procs, text)
		return replyMsg{reply: reply, err: err}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), m.waitForNotice(), m.probe(), tickCmd(), m.spin.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case updateMsg:
		m.sync()
		return m, m.waitForUpdate()
	case noticeMsg:
		m.toasts = append(m.toasts, notice.Notice(msg))
		return m, m.waitForNotice()
	case probeMsg:
		m.llmProbed, m.llmAvailable = true, msg.ok
	case refreshMsg:
		if errors.Is(msg.err, state.ErrRefreshInFlight) {
			m.logger.Debug("manual refresh ignored, one is already running")
		}
	case replyMsg:
		m.submitting = false
		if msg.err == nil {
			m.input.Reset()
		}
		m.sync()
	case tickMsg:
		m.expireToasts()
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	default:
		return m, m.updateFocused(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.ctxCancel()
		return m, tea.Quit
	}

	if m.jumping {
		m.handleJump(msg)
		return m, nil
	}

	switch m.focus {
	case focusSearch:
		if key.Matches(msg, keys.Blur) || key.Matches(msg, keys.Submit) {
			return m, m.setFocus(focusTable)
		}
		prev := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if v := m.search.Value(); v != prev {
			m.vs.Search = v
			m.vs.Page = 1
			m.recompute()
		}
		return m, cmd

	case focusQuery:
		switch {
		case key.Matches(msg, keys.Blur):
			return m, m.setFocus(focusTable)
		case key.Matches(msg, keys.Submit):
			return m, m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.ctxCancel()
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, keys.Search):
		return m, m.setFocus(focusSearch)
	case key.Matches(msg, keys.Ask):
		return m, m.setFocus(focusQuery)
	case key.Matches(msg, keys.Blur):
		if m.vs.Search != "" {
			m.search.Reset()
			m.vs.Search = ""
			m.vs.Page = 1
			m.recompute()
		}
	case key.Matches(msg, keys.NextPage):
		m.goToPage(m.view.Page + 1)
	case key.Matches(msg, keys.PrevPage):
		m.goToPage(m.view.Page - 1)
	case key.Matches(msg, keys.First):
		m.goToPage(1)
	case key.Matches(msg, keys.Last):
		m.goToPage(m.view.TotalPages)
	case key.Matches(msg, keys.GoTo):
		m.jumping, m.jump = true, ""
	case key.Matches(msg, keys.Sort):
		m.vs.Sort = m.vs.Sort.Toggle(sortKeys[msg.String()])
		m.recompute()
	default:
		var cmd tea.Cmd
		m.procs, cmd = m.procs.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case focusSearch:
		m.search, cmd = m.search.Update(msg)
	case focusQuery:
		m.input, cmd = m.input.Update(msg)
	}
	return cmd
}

func (m *Model) setFocus(f focus) tea.Cmd {
	m.focus = f
	m.search.Blur()
	m.input.Blur()
	switch f {
	case focusSearch:
		m.procs.Blur()
		return m.search.Focus()
	case focusQuery:
		m.procs.Blur()
		return m.input.Focus()
	default:
		m.procs.Focus()
		return nil
	}
}

// handleJump collects page digits after g. Enter selects the page, anything
// else that is not a digit or backspace cancels.
func (m *Model) handleJump(msg tea.KeyMsg) {
	switch {
	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] >= '0' && msg.Runes[0] <= '9':
		if len(m.jump) < 6 {
			m.jump += string(msg.Runes)
		}
		return
	case msg.Type == tea.KeyBackspace:
		if m.jump != "" {
			m.jump = m.jump[:len(m.jump)-1]
		}
		return
	case key.Matches(msg, keys.Submit):
		if n, err := strconv.Atoi(m.jump); err == nil {
			m.goToPage(n)
		}
	}
	m.jumping, m.jump = false, ""
}

func (m *Model) goToPage(p int) {
	m.vs.Page = table.ClampPage(p, m.view.TotalPages)
	m.recompute()
}

// sync pulls a fresh snapshot from the store.
func (m *Model) sync() {
	m.snap = m.store.Snapshot()
	m.recompute()
	m.chat.SetContent(renderChat(m.snap.Chat, m.chat.Width))
	m.chat.GotoBottom()
}

// recompute runs the filter/sort/page pipeline over the snapshot and loads
// the result into the table widget.
func (m *Model) recompute() {
	m.view = table.Compute(m.snap.Processes, m.vs)
	m.vs.Page = m.view.Page
	m.procs.SetColumns(columns(m.vs.Sort))

	var rows []btable.Row
	if m.showPlaceholders() {
		rows = placeholderRows()
	} else {
		rows = processRows(m.view.Rows)
	}
	m.procs.SetRows(rows)
	if c := m.procs.Cursor(); c >= len(rows) || c < 0 {
		m.procs.SetCursor(0)
	}
}

// showPlaceholders is true while the first load is pending.
func (m *Model) showPlaceholders() bool {
	if len(m.snap.Processes) > 0 {
		return false
	}
	return m.snap.Loading || (!m.snap.Loaded() && m.snap.Err == "")
}

func (m *Model) expireToasts() {
	now := m.now()
	kept := m.toasts[:0]
	for _, n := range m.toasts {
		if now.Sub(n.At) < m.noticeTTL {
			kept = append(kept, n)
		}
	}
	m.toasts = kept
}

func (m *Model) resize() {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.chat.Width = w
	m.help.Width = m.width
	m.search.Width = w / 2
	m.input.Width = w - 8
	m.chat.SetContent(renderChat(m.snap.Chat, m.chat.Width))
	m.chat.GotoBottom()
}

// RunTUI wires the data source, inference client and store, then runs the
// dashboard until the user quits.
func RunTUI(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	center := notice.NewCenter(0)
	src := source.NewClient(cfg.APIURL,
		source.WithTimeout(cfg.Timeout),
		source.WithGenerator(source.NewGenerator(cfg.Seed)),
		source.WithLogger(logger),
	)
	store := state.New(src,
		state.WithInterval(cfg.Interval),
		state.WithLogger(logger),
		state.WithNotices(center),
	)
	backend := llm.NewClient(cfg.OllamaURL,
		llm.WithModel(cfg.Model),
		llm.WithTemperature(cfg.Temperature),
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithLogger(logger),
	)
	sub := query.NewSubmitter(backend, store, center, logger)

	stop := store.Start(ctx)
	defer stop()

	m := New(ctx, Deps{
		Store:     store,
		Submitter: sub,
		Notices:   center,
		NoticeTTL: cfg.NoticeTTL,
		Logger:    logger,
	})
	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
