package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/procpulse/internal/model"
	"github.com/Dicklesworthstone/procpulse/internal/notice"
	"github.com/Dicklesworthstone/procpulse/internal/query"
	"github.com/Dicklesworthstone/procpulse/internal/source"
	"github.com/Dicklesworthstone/procpulse/internal/state"
	"github.com/Dicklesworthstone/procpulse/internal/table"
)

type stubFetcher struct{ procs []model.Process }

func (f stubFetcher) FetchProcesses(context.Context) (source.ProcessResult, error) {
	return source.ProcessResult{Processes: f.procs, Origin: source.OriginRemote}, nil
}

func (f stubFetcher) FetchResources(context.Context) (source.ResourceResult, error) {
	return source.ResourceResult{
		Resources: model.Resources{TotalCPUUsage: 40, TotalMemory: 16384, TotalMemoryUsage: 8192},
		Origin:    source.OriginSynthetic,
	}, nil
}

type stubBackend struct {
	reply string
	err   error
	calls atomic.Int32
}

func (b *stubBackend) Available(context.Context) error { return nil }

func (b *stubBackend) Generate(context.Context, string) (string, error) {
	b.calls.Add(1)
	return b.reply, b.err
}

func testProcesses(n int) []model.Process {
	ps := make([]model.Process, n)
	for i := range ps {
		ps[i] = model.Process{
			PID:    100 + i,
			Name:   fmt.Sprintf("proc-%02d", i),
			Status: model.StatusRunning,
			Memory: float64(1000 * (n - i)),
			User:   "root",
		}
	}
	if n > 3 {
		ps[3].Name = "nginx"
	}
	return ps
}

type fixture struct {
	m       *Model
	store   *state.Store
	backend *stubBackend
	center  *notice.Center
}

func newFixture(t *testing.T, procs []model.Process, refresh bool) fixture {
	t.Helper()
	store := state.New(stubFetcher{procs: procs})
	if refresh {
		if err := store.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}
	backend := &stubBackend{reply: "nginx is fine"}
	center := notice.NewCenter(8)
	sub := query.NewSubmitter(backend, store, center, nil)
	m := New(context.Background(), Deps{Store: store, Submitter: sub, Notices: center})
	return fixture{m: m, store: store, backend: backend, center: center}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func isQuitCmd(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func drainNotices(c *notice.Center) []notice.Notice {
	var out []notice.Notice
	for {
		select {
		case n := <-c.C():
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestModel_PlaceholdersBeforeFirstLoad(t *testing.T) {
	f := newFixture(t, testProcesses(5), false)
	if !f.m.showPlaceholders() {
		t.Fatal("expected placeholders before the first refresh")
	}
	if got := len(f.m.procs.Rows()); got != table.PlaceholderRows {
		t.Errorf("rows = %d, want %d", got, table.PlaceholderRows)
	}
}

func TestModel_Pagination(t *testing.T) {
	f := newFixture(t, testProcesses(25), true)
	m := f.m

	if m.view.TotalPages != 3 || m.view.Page != 1 {
		t.Fatalf("page %d/%d, want 1/3", m.view.Page, m.view.TotalPages)
	}
	if got := len(m.procs.Rows()); got != 10 {
		t.Errorf("rows = %d, want 10", got)
	}

	m.Update(runes("n"))
	if m.view.Page != 2 {
		t.Errorf("after n: page %d, want 2", m.view.Page)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	if m.view.Page != 3 || len(m.procs.Rows()) != 5 {
		t.Errorf("after end: page %d with %d rows, want 3 with 5", m.view.Page, len(m.procs.Rows()))
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.view.Page != 3 {
		t.Errorf("next past the end: page %d, want 3", m.view.Page)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyHome})
	m.Update(runes("p"))
	if m.view.Page != 1 {
		t.Errorf("prev before the start: page %d, want 1", m.view.Page)
	}
}

func TestModel_GoToPage(t *testing.T) {
	f := newFixture(t, testProcesses(45), true)
	m := f.m

	for _, msg := range []tea.KeyMsg{runes("g"), runes("3"), {Type: tea.KeyEnter}} {
		m.Update(msg)
	}
	if m.view.Page != 3 || m.jumping {
		t.Fatalf("page %d (jumping %v), want 3", m.view.Page, m.jumping)
	}
	if got := m.procs.Rows()[0][0]; got != "120" {
		t.Errorf("first row pid = %s, want 120", got)
	}

	m.Update(runes("g"))
	if !strings.Contains(m.renderPager(), "go to page: _") {
		t.Errorf("pager should show the jump prompt, got %q", m.renderPager())
	}
	for _, msg := range []tea.KeyMsg{runes("4"), runes("2"), {Type: tea.KeyBackspace}, {Type: tea.KeyEnter}} {
		m.Update(msg)
	}
	if m.view.Page != 4 {
		t.Errorf("after g 4 2 backspace enter: page %d, want 4", m.view.Page)
	}

	for _, msg := range []tea.KeyMsg{runes("g"), runes("9"), runes("9"), {Type: tea.KeyEnter}} {
		m.Update(msg)
	}
	if m.view.Page != 5 {
		t.Errorf("jump past the end: page %d, want 5", m.view.Page)
	}

	for _, msg := range []tea.KeyMsg{runes("g"), runes("2"), {Type: tea.KeyEsc}} {
		m.Update(msg)
	}
	if m.view.Page != 5 || m.jumping {
		t.Errorf("esc should cancel the jump, page %d jumping %v", m.view.Page, m.jumping)
	}

	m.Update(runes("g"))
	m.Update(runes("q"))
	if m.jumping || m.view.Page != 5 {
		t.Error("a non-digit key should cancel the jump without moving")
	}
}

func TestModel_SortKeys(t *testing.T) {
	f := newFixture(t, testProcesses(25), true)
	m := f.m

	if m.procs.Rows()[0][0] != "100" {
		t.Fatalf("default sort should put the largest process first, got pid %s", m.procs.Rows()[0][0])
	}

	m.Update(runes("1"))
	if m.vs.Sort != (table.Sort{Key: table.KeyPID, Dir: table.Ascending}) {
		t.Errorf("sort = %+v, want pid ascending", m.vs.Sort)
	}
	m.Update(runes("1"))
	if m.vs.Sort.Dir != table.Descending {
		t.Errorf("second press should flip direction, got %v", m.vs.Sort.Dir)
	}
	if m.procs.Rows()[0][0] != "124" {
		t.Errorf("first row pid = %s, want 124", m.procs.Rows()[0][0])
	}
}

func TestModel_Search(t *testing.T) {
	f := newFixture(t, testProcesses(25), true)
	m := f.m

	m.Update(runes("n"))
	m.Update(runes("/"))
	if m.focus != focusSearch {
		t.Fatal("expected search focus")
	}
	m.Update(runes("NGI"))
	if m.vs.Search != "NGI" || m.view.Matched != 1 || m.view.Page != 1 {
		t.Errorf("search %q matched %d on page %d", m.vs.Search, m.view.Matched, m.view.Page)
	}
	if m.procs.Rows()[0][1] != "nginx" {
		t.Errorf("row = %v", m.procs.Rows()[0])
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.focus != focusTable || m.vs.Search != "NGI" {
		t.Errorf("esc should keep the term and return to the table")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.vs.Search != "" || m.view.Matched != 25 {
		t.Errorf("esc on the table should clear the search, matched %d", m.view.Matched)
	}
}

func TestModel_EmptyMessages(t *testing.T) {
	f := newFixture(t, testProcesses(3), true)
	m := f.m
	m.Update(runes("/"))
	m.Update(runes("zzz"))
	if got := m.renderTable(); !strings.Contains(got, `No processes match "zzz"`) {
		t.Errorf("renderTable = %q", got)
	}

	empty := newFixture(t, []model.Process{}, true)
	if got := empty.m.renderTable(); !strings.Contains(got, "No processes found") {
		t.Errorf("renderTable = %q", got)
	}
}

func TestModel_QuerySuccessClearsInput(t *testing.T) {
	f := newFixture(t, testProcesses(3), true)
	m := f.m

	m.Update(runes("a"))
	if m.focus != focusQuery {
		t.Fatal("expected query focus")
	}
	m.Update(runes("what is busy?"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !m.submitting {
		t.Fatal("expected a submit command")
	}
	if _, again := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); again != nil {
		t.Error("submit should be disabled while a reply is outstanding")
	}

	m.Update(cmd())
	if m.submitting {
		t.Error("submitting should clear after the reply")
	}
	if m.input.Value() != "" {
		t.Errorf("input = %q, want empty", m.input.Value())
	}
	if len(m.snap.Chat) != 1 || m.snap.Chat[0] != "nginx is fine" {
		t.Errorf("chat = %v", m.snap.Chat)
	}
	if f.backend.calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", f.backend.calls.Load())
	}
}

func TestModel_QueryFailureKeepsInput(t *testing.T) {
	f := newFixture(t, testProcesses(3), true)
	f.backend.err = errors.New("connection refused")
	m := f.m

	m.Update(runes("a"))
	m.Update(runes("why?"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(cmd())

	if m.input.Value() != "why?" {
		t.Errorf("input = %q, want it kept for retry", m.input.Value())
	}
	if len(m.snap.Chat) != 0 {
		t.Errorf("chat = %v, want empty", m.snap.Chat)
	}
	ns := drainNotices(f.center)
	if len(ns) != 1 || ns[0].Level != notice.Error {
		t.Errorf("notices = %+v, want one error", ns)
	}
}

func TestModel_EmptyQuery(t *testing.T) {
	f := newFixture(t, testProcesses(3), true)
	m := f.m

	m.Update(runes("a"))
	m.Update(runes("   "))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.submitting {
		t.Error("blank input should not start a request")
	}
	if f.backend.calls.Load() != 0 {
		t.Error("blank input reached the backend")
	}
	ns := drainNotices(f.center)
	if len(ns) != 1 || ns[0].Level != notice.Warning {
		t.Errorf("notices = %+v, want one warning", ns)
	}
}

func TestModel_ToastsExpire(t *testing.T) {
	f := newFixture(t, nil, false)
	m := f.m
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Update(noticeMsg{Level: notice.Error, Text: "old", At: now.Add(-10 * time.Second)})
	m.Update(noticeMsg{Level: notice.Info, Text: "fresh", At: now.Add(-time.Second)})
	m.Update(tickMsg{})

	if len(m.toasts) != 1 || m.toasts[0].Text != "fresh" {
		t.Errorf("toasts = %+v", m.toasts)
	}
}

func TestModel_ProbeAndView(t *testing.T) {
	f := newFixture(t, testProcesses(12), true)
	m := f.m
	m.Update(probeMsg{ok: false})
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})

	out := m.View()
	for _, want := range []string{"Process Dashboard", "processes: live", "resources: synthetic", "inference service unreachable", "page 1/2"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_Quit(t *testing.T) {
	f := newFixture(t, nil, false)
	_, cmd := f.m.Update(runes("q"))
	if !isQuitCmd(cmd) {
		t.Error("expected q to quit")
	}
	if f.m.ctx.Err() == nil {
		t.Error("quit should cancel the model context")
	}

	g := newFixture(t, nil, false)
	g.m.Update(runes("a"))
	if _, cmd := g.m.Update(runes("q")); isQuitCmd(cmd) {
		t.Error("q inside the query box should be typed, not quit")
	}
	if _, cmd := g.m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); !isQuitCmd(cmd) {
		t.Error("expected ctrl+c to quit from any focus")
	}
}
