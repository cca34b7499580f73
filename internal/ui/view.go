package ui

import (
	"fmt"
	"strconv"
	"strings"

	btable "github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/procpulse/internal/model"
	"github.com/Dicklesworthstone/procpulse/internal/notice"
	"github.com/Dicklesworthstone/procpulse/internal/source"
	"github.com/Dicklesworthstone/procpulse/internal/table"
)

// Styles
var (
	colorAccent = lipgloss.Color("45")
	colorSelect = lipgloss.Color("60")
	colorWhite  = lipgloss.Color("231")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	pageStyle   = lipgloss.NewStyle().Padding(0, 1)
	curPage     = pageStyle.Reverse(true).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

var columnTitles = []struct {
	key   table.Key
	title string
	width int
}{
	{table.KeyPID, "PID", 7},
	{table.KeyName, "Name", 20},
	{table.KeyStatus, "Status", 9},
	{table.KeyCPU, "CPU %", 7},
	{table.KeyMemory, "Memory KB", 11},
	{table.KeyUser, "User", 10},
	{table.KeyStartTime, "Started", 20},
	{table.KeyThreads, "Thr", 5},
	{table.KeyPriority, "Pri", 5},
}

// columns builds the table header with an arrow on the sorted column.
func columns(s table.Sort) []btable.Column {
	cols := make([]btable.Column, 0, len(columnTitles))
	for i, c := range columnTitles {
		title := fmt.Sprintf("%d %s", i+1, c.title)
		if c.key == s.Key {
			if s.Dir == table.Descending {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		cols = append(cols, btable.Column{Title: title, Width: c.width + 2})
	}
	return cols
}

func processRows(ps []model.Process) []btable.Row {
	rows := make([]btable.Row, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, btable.Row{
			strconv.Itoa(p.PID),
			truncate(p.Name, 20),
			string(p.Status),
			fmt.Sprintf("%.1f", p.CPU),
			fmt.Sprintf("%.0f", p.Memory),
			truncate(p.User, 10),
			p.StartTime,
			strconv.Itoa(p.Threads),
			strconv.Itoa(p.Priority),
		})
	}
	return rows
}

func placeholderRows() []btable.Row {
	rows := make([]btable.Row, table.PlaceholderRows)
	for i := range rows {
		row := make(btable.Row, len(columnTitles))
		for j := range row {
			row[j] = "···"
		}
		rows[i] = row
	}
	return rows
}

func (m *Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderCards(),
		m.renderSearch(),
		m.renderTable(),
		m.renderPager(),
		m.renderChat(),
	}
	if t := m.renderToasts(); t != "" {
		sections = append(sections, t)
	}
	sections = append(sections, m.help.View(keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	header := titleStyle.Render("Process Dashboard")
	if !m.snap.UpdatedAt.IsZero() {
		header += "  " + subtleStyle.Render("updated "+m.snap.UpdatedAt.Format("15:04:05"))
	}
	if m.snap.Loaded() {
		header += "  " + originBadge("processes", m.snap.ProcessOrigin) +
			" " + originBadge("resources", m.snap.ResourceOrigin)
	}
	if m.snap.Loading {
		header += "  " + m.spin.View() + subtleStyle.Render(" loading")
	}
	if m.snap.Err != "" {
		header += "  " + errStyle.Render("refresh failed")
	}
	return header
}

func originBadge(what string, o source.Origin) string {
	if o == source.OriginSynthetic {
		return warnStyle.Render(what + ": synthetic")
	}
	return infoStyle.Render(what + ": live")
}

func (m *Model) renderCards() string {
	r := m.snap.Resources
	cpuCard := card("CPU", gaugeBar(r.TotalCPUUsage, 20))
	memCard := card("Memory",
		fmt.Sprintf("%s\n%.0f / %.0f MB", gaugeBar(r.MemoryPercent(), 20), r.TotalMemoryUsage, r.TotalMemory))
	diskCard := card("Disk",
		fmt.Sprintf("%s\n%.0f / %.0f MB", gaugeBar(r.DiskPercent(), 20), r.DiskUsage, r.TotalDisk))
	netCard := card("Network", fmt.Sprintf("%.1f Mbps", r.NetworkUsage))
	return lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, diskCard, netCard)
}

func (m *Model) renderSearch() string {
	counts := subtleStyle.Render(fmt.Sprintf("%d of %d processes", m.view.Matched, m.view.Total))
	return m.search.View() + "  " + counts
}

func (m *Model) renderTable() string {
	if m.showPlaceholders() || m.view.Empty == table.NotEmpty {
		return m.procs.View()
	}
	if m.snap.Err != "" && len(m.snap.Processes) == 0 {
		return cardStyle.Render(errStyle.Render("Could not load processes: " + m.snap.Err))
	}
	return cardStyle.Render(subtleStyle.Render(m.view.Empty.Message(m.vs.Search)))
}

func (m *Model) renderPager() string {
	if m.view.TotalPages == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(pageStyle.Render("‹ prev"))
	for _, p := range m.view.Window() {
		if p == m.view.Page {
			b.WriteString(curPage.Render(strconv.Itoa(p)))
		} else {
			b.WriteString(pageStyle.Render(strconv.Itoa(p)))
		}
	}
	b.WriteString(pageStyle.Render("next ›"))
	b.WriteString(subtleStyle.Render(fmt.Sprintf("  page %d/%d", m.view.Page, m.view.TotalPages)))
	if m.jumping {
		b.WriteString("  " + labelStyle.Render("go to page: "+m.jump+"_"))
	}
	return b.String()
}

func (m *Model) renderChat() string {
	var status string
	switch {
	case m.submitting:
		status = m.spin.View() + subtleStyle.Render(" waiting for reply")
	case m.llmProbed && !m.llmAvailable:
		status = warnStyle.Render("inference service unreachable")
	}
	title := labelStyle.Render("Ask about these processes")
	if status != "" {
		title += "  " + status
	}

	body := subtleStyle.Render("No answers yet.")
	if len(m.snap.Chat) > 0 {
		body = m.chat.View()
	}
	return cardStyle.Render(title + "\n" + body + "\n" + m.input.View())
}

func renderChat(chat []string, width int) string {
	if len(chat) == 0 {
		return ""
	}
	style := lipgloss.NewStyle().Width(width)
	parts := make([]string, 0, len(chat))
	for i, reply := range chat {
		parts = append(parts, style.Render(fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(reply))))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.toasts))
	for _, n := range m.toasts {
		lines = append(lines, toastStyle(n.Level).Render(n.Text))
	}
	return strings.Join(lines, "\n")
}

func toastStyle(l notice.Level) lipgloss.Style {
	switch l {
	case notice.Error:
		return errStyle
	case notice.Warning:
		return warnStyle
	default:
		return infoStyle
	}
}

// Helpers
func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	return cardStyle.Render(labelStyle.Render(title) + "\n" + body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
