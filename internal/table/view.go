package table

import "github.com/Dicklesworthstone/procpulse/internal/model"

// EmptyReason explains why a page has no rows.
type EmptyReason int

const (
	// NotEmpty means the page has rows.
	NotEmpty EmptyReason = iota
	// NoMatches means the search term filtered out every process.
	NoMatches
	// NoProcesses means the list itself is empty.
	NoProcesses
)

// Message is the text shown in place of an empty table.
func (r EmptyReason) Message(term string) string {
	switch r {
	case NoMatches:
		return "No processes match \"" + term + "\""
	case NoProcesses:
		return "No processes found"
	default:
		return ""
	}
}

// State is what the user controls: search term, sort and page.
type State struct {
	Search string
	Sort   Sort
	Page   int
}

// DefaultState is an unfiltered first page sorted by memory, descending.
func DefaultState() State { return State{Sort: DefaultSort(), Page: 1} }

// View is the result of running State over a process list.
type View struct {
	Rows       []model.Process
	Page       int
	TotalPages int
	// Matched is the number of processes left after filtering.
	Matched int
	// Total is the number of processes before filtering.
	Total int
	Empty EmptyReason
}

// Compute filters, sorts and paginates ps according to st.
func Compute(ps []model.Process, st State) View {
	filtered := Filter(ps, st.Search)
	sorted := SortProcesses(filtered, st.Sort)
	pages := PageCount(len(sorted))
	page := ClampPage(st.Page, pages)

	v := View{
		Rows:       PageSlice(sorted, page),
		Page:       page,
		TotalPages: pages,
		Matched:    len(sorted),
		Total:      len(ps),
	}
	switch {
	case len(v.Rows) > 0:
		v.Empty = NotEmpty
	case len(ps) == 0:
		v.Empty = NoProcesses
	default:
		v.Empty = NoMatches
	}
	return v
}

// Window returns the page links to show for v.
func (v View) Window() []int { return PageWindow(v.Page, v.TotalPages) }
