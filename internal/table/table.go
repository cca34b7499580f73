// Package table turns the raw process list into what the process table
// shows: search filtering, stable sorting and fixed-size pagination.
package table

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Dicklesworthstone/procpulse/internal/model"
)

const (
	// PageSize is the number of rows on one page.
	PageSize = 10
	// WindowSize is the maximum number of page links shown at once.
	WindowSize = 5
	// PlaceholderRows is the number of skeleton rows drawn while loading.
	PlaceholderRows = PageSize
)

// Key selects the field a list is sorted by.
type Key int

const (
	KeyPID Key = iota
	KeyName
	KeyStatus
	KeyCPU
	KeyMemory
	KeyUser
	KeyStartTime
	KeyThreads
	KeyPriority
)

var keyNames = map[Key]string{
	KeyPID:       "pid",
	KeyName:      "name",
	KeyStatus:    "status",
	KeyCPU:       "cpu",
	KeyMemory:    "memory",
	KeyUser:      "user",
	KeyStartTime: "start",
	KeyThreads:   "threads",
	KeyPriority:  "priority",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// ParseKey maps a column name to its Key.
func ParseKey(name string) (Key, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range keyNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown sort key %q", name)
}

// Direction is the sort order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Sort is a key plus direction.
type Sort struct {
	Key Key
	Dir Direction
}

// DefaultSort orders by memory usage, largest first.
func DefaultSort() Sort { return Sort{Key: KeyMemory, Dir: Descending} }

// Toggle returns the sort after the user selects key: the same key flips
// direction, a different key starts ascending.
func (s Sort) Toggle(key Key) Sort {
	if s.Key == key {
		if s.Dir == Ascending {
			return Sort{Key: key, Dir: Descending}
		}
		return Sort{Key: key, Dir: Ascending}
	}
	return Sort{Key: key, Dir: Ascending}
}

// Filter returns the processes whose name, decimal pid, status or user
// contains term, ignoring case. Whitespace in term is significant. An empty
// term returns ps unchanged.
func Filter(ps []model.Process, term string) []model.Process {
	if term == "" {
		return ps
	}
	term = strings.ToLower(term)
	out := make([]model.Process, 0, len(ps))
	for _, p := range ps {
		if matches(p, term) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p model.Process, term string) bool {
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strconv.Itoa(p.PID), term) ||
		strings.Contains(strings.ToLower(string(p.Status)), term) ||
		strings.Contains(strings.ToLower(p.User), term)
}

// SortProcesses returns a sorted copy of ps. Equal keys keep their input order
// in both directions.
func SortProcesses(ps []model.Process, s Sort) []model.Process {
	out := slices.Clone(ps)
	compare := comparator(s.Key)
	slices.SortStableFunc(out, func(a, b model.Process) int {
		if s.Dir == Descending {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

func comparator(k Key) func(a, b model.Process) int {
	switch k {
	case KeyName:
		return func(a, b model.Process) int { return cmp.Compare(a.Name, b.Name) }
	case KeyStatus:
		return func(a, b model.Process) int { return cmp.Compare(a.Status, b.Status) }
	case KeyCPU:
		return func(a, b model.Process) int { return cmp.Compare(a.CPU, b.CPU) }
	case KeyMemory:
		return func(a, b model.Process) int { return cmp.Compare(a.Memory, b.Memory) }
	case KeyUser:
		return func(a, b model.Process) int { return cmp.Compare(a.User, b.User) }
	case KeyStartTime:
		return func(a, b model.Process) int { return cmp.Compare(a.StartTime, b.StartTime) }
	case KeyThreads:
		return func(a, b model.Process) int { return cmp.Compare(a.Threads, b.Threads) }
	case KeyPriority:
		return func(a, b model.Process) int { return cmp.Compare(a.Priority, b.Priority) }
	default:
		return func(a, b model.Process) int { return cmp.Compare(a.PID, b.PID) }
	}
}

// PageCount returns ceil(n / PageSize).
func PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// ClampPage limits page to [1, totalPages]. With no pages it returns 1.
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// PageSlice returns the rows of the 1-indexed page after clamping.
func PageSlice(ps []model.Process, page int) []model.Process {
	page = ClampPage(page, PageCount(len(ps)))
	start := (page - 1) * PageSize
	if start >= len(ps) {
		return nil
	}
	end := min(start+PageSize, len(ps))
	return ps[start:end]
}

// PageWindow returns up to WindowSize page numbers centered on current and
// clamped to [1, totalPages].
func PageWindow(current, totalPages int) []int {
	if totalPages <= 0 {
		return nil
	}
	current = ClampPage(current, totalPages)
	start := current - WindowSize/2
	end := start + WindowSize - 1
	if start < 1 {
		start = 1
		end = min(WindowSize, totalPages)
	}
	if end > totalPages {
		end = totalPages
		start = max(1, end-WindowSize+1)
	}
	out := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		out = append(out, p)
	}
	return out
}
