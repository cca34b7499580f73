package model

// Status is the scheduler state of a process as reported by the process API.
type Status string

const (
	StatusRunning  Status = "running"
	StatusSleeping Status = "sleeping"
	StatusStopped  Status = "stopped"
	StatusZombie   Status = "zombie"
	StatusWaiting  Status = "waiting"
	StatusLocked   Status = "locked"
)

// Statuses lists every valid Status in display order.
var Statuses = []Status{
	StatusRunning,
	StatusSleeping,
	StatusStopped,
	StatusZombie,
	StatusWaiting,
	StatusLocked,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Process is one row of the process API. PID is the identity key within a
// single snapshot.
type Process struct {
	PID       int     `json:"pid"`
	Name      string  `json:"name"`
	Status    Status  `json:"status"`
	CPU       float64 `json:"cpuKb"`
	Memory    float64 `json:"memoryKb"`
	User      string  `json:"user"`
	StartTime string  `json:"startTime"`
	Threads   int     `json:"threads"`
	Priority  int     `json:"priority"`
}

// Resources is the aggregate machine utilization snapshot.
// Memory and disk figures are in MB, network in Mbps.
type Resources struct {
	TotalCPUUsage    float64 `json:"totalCpuUsage"`
	TotalMemoryUsage float64 `json:"totalMemoryUsage"`
	TotalMemory      float64 `json:"totalMemory"`
	DiskUsage        float64 `json:"diskUsage"`
	TotalDisk        float64 `json:"totalDisk"`
	NetworkUsage     float64 `json:"networkUsage"`
}

// MemoryPercent returns used memory as a percentage of capacity.
func (r Resources) MemoryPercent() float64 { return pct(r.TotalMemoryUsage, r.TotalMemory) }

// DiskPercent returns used disk as a percentage of capacity.
func (r Resources) DiskPercent() float64 { return pct(r.DiskUsage, r.TotalDisk) }

func pct(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return used * 100 / total
}
