package source

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Dicklesworthstone/procpulse/internal/model"
)

const (
	// SyntheticCount is the number of processes in a synthetic list.
	SyntheticCount = 100

	// SyntheticTotalMemory is the fixed memory capacity in MB.
	SyntheticTotalMemory = 16384.0
	// SyntheticTotalDisk is the fixed disk capacity in MB.
	SyntheticTotalDisk = 512000.0

	maxStartAge = 30 * 24 * time.Hour
)

var (
	processCatalog = []string{
		"chrome", "firefox", "node", "python3", "code", "slack", "spotify",
		"docker", "containerd", "postgres", "redis-server", "nginx", "systemd",
		"sshd", "bash", "zsh", "java", "gnome-shell", "Xorg", "pulseaudio",
		"notepad++", "explorer", "svchost", "ollama", "go", "gopls", "tmux",
		"vim", "cron", "dockerd",
	}
	userCatalog     = []string{"root", "system", "admin", "daemon", "user"}
	priorityCatalog = []int{-10, -5, 0, 5, 10, 19}
)

// Generator produces plausible fake process lists and resource summaries.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator returns a Generator seeded with seed. A zero seed uses the clock.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Processes returns SyntheticCount records with unique pids, sorted by
// memory usage descending.
func (g *Generator) Processes() []model.Process {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	seen := make(map[int]struct{}, SyntheticCount)
	out := make([]model.Process, 0, SyntheticCount)
	for len(out) < SyntheticCount {
		pid := 1 + g.rng.Intn(65535)
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}

		age := time.Duration(g.rng.Int63n(int64(maxStartAge)))
		out = append(out, model.Process{
			PID:       pid,
			Name:      processCatalog[g.rng.Intn(len(processCatalog))],
			Status:    model.Statuses[g.rng.Intn(len(model.Statuses))],
			CPU:       g.between(0, 100),
			Memory:    g.between(1024, 2*1024*1024),
			User:      userCatalog[g.rng.Intn(len(userCatalog))],
			StartTime: now.Add(-age).UTC().Format(time.RFC3339),
			Threads:   1 + g.rng.Intn(64),
			Priority:  priorityCatalog[g.rng.Intn(len(priorityCatalog))],
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Memory > out[j].Memory })
	return out
}

// Resources returns a random utilization snapshot against fixed capacities.
func (g *Generator) Resources() model.Resources {
	g.mu.Lock()
	defer g.mu.Unlock()

	return model.Resources{
		TotalCPUUsage:    g.between(5, 95),
		TotalMemoryUsage: g.between(2048, 14336),
		TotalMemory:      SyntheticTotalMemory,
		DiskUsage:        g.between(100000, 400000),
		TotalDisk:        SyntheticTotalDisk,
		NetworkUsage:     g.between(0, 100),
	}
}

// between returns a float in [lo, hi). Callers hold g.mu.
func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
