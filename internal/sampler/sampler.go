package sampler

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Dicklesworthstone/procpulse/internal/model"
)

const bytesPerMB = 1024 * 1024

// Sampler periodically emits Samples of the local process table and
// machine-wide utilization.
type Sampler struct {
	Interval time.Duration
	// DiskPath is the mount point whose usage is reported.
	DiskPath string

	logger *slog.Logger

	prevTotal float64
	prevIdle  float64
	prevNet   []net.IOCountersStat
	prevAt    time.Time
}

func New(interval time.Duration, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sampler{
		Interval: interval,
		DiskPath: "/",
		logger:   logger,
	}
}

// Stream returns a channel that receives one snapshot right away and then
// one per interval until ctx is done.
func (s *Sampler) Stream(ctx context.Context) <-chan model.Sample {
	ch := make(chan model.Sample)
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		defer close(ch)

		send := func(t time.Time) bool {
			select {
			case ch <- s.Sample(ctx, t):
				return true
			case <-ctx.Done():
				return false
			}
		}
		if !send(time.Now()) {
			return
		}
		for {
			select {
			case t := <-ticker.C:
				if !send(t) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Sample takes one snapshot.
func (s *Sampler) Sample(ctx context.Context, now time.Time) model.Sample {
	return model.Sample{
		Timestamp: now,
		Interval:  s.Interval,
		Processes: s.processes(ctx),
		Resources: s.resources(ctx, now),
	}
}

func (s *Sampler) resources(ctx context.Context, now time.Time) model.Resources {
	var r model.Resources
	r.TotalCPUUsage = s.cpuPercent(ctx)

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		r.TotalMemoryUsage = float64(vm.Used) / bytesPerMB
		r.TotalMemory = float64(vm.Total) / bytesPerMB
	} else {
		s.logger.Debug("memory stats unavailable", "error", err)
	}

	if du, err := disk.UsageWithContext(ctx, s.DiskPath); err == nil {
		r.DiskUsage = float64(du.Used) / bytesPerMB
		r.TotalDisk = float64(du.Total) / bytesPerMB
	} else {
		s.logger.Debug("disk stats unavailable", "path", s.DiskPath, "error", err)
	}

	r.NetworkUsage = s.networkMbps(ctx, now)
	return r
}

// cpuPercent computes utilization from the delta of CPU times since the
// previous call. The first call returns 0.
func (s *Sampler) cpuPercent(ctx context.Context) (total float64) {
	times, _ := cpu.TimesWithContext(ctx, false)
	if len(times) == 0 {
		return 0
	}
	cur := times[0]
	curTotal := cur.Total()
	curIdle := cur.Idle + cur.Iowait
	if s.prevTotal > 0 {
		dt := curTotal - s.prevTotal
		di := curIdle - s.prevIdle
		if dt > 0 {
			total = 100 * (1 - di/dt)
		}
	}
	s.prevTotal, s.prevIdle = curTotal, curIdle
	return total
}

func (s *Sampler) networkMbps(ctx context.Context, now time.Time) float64 {
	counters, _ := net.IOCountersWithContext(ctx, false)
	if len(counters) == 0 {
		return 0
	}
	var mbps float64
	if len(s.prevNet) > 0 && !s.prevAt.IsZero() {
		dur := now.Sub(s.prevAt).Seconds()
		if dur <= 0 {
			dur = s.Interval.Seconds()
		}
		if dur > 0 {
			var delta uint64
			if counters[0].BytesRecv >= s.prevNet[0].BytesRecv {
				delta += counters[0].BytesRecv - s.prevNet[0].BytesRecv
			}
			if counters[0].BytesSent >= s.prevNet[0].BytesSent {
				delta += counters[0].BytesSent - s.prevNet[0].BytesSent
			}
			mbps = float64(delta*8) / 1e6 / dur
		}
	}
	s.prevNet = counters
	s.prevAt = now
	return mbps
}

func (s *Sampler) processes(ctx context.Context) []model.Process {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		s.logger.Warn("listing processes failed", "error", err)
		return []model.Process{}
	}

	out := make([]model.Process, 0, len(procs))
	for _, p := range procs {
		// Skip kernel threads without name
		name, _ := p.NameWithContext(ctx)
		if name == "" {
			continue
		}
		states, _ := p.StatusWithContext(ctx)
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		user, _ := p.UsernameWithContext(ctx)
		threads, _ := p.NumThreadsWithContext(ctx)
		nice, _ := p.NiceWithContext(ctx)

		var rssKB float64
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			rssKB = float64(mi.RSS) / 1024
		}
		var started string
		if ms, err := p.CreateTimeWithContext(ctx); err == nil && ms > 0 {
			started = time.UnixMilli(ms).UTC().Format(time.RFC3339)
		}

		out = append(out, model.Process{
			PID:       int(p.Pid),
			Name:      name,
			Status:    mapStatus(states),
			CPU:       cpuPct,
			Memory:    rssKB,
			User:      user,
			StartTime: started,
			Threads:   int(threads),
			Priority:  int(nice),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Memory > out[j].Memory })
	return out
}

// mapStatus folds gopsutil's state words into the API's six statuses.
func mapStatus(states []string) model.Status {
	if len(states) == 0 {
		return model.StatusSleeping
	}
	switch states[0] {
	case process.Running:
		return model.StatusRunning
	case process.Stop:
		return model.StatusStopped
	case process.Zombie:
		return model.StatusZombie
	case process.Wait, process.Blocked:
		return model.StatusWaiting
	case process.Lock:
		return model.StatusLocked
	default:
		return model.StatusSleeping
	}
}
