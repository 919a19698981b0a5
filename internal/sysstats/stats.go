// Package sysstats collects host resource statistics for periodic health
// logging by the daemon composition root. It is not exposed over any
// network surface; it exists so operators can see CPU/memory/disk
// pressure in the daemon's own logs without a separate monitoring agent.
package sysstats

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot is one point-in-time read of host resource usage.
type Snapshot struct {
	Hostname         string
	OS, Arch         string
	UptimeSeconds    int64
	CPUCores         int
	CPUPercent       float64
	LoadAvg1, LoadAvg5, LoadAvg15 float64
	MemoryTotalBytes uint64
	MemoryUsedBytes  uint64
	MemoryPercent    float64
	DiskTotalBytes   uint64
	DiskUsedBytes    uint64
	DiskPercent      float64
}

// Collector gathers Snapshots for a fixed work directory (used for disk
// usage reporting, typically wherever transcode scratch files land).
type Collector struct {
	hostname string
	workDir  string
}

// NewCollector constructs a Collector. workDir is the path disk usage is
// measured against.
func NewCollector(workDir string) *Collector {
	hostname, _ := os.Hostname()
	return &Collector{hostname: hostname, workDir: workDir}
}

// Collect gathers a Snapshot, leaving zero-valued fields for any metric
// gopsutil could not read on the current platform.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	snap := Snapshot{Hostname: c.hostname, OS: runtime.GOOS, Arch: runtime.GOARCH}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		snap.UptimeSeconds = int64(uptime)
	}
	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUCores = cores
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}
	if l, err := load.AvgWithContext(ctx); err == nil {
		snap.LoadAvg1, snap.LoadAvg5, snap.LoadAvg15 = l.Load1, l.Load5, l.Load15
	}
	if m, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryTotalBytes, snap.MemoryUsedBytes, snap.MemoryPercent = m.Total, m.Used, m.UsedPercent
	}
	if d, err := disk.UsageWithContext(ctx, c.workDir); err == nil {
		snap.DiskTotalBytes, snap.DiskUsedBytes, snap.DiskPercent = d.Total, d.Used, d.UsedPercent
	}
	return snap
}

// Run polls Collect every interval and invokes report with each
// Snapshot until ctx is cancelled.
func (c *Collector) Run(ctx context.Context, interval time.Duration, report func(Snapshot)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report(c.Collect(ctx))
		}
	}
}
