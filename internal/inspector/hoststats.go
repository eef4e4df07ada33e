package inspector

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostStats is a point-in-time snapshot of the machine symcachectl runs
// on, reported alongside cache entries for a single-glance operator view.
type HostStats struct {
	LogicalCPUs    int
	LoadAverage1m  float64
	MemoryUsedPct  float64
	MemoryUsedBytes uint64
	MemoryTotalBytes uint64
}

// CollectHostStats gathers CPU count, 1-minute load average, and memory
// usage. Any individual collector's failure leaves its fields zero-valued
// rather than failing the whole snapshot.
func CollectHostStats() HostStats {
	var stats HostStats

	if counts, err := cpu.Counts(true); err == nil {
		stats.LogicalCPUs = counts
	}

	if avg, err := load.Avg(); err == nil {
		stats.LoadAverage1m = avg.Load1
	}

	if v, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsedPct = v.UsedPercent
		stats.MemoryUsedBytes = v.Used
		stats.MemoryTotalBytes = v.Total
	}

	return stats
}
