package metrics

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// SystemMetrics holds a system and process resource snapshot
type SystemMetrics struct {
	CPUPercent        float64 // System-wide CPU usage (0-100%)
	ProcessCPUPercent float64 // Can exceed 100% on multi-core
	ProcessRSSMB      float64
	HeapAllocMB       float64
	MemoryUsedGB      float64
	MemoryTotalGB     float64
	MemoryPercent     float64
	Goroutines        int
	Timestamp         time.Time
}

// Fields returns the metrics as zap fields
func (m *SystemMetrics) Fields() []zap.Field {
	return []zap.Field{
		zap.Float64("cpu_percent", round1(m.CPUPercent)),
		zap.Float64("process_cpu_percent", round1(m.ProcessCPUPercent)),
		zap.Float64("process_rss_mb", round1(m.ProcessRSSMB)),
		zap.Float64("heap_alloc_mb", round1(m.HeapAllocMB)),
		zap.Float64("memory_used_gb", round1(m.MemoryUsedGB)),
		zap.Float64("memory_total_gb", round1(m.MemoryTotalGB)),
		zap.Float64("memory_percent", round1(m.MemoryPercent)),
		zap.Int("goroutines", m.Goroutines),
	}
}

// Collector periodically collects and logs system metrics
type Collector struct {
	interval    time.Duration
	logger      *zap.Logger
	proc        *process.Process
	mu          sync.RWMutex
	lastMetrics *SystemMetrics
}

// NewCollector creates a new metrics collector
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}

	// A nil process only loses the per-process figures
	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Start begins periodic metrics collection. Returns when ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// GetMetrics returns the last collected metrics
func (c *Collector) GetMetrics() *SystemMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastMetrics
}

func (c *Collector) collect() {
	m := Snapshot(c.proc)

	c.mu.Lock()
	c.lastMetrics = m
	c.mu.Unlock()

	c.logger.Info("System metrics", m.Fields()...)
}

// Snapshot samples current metrics. proc may be nil.
func Snapshot(proc *process.Process) *SystemMetrics {
	m := &SystemMetrics{
		Timestamp:  time.Now(),
		Goroutines: runtime.NumGoroutine(),
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		m.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		m.MemoryUsedGB = float64(vm.Used) / (1 << 30)
		m.MemoryTotalGB = float64(vm.Total) / (1 << 30)
		m.MemoryPercent = vm.UsedPercent
	}

	if proc != nil {
		if pct, err := proc.Percent(0); err == nil {
			m.ProcessCPUPercent = pct
		}
		if info, err := proc.MemoryInfo(); err == nil {
			m.ProcessRSSMB = float64(info.RSS) / (1 << 20)
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.HeapAllocMB = float64(ms.HeapAlloc) / (1 << 20)

	return m
}

// SelfSnapshot samples metrics for the current process
func SelfSnapshot() *SystemMetrics {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return Snapshot(proc)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
