package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics publishes Go runtime statistics as OpenTelemetry
// instruments.
type SystemMetrics struct {
	meter metric.Meter

	goroutines metric.Int64Gauge
	heapBytes  metric.Int64Gauge
	allocBytes metric.Int64Gauge
	sysBytes   metric.Int64Gauge
	gcPause    metric.Float64Histogram
	cpus       metric.Int64Gauge
	uptime     metric.Float64Gauge
}

func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	sm := &SystemMetrics{meter: meter}

	var err error
	if sm.goroutines, err = meter.Int64Gauge("system_goroutines",
		metric.WithDescription("Active goroutines")); err != nil {
		return nil, fmt.Errorf("goroutines gauge: %w", err)
	}
	if sm.heapBytes, err = meter.Int64Gauge("system_memory_usage_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("heap gauge: %w", err)
	}
	if sm.allocBytes, err = meter.Int64Gauge("system_memory_allocated_bytes",
		metric.WithDescription("Cumulative bytes allocated by the runtime"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("alloc gauge: %w", err)
	}
	if sm.sysBytes, err = meter.Int64Gauge("system_memory_system_bytes",
		metric.WithDescription("Bytes of memory obtained from the OS"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("sys gauge: %w", err)
	}
	if sm.gcPause, err = meter.Float64Histogram("system_gc_pause_seconds",
		metric.WithDescription("GC pause duration"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("gc pause histogram: %w", err)
	}
	if sm.cpus, err = meter.Int64Gauge("system_cpu_count",
		metric.WithDescription("Logical CPUs available")); err != nil {
		return nil, fmt.Errorf("cpu gauge: %w", err)
	}
	if sm.uptime, err = meter.Float64Gauge("system_process_uptime_seconds",
		metric.WithDescription("Seconds since process start"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("uptime gauge: %w", err)
	}

	return sm, nil
}

// SystemStats is one sample of runtime state.
type SystemStats struct {
	GoRoutines      int64
	MemoryUsage     int64
	MemoryAllocated int64
	MemorySystem    int64
	GCCount         uint32
	LastGCPause     time.Duration
	CPUCount        int
	ProcessUptime   time.Duration
	Timestamp       time.Time
}

// Collect samples the runtime, records every instrument and returns the
// sample.
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time) *SystemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := &SystemStats{
		Timestamp:       time.Now(),
		GoRoutines:      int64(runtime.NumGoroutine()),
		CPUCount:        runtime.NumCPU(),
		ProcessUptime:   time.Since(startTime),
		MemoryUsage:     int64(m.Alloc),
		MemoryAllocated: int64(m.TotalAlloc),
		MemorySystem:    int64(m.Sys),
		GCCount:         m.NumGC,
		LastGCPause:     lastGCPause(&m),
	}

	sm.goroutines.Record(ctx, stats.GoRoutines)
	sm.heapBytes.Record(ctx, stats.MemoryUsage)
	sm.allocBytes.Record(ctx, stats.MemoryAllocated)
	sm.sysBytes.Record(ctx, stats.MemorySystem)
	sm.cpus.Record(ctx, int64(stats.CPUCount))
	sm.uptime.Record(ctx, stats.ProcessUptime.Seconds())
	if stats.LastGCPause > 0 {
		sm.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}

	return stats
}

// lastGCPause reads the most recent pause from the runtime's circular
// pause buffer.
func lastGCPause(m *runtime.MemStats) time.Duration {
	if m.NumGC == 0 {
		return 0
	}
	return time.Duration(m.PauseNs[(m.NumGC+255)%256])
}

const bytesPerMB = 1 << 20

// FormatStats renders the sample for the health detail payload.
func (stats *SystemStats) FormatStats() map[string]interface{} {
	return map[string]interface{}{
		"runtime": map[string]interface{}{
			"goroutines":       stats.GoRoutines,
			"memory_usage_mb":  stats.MemoryUsage / bytesPerMB,
			"memory_alloc_mb":  stats.MemoryAllocated / bytesPerMB,
			"memory_system_mb": stats.MemorySystem / bytesPerMB,
			"gc_count":         stats.GCCount,
			"last_gc_pause_ms": stats.LastGCPause.Milliseconds(),
		},
		"system": map[string]interface{}{
			"cpu_count":      stats.CPUCount,
			"uptime_seconds": stats.ProcessUptime.Seconds(),
		},
		"timestamp": stats.Timestamp.Format(time.RFC3339),
	}
}

// SystemMetricsCollector samples the runtime on a fixed interval.
type SystemMetricsCollector struct {
	metrics   *SystemMetrics
	startTime time.Time
	interval  time.Duration
	stop      chan struct{}
}

func NewSystemMetricsCollector(meter metric.Meter, interval time.Duration) (*SystemMetricsCollector, error) {
	metrics, err := NewSystemMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create system metrics: %w", err)
	}

	return &SystemMetricsCollector{
		metrics:   metrics,
		startTime: time.Now(),
		interval:  interval,
		stop:      make(chan struct{}),
	}, nil
}

// Start samples once immediately, then on every tick. It blocks until
// Stop is called or ctx is cancelled, so run it on its own goroutine.
func (smc *SystemMetricsCollector) Start(ctx context.Context) {
	smc.metrics.Collect(ctx, smc.startTime)

	ticker := time.NewTicker(smc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-smc.stop:
			return
		case <-ticker.C:
			smc.metrics.Collect(ctx, smc.startTime)
		}
	}
}

// Stop ends collection. Call it at most once.
func (smc *SystemMetricsCollector) Stop() {
	close(smc.stop)
}

// GetCurrentStats records and returns a fresh sample.
func (smc *SystemMetricsCollector) GetCurrentStats(ctx context.Context) *SystemStats {
	return smc.metrics.Collect(ctx, smc.startTime)
}

func (smc *SystemMetricsCollector) GetMetrics() *SystemMetrics {
	return smc.metrics
}
