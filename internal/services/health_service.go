package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"salespulse/internal/config"
	"salespulse/internal/infrastructure"
	"salespulse/pkg/contracts"
)

// ClientCounter reports the number of connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     *config.Paths
	clients   ClientCounter
	collector *infrastructure.SystemMetricsCollector
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	DataFile         string  `json:"data_file"`
	DataFileBytes    int64   `json:"data_file_bytes"`
	ReportCount      int     `json:"report_count"`
	WebSocketClients int     `json:"websocket_clients"`
	Goroutines       int     `json:"goroutines"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service. clients and collector may
// be nil; the corresponding fields then report zero values.
func NewHealthService(version string, paths *config.Paths, clients ClientCounter, collector *infrastructure.SystemMetricsCollector, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("health service initialized",
		slog.String("version", version),
		slog.String("data_file", paths.DataFile))

	return &HealthService{
		version:   version,
		paths:     paths,
		clients:   clients,
		collector: collector,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the service can answer data requests.
// The dataset file must exist and the reports directory must be writable.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["data"] = hs.checkDataHealth()
	status.Services["reports"] = hs.checkReportsHealth()
	status.Services["websocket"] = hs.checkWebSocketHealth()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns the build identity plus process uptime.
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      hs.version,
		"api_version":  info.APIVersion,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		DataFile:      hs.paths.DataFile,
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}

	if info, err := os.Stat(hs.paths.DataFile); err == nil {
		stats.DataFileBytes = info.Size()
	}

	if entries, err := os.ReadDir(hs.paths.ReportsDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext == ".csv" || ext == ".xlsx" {
				stats.ReportCount++
			}
		}
	}

	if hs.clients != nil {
		stats.WebSocketClients = hs.clients.ClientCount()
	}

	return stats, nil
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	stats, _ := hs.SystemStats(ctx)

	detailed := map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     stats,
	}

	if hs.collector != nil {
		detailed["system"] = hs.collector.GetCurrentStats(ctx).FormatStats()
	}

	return detailed
}

// checkDataHealth verifies the sales CSV is present and readable.
func (hs *HealthService) checkDataHealth() ServiceHealth {
	if !hs.paths.DataFileExists() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("sales data file not found: %s", hs.paths.DataFile),
		}
	}

	file, err := os.Open(hs.paths.DataFile)
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("sales data file not readable: %v", err),
		}
	}
	file.Close()

	return ServiceHealth{
		Status:  "ready",
		Message: "sales data file is available",
	}
}

// checkReportsHealth verifies the reports directory can be written to.
func (hs *HealthService) checkReportsHealth() ServiceHealth {
	if err := os.MkdirAll(hs.paths.ReportsDir, 0755); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("cannot create reports directory: %v", err),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "reports directory is writable",
	}
}

// checkWebSocketHealth reports hub availability.
func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "websocket hub not initialized",
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.clients.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}
