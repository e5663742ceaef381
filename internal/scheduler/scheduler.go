// Package scheduler periodically re-checks the sales CSV so dashboards
// pick up file edits without manual refresh calls.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"salespulse/internal/config"
	"salespulse/internal/infrastructure"
	"salespulse/internal/services"
)

// RefreshService is the slice of the sales service the watcher needs.
type RefreshService interface {
	Refresh(ctx context.Context, force bool) (*services.RefreshResult, error)
}

// DatasetWatcher schedules incremental dataset refreshes at a fixed
// interval. Refreshes are incremental: the loader's modification-time
// check keeps an unchanged file from being re-parsed.
type DatasetWatcher struct {
	scheduler *gocron.Scheduler
	service   RefreshService
	interval  time.Duration
	enabled   bool
	logger    *slog.Logger

	mu                sync.Mutex
	running           bool
	runs              int64
	failures          int64
	lastRunStartedAt  time.Time
	lastRunFinishedAt time.Time
	lastChanged       bool
}

// NewDatasetWatcher creates a watcher from the data configuration.
func NewDatasetWatcher(service RefreshService, cfg config.DataConfig, logger *slog.Logger) *DatasetWatcher {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "scheduler"))

	interval := cfg.WatchInterval
	if interval <= 0 {
		interval = config.DefaultWatchInterval
	}

	return &DatasetWatcher{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		interval:  interval,
		enabled:   cfg.Watch,
		logger:    logger,
	}
}

// Start schedules the refresh job and runs the scheduler in the
// background. The scheduler stops when ctx is cancelled. Start is a
// no-op when watching is disabled by configuration.
func (w *DatasetWatcher) Start(ctx context.Context) error {
	if !w.enabled {
		w.logger.Info("dataset watching disabled by configuration")
		return nil
	}

	w.logger.Info("starting dataset watcher",
		slog.Duration("interval", w.interval))

	_, err := w.scheduler.Every(w.interval).SingletonMode().StartImmediately().Do(func() {
		w.runOnce()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule dataset refresh: %w", err)
	}

	w.scheduler.StartAsync()

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}

// Stop halts the scheduler. Safe to call more than once.
func (w *DatasetWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.logger.Info("stopping dataset watcher")
	w.scheduler.Stop()
}

// TriggerNow kicks off a refresh outside the schedule, e.g. from an
// operator signal. It returns immediately; the refresh runs in the
// background.
func (w *DatasetWatcher) TriggerNow() {
	go w.runOnce()
}

func (w *DatasetWatcher) runOnce() {
	started := time.Now()
	w.mu.Lock()
	w.lastRunStartedAt = started
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := w.service.Refresh(ctx, false)

	w.mu.Lock()
	w.runs++
	w.lastRunFinishedAt = time.Now()
	if err != nil {
		w.failures++
	} else {
		w.lastChanged = result.Changed
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.ErrorContext(ctx, "scheduled refresh failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(started)))
		return
	}

	if result.Changed {
		w.logger.InfoContext(ctx, "scheduled refresh detected dataset change",
			slog.Int("rows", result.Info.Rows),
			slog.Duration("duration", time.Since(started)))
	} else {
		w.logger.DebugContext(ctx, "scheduled refresh found no changes",
			slog.Duration("duration", time.Since(started)))
	}
}

// Status reports watcher state for diagnostics endpoints.
func (w *DatasetWatcher) Status() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()

	return map[string]any{
		"enabled":               w.enabled,
		"running":               w.running,
		"interval":              w.interval.String(),
		"runs":                  w.runs,
		"failures":              w.failures,
		"last_run_started_at":   w.lastRunStartedAt,
		"last_run_completed_at": w.lastRunFinishedAt,
		"last_changed":          w.lastChanged,
	}
}
