package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// StatusReporter publishes a worker's heartbeat on a fixed interval.
// A nil *StatusReporter is valid and reports nothing, which is what the
// tracker gets when Redis is not configured. It can be started again after
// Stop, keeping its worker ID.
type StatusReporter struct {
	monitor  *Monitor
	status   Status
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
	running  bool
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewStatusReporter creates a reporter with a random worker ID.
func NewStatusReporter(client rueidis.Client, workerType string, logger *zap.Logger) *StatusReporter {
	return &StatusReporter{
		monitor: NewMonitor(client, logger),
		status: Status{
			WorkerID:   uuid.New().String(),
			WorkerType: workerType,
			IsHealthy:  true,
		},
		interval: HeartbeatInterval,
		logger:   logger.Named("status_reporter"),
	}
}

// Start reports once immediately and then every heartbeat interval until
// Stop is called or ctx ends.
func (r *StatusReporter) Start(ctx context.Context) {
	if r == nil {
		return
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	r.stopChan, r.done, r.running = stop, done, true
	r.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.report(ctx)

		for {
			select {
			case <-ticker.C:
				r.report(ctx)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
}

func (r *StatusReporter) report(ctx context.Context) {
	if err := r.monitor.ReportStatus(ctx, r.Snapshot()); err != nil {
		r.logger.Error("Failed to report status", zap.Error(err))
	}
}

// Stop ends reporting and removes the worker's key so it no longer shows up.
func (r *StatusReporter) Stop(ctx context.Context) {
	if r == nil {
		return
	}

	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}

	r.running = false
	close(r.stopChan)
	done := r.done
	r.mu.Unlock()

	<-done

	if err := r.monitor.RemoveStatus(ctx, r.status.WorkerType, r.status.WorkerID); err != nil {
		r.logger.Warn("Failed to remove status", zap.Error(err))
	}
}

// UpdateStatus sets the current task and progress percentage.
func (r *StatusReporter) UpdateStatus(task string, progress int) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.CurrentTask = task
	r.status.Progress = progress
}

// SetTracked records how many players the last cycle covered.
func (r *StatusReporter) SetTracked(count int) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.Tracked = count
}

// SetHealthy updates the health flag.
func (r *StatusReporter) SetHealthy(healthy bool) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.IsHealthy = healthy
}

// Snapshot returns a copy of the status as it would be reported now.
func (r *StatusReporter) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// GetWorkerID returns the unique worker ID.
func (r *StatusReporter) GetWorkerID() string {
	if r == nil {
		return ""
	}

	return r.status.WorkerID
}
