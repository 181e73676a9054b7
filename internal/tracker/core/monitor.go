package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// HeartbeatInterval is how often the tracker reports its status.
	HeartbeatInterval = 10 * time.Second

	// HeartbeatTTL is how long a reported status stays in Redis.
	HeartbeatTTL = 10 * time.Minute

	// StaleThreshold is how long before a worker is shown as offline.
	StaleThreshold = 1 * time.Minute

	keyPrefix = "worker:"
	scanCount = 100
)

// Status is a worker's last reported state.
type Status struct {
	WorkerID    string    `json:"workerId"`
	WorkerType  string    `json:"workerType"`
	LastSeen    time.Time `json:"lastSeen"`
	CurrentTask string    `json:"currentTask,omitempty"`
	Progress    int       `json:"progress"`
	Tracked     int       `json:"tracked"`
	IsHealthy   bool      `json:"isHealthy"`
}

// Stale reports whether the worker has missed heartbeats for too long.
func (s Status) Stale(now time.Time) bool {
	return now.Sub(s.LastSeen) > StaleThreshold
}

// Monitor writes and reads worker statuses in Redis.
type Monitor struct {
	client rueidis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewMonitor creates a new worker status monitor.
func NewMonitor(client rueidis.Client, logger *zap.Logger) *Monitor {
	return &Monitor{
		client: client,
		logger: logger.Named("monitor"),
		now:    time.Now,
	}
}

// StatusKey returns the Redis key holding a worker's status.
func StatusKey(workerType, workerID string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, workerType, workerID)
}

// ReportStatus stores a worker's status with a fresh LastSeen.
func (m *Monitor) ReportStatus(ctx context.Context, status Status) error {
	status.LastSeen = m.now()

	data, err := sonic.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	key := StatusKey(status.WorkerType, status.WorkerID)
	err = m.client.Do(ctx, m.client.B().Set().Key(key).Value(string(data)).Ex(HeartbeatTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to store status: %w", err)
	}

	return nil
}

// RemoveStatus deletes a worker's status, used on clean shutdown.
func (m *Monitor) RemoveStatus(ctx context.Context, workerType, workerID string) error {
	key := StatusKey(workerType, workerID)
	if err := m.client.Do(ctx, m.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to remove status: %w", err)
	}

	return nil
}

// GetAllStatuses returns every stored worker status, newest first.
// Entries that cannot be read are logged and skipped.
func (m *Monitor) GetAllStatuses(ctx context.Context) ([]Status, error) {
	var (
		keys   []string
		cursor uint64
	)

	for {
		entry, err := m.client.Do(ctx,
			m.client.B().Scan().Cursor(cursor).Match(keyPrefix+"*").Count(scanCount).Build(),
		).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker keys: %w", err)
		}

		keys = append(keys, entry.Elements...)

		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	statuses := make([]Status, 0, len(keys))

	for _, key := range keys {
		data, err := m.client.Do(ctx, m.client.B().Get().Key(key).Build()).AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}

			m.logger.Error("Failed to get worker status", zap.String("key", key), zap.Error(err))
			continue
		}

		var status Status
		if err := sonic.Unmarshal(data, &status); err != nil {
			m.logger.Error("Failed to unmarshal worker status", zap.String("key", key), zap.Error(err))
			continue
		}

		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].LastSeen.After(statuses[j].LastSeen)
	})

	return statuses, nil
}
