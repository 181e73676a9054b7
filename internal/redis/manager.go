package redis

import (
	"errors"
	"fmt"
	"sync"

	"github.com/redis/rueidis"
	"github.com/robalyx/presencewatch/internal/setup/config"
	"go.uber.org/zap"
)

// WorkerStatusDBIndex holds tracker heartbeats, kept apart from anything
// else sharing the Redis instance.
const WorkerStatusDBIndex = 4

// ErrRedisDisabled is returned when no Redis host is configured.
var ErrRedisDisabled = errors.New("redis is not configured")

// Manager hands out one rueidis client per database index.
// Clients are created on first use and reused afterwards.
type Manager struct {
	clients map[int]rueidis.Client
	config  *config.Redis
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewManager creates a manager without opening any connection.
func NewManager(cfg *config.Redis, logger *zap.Logger) *Manager {
	return &Manager{
		clients: make(map[int]rueidis.Client),
		config:  cfg,
		logger:  logger.Named("redis"),
	}
}

// Enabled reports whether a Redis host has been configured.
func (m *Manager) Enabled() bool {
	return m.config != nil && m.config.Host != ""
}

// GetClient returns the client for dbIndex, connecting if needed.
func (m *Manager) GetClient(dbIndex int) (rueidis.Client, error) {
	if !m.Enabled() {
		return nil, ErrRedisDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[dbIndex]; ok {
		return client, nil
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)},
		Username:     m.config.Username,
		Password:     m.config.Password,
		SelectDB:     dbIndex,
		ClientName:   "presencewatch",
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client for DB %d: %w", dbIndex, err)
	}

	m.clients[dbIndex] = client
	m.logger.Info("Created Redis client", zap.Int("dbIndex", dbIndex))

	return client, nil
}

// Close shuts down every client that was opened.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for dbIndex, client := range m.clients {
		client.Close()
		delete(m.clients, dbIndex)
		m.logger.Info("Closed Redis client", zap.Int("dbIndex", dbIndex))
	}
}
