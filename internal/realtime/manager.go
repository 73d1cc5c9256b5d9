package realtime

import (
	"sync"

	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/transport"
)

// Manager owns the single backend connection. Other components reach the
// link only through the binding primitives it was built with.
type Manager struct {
	binding transport.Binding
	logger  logger.Logger

	mu      sync.Mutex
	address string
	policy  transport.Options
}

func NewManager(binding transport.Binding, log logger.Logger) *Manager {
	return &Manager{
		binding: binding,
		logger:  log.WithField("component", "manager"),
	}
}

// Open starts connecting to address with policy. It never blocks and never
// fails; failures show up as StatusError on the status stream.
func (m *Manager) Open(address string, policy transport.Options) {
	m.mu.Lock()
	m.address = address
	m.policy = policy
	m.mu.Unlock()

	m.logger.Infof(
		"Opening link to %s (reconnection=%v attempts=%d delay=%s timeout=%s)",
		address,
		policy.Reconnection,
		policy.ReconnectionAttempts,
		policy.ReconnectionDelay,
		policy.ConnectTimeout,
	)
	m.binding.Connect(address, policy)
}

// Disconnect closes the link; automatic reconnection stays off until Reconnect.
func (m *Manager) Disconnect() {
	m.logger.Info("Disconnect requested")
	m.binding.Disconnect()
}

// Reconnect restarts connection attempts with the policy given to Open.
func (m *Manager) Reconnect() {
	m.logger.Info("Reconnect requested")
	m.binding.Reconnect()
}

func (m *Manager) IsConnected() bool {
	return m.binding.Connected()
}

func (m *Manager) Address() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address
}

func (m *Manager) Policy() transport.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}
