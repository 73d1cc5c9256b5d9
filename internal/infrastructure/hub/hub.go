package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-robot-dashboard/internal/infrastructure/logger"
)

const (
	cleanupInterval = 30 * time.Second
	deliveryTimeout = time.Second
	requestTimeout  = 5 * time.Second
)

// Hub fans relayed events out to widget connections. Registration,
// unregistration and publishing are serialized through one run loop, so each
// connection sees events in publish order.
type Hub struct {
	connections   map[string]Connection
	connectionsMu sync.RWMutex

	running   bool
	runningMu sync.RWMutex

	logger logger.Logger

	register   chan Connection
	unregister chan string
	publish    chan *Event

	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string]Connection),
		logger:      logger.WithField("component", "hub"),
		register:    make(chan Connection, 100),
		unregister:  make(chan string, 100),
		publish:     make(chan *Event, 1000),
	}
}

// Start starts the run loop.
func (h *Hub) Start(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return ErrHubRunning
	}

	h.ctx, h.cancel = context.WithCancel(ctx)
	h.running = true

	go h.run(h.ctx)

	h.logger.Info("Hub started")
	return nil
}

// Stop ends the run loop and closes every connection.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if !h.running {
		return nil
	}

	h.cancel()

	h.connectionsMu.Lock()
	for _, conn := range h.connections {
		if err := conn.Close(); err != nil {
			h.logger.Errorf("Failed to close connection %s: %v", conn.ID(), err)
		}
	}
	h.connections = make(map[string]Connection)
	h.connectionsMu.Unlock()

	h.running = false
	h.logger.Info("Hub stopped")
	return nil
}

func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// done returns the current run loop's context, or nil when stopped.
func (h *Hub) done() <-chan struct{} {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	if !h.running {
		return nil
	}
	return h.ctx.Done()
}

func (h *Hub) RegisterConnection(conn Connection) error {
	done := h.done()
	if done == nil {
		return ErrHubNotRunning
	}

	select {
	case h.register <- conn:
		return nil
	case <-done:
		return ErrHubShuttingDown
	case <-time.After(requestTimeout):
		return fmt.Errorf("register %s: %w", conn.ID(), ErrTimeout)
	}
}

func (h *Hub) UnregisterConnection(connID string) error {
	done := h.done()
	if done == nil {
		return ErrHubNotRunning
	}

	select {
	case h.unregister <- connID:
		return nil
	case <-done:
		return ErrHubShuttingDown
	case <-time.After(requestTimeout):
		return fmt.Errorf("unregister %s: %w", connID, ErrTimeout)
	}
}

func (h *Hub) GetConnection(connID string) (Connection, bool) {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	conn, exists := h.connections[connID]
	return conn, exists
}

func (h *Hub) GetConnections() []Connection {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	connections := make([]Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		connections = append(connections, conn)
	}
	return connections
}

func (h *Hub) GetConnectionsByType(connType string) []Connection {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	var connections []Connection
	for _, conn := range h.connections {
		if conn.Type() == connType {
			connections = append(connections, conn)
		}
	}
	return connections
}

func (h *Hub) ConnectionCount() int {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()
	return len(h.connections)
}

// Publish queues event for every connection whose filter admits its channel.
func (h *Hub) Publish(ctx context.Context, event *Event) error {
	done := h.done()
	if done == nil {
		return ErrHubNotRunning
	}

	select {
	case h.publish <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return ErrHubShuttingDown
	case <-time.After(requestTimeout):
		return fmt.Errorf("publish %s: %w", event.Channel, ErrTimeout)
	}
}

// SendToConnection delivers event to one connection regardless of its filter.
func (h *Hub) SendToConnection(ctx context.Context, connID string, event *Event) error {
	conn, exists := h.GetConnection(connID)
	if !exists {
		return fmt.Errorf("%s: %w", connID, ErrConnectionNotFound)
	}

	if err := conn.Send(ctx, event); err != nil {
		h.logger.Errorf("Failed to send event to connection %s: %v", connID, err)
		_ = h.UnregisterConnection(connID)
		return err
	}

	return nil
}

func (h *Hub) run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case conn := <-h.register:
			h.handleRegister(conn)

		case connID := <-h.unregister:
			h.handleUnregister(connID)

		case event := <-h.publish:
			h.handlePublish(event)

		case <-ticker.C:
			h.cleanupClosedConnections()

		case <-ctx.Done():
			h.logger.Info("Hub run loop stopped")
			return
		}
	}
}

func (h *Hub) handleRegister(conn Connection) {
	h.connectionsMu.Lock()
	h.connections[conn.ID()] = conn
	h.connectionsMu.Unlock()

	h.logger.Infof("Connection %s registered (type: %s, channels: %v)", conn.ID(), conn.Type(), conn.Filter().Channels())

	go func() {
		<-conn.Context().Done()
		_ = h.UnregisterConnection(conn.ID())
	}()
}

func (h *Hub) handleUnregister(connID string) {
	h.connectionsMu.Lock()
	conn, exists := h.connections[connID]
	if exists {
		delete(h.connections, connID)
	}
	h.connectionsMu.Unlock()

	if exists {
		_ = conn.Close()
		h.logger.Infof("Connection %s unregistered", connID)
	}
}

// handlePublish runs on the loop goroutine; a connection that cannot take the
// event within deliveryTimeout is dropped.
func (h *Hub) handlePublish(event *Event) {
	delivered := 0
	for _, conn := range h.GetConnections() {
		if !conn.Filter().Allows(event.Channel) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := conn.Send(ctx, event)
		cancel()

		if err != nil {
			h.logger.Errorf("Failed to deliver %s to connection %s: %v", event.Channel, conn.ID(), err)
			h.handleUnregister(conn.ID())
			continue
		}
		delivered++
	}

	h.logger.Debugf("Published %s (%s) to %d connections", event.ID, event.Channel, delivered)
}

func (h *Hub) cleanupClosedConnections() {
	h.connectionsMu.Lock()
	defer h.connectionsMu.Unlock()

	for id, conn := range h.connections {
		if conn.IsClosed() {
			delete(h.connections, id)
			h.logger.Infof("Cleaned up closed connection %s", id)
		}
	}
}
