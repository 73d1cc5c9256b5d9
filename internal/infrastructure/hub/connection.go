package hub

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gorilla/websocket"

	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/transport"
)

const (
	connectionQueueSize = 256
	enqueueTimeout      = 5 * time.Second
	keepAliveInterval   = 30 * time.Second
)

// SSEConnection implements Connection for Server-Sent Events. Events are
// queued by Send and written by Serve, which owns the response writer.
type SSEConnection struct {
	id     string
	writer http.ResponseWriter
	filter ChannelFilter

	ctx    context.Context
	cancel context.CancelFunc

	closed   bool
	closedMu sync.RWMutex

	send   chan *Event
	logger logger.Logger

	keepAlive time.Duration
}

// NewSSEConnection creates a new SSE connection bound to the request context.
func NewSSEConnection(
	ctx context.Context,
	id string,
	w http.ResponseWriter,
	filter ChannelFilter,
	logger logger.Logger,
) *SSEConnection {
	rctx, cancel := context.WithCancel(ctx)

	return &SSEConnection{
		id:        id,
		writer:    w,
		filter:    filter,
		ctx:       rctx,
		cancel:    cancel,
		send:      make(chan *Event, connectionQueueSize),
		logger:    logger.WithField("connection_id", id),
		keepAlive: keepAliveInterval,
	}
}

func (c *SSEConnection) ID() string {
	return c.id
}

func (c *SSEConnection) Type() string {
	return "sse"
}

func (c *SSEConnection) Filter() ChannelFilter {
	return c.filter
}

// Send queues event for the Serve loop.
func (c *SSEConnection) Send(ctx context.Context, event *Event) error {
	return enqueue(ctx, c.ctx, c.IsClosed(), c.send, event)
}

// Serve writes queued events and keep-alives until the connection closes or
// a write fails. It must run on the request goroutine.
func (c *SSEConnection) Serve() error {
	ticker := time.NewTicker(c.keepAlive)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case event := <-c.send:
			if err := c.write(event); err != nil {
				c.logger.Errorf("Failed to write event: %v", err)
				return err
			}

		case <-ticker.C:
			keepAlive := NewEvent(ChannelKeepAlive, map[string]any{
				"timestamp": time.Now().Unix(),
			})
			if err := c.write(keepAlive); err != nil {
				c.logger.Errorf("Failed to send keep-alive: %v", err)
				return err
			}

		case <-c.ctx.Done():
			return nil
		}
	}
}

func (c *SSEConnection) write(event *Event) error {
	err := sse.Encode(c.writer, sse.Event{
		Id:    event.ID,
		Event: event.Channel,
		Data:  *event,
	})
	if err != nil {
		return err
	}
	if flusher, ok := c.writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func (c *SSEConnection) Close() error {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.cancel()

	c.logger.Info("SSE connection closed")
	return nil
}

func (c *SSEConnection) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

func (c *SSEConnection) Context() context.Context {
	return c.ctx
}

// WebSocketConnection implements Connection for widget WebSockets. Frames
// written by the widget are decoded and passed to the inbound handler.
type WebSocketConnection struct {
	id     string
	conn   *websocket.Conn
	filter ChannelFilter

	ctx    context.Context
	cancel context.CancelFunc

	closed   bool
	closedMu sync.RWMutex

	logger  logger.Logger
	inbound InboundHandler

	send chan *Event

	writeTimeout time.Duration
	pongTimeout  time.Duration
	pingInterval time.Duration
}

// NewWebSocketConnection starts the read and write pumps for conn.
func NewWebSocketConnection(
	ctx context.Context,
	id string,
	conn *websocket.Conn,
	filter ChannelFilter,
	inbound InboundHandler,
	logger logger.Logger,
) *WebSocketConnection {
	cctx, cancel := context.WithCancel(ctx)

	wsConn := &WebSocketConnection{
		id:           id,
		conn:         conn,
		filter:       filter,
		ctx:          cctx,
		cancel:       cancel,
		logger:       logger.WithField("connection_id", id),
		inbound:      inbound,
		send:         make(chan *Event, connectionQueueSize),
		writeTimeout: 10 * time.Second,
		pongTimeout:  60 * time.Second,
		pingInterval: 54 * time.Second,
	}

	wsConn.setupWebSocket()

	go wsConn.writePump()
	go wsConn.readPump()

	return wsConn
}

func (c *WebSocketConnection) ID() string {
	return c.id
}

func (c *WebSocketConnection) Type() string {
	return "websocket"
}

func (c *WebSocketConnection) Filter() ChannelFilter {
	return c.filter
}

func (c *WebSocketConnection) Send(ctx context.Context, event *Event) error {
	return enqueue(ctx, c.ctx, c.IsClosed(), c.send, event)
}

// Close sends a close frame and tears the socket down. The pumps exit on
// their own.
func (c *WebSocketConnection) Close() error {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.cancel()

	// WriteControl may run concurrently with the write pump
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.writeTimeout),
	)
	_ = c.conn.Close()

	c.logger.Info("WebSocket connection closed")
	return nil
}

func (c *WebSocketConnection) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

func (c *WebSocketConnection) Context() context.Context {
	return c.ctx
}

func (c *WebSocketConnection) setupWebSocket() {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	})
}

func (c *WebSocketConnection) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Errorf("Failed to write event: %v", err)
				_ = c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Errorf("Failed to send ping: %v", err)
				_ = c.Close()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *WebSocketConnection) readPump() {
	defer func() {
		_ = c.Close()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) && !c.IsClosed() {
				c.logger.Errorf("WebSocket error: %v", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))

		switch messageType {
		case websocket.TextMessage:
			event, payload, err := transport.DecodeFrame(data)
			if err != nil {
				c.logger.Warnf("Rejected widget frame: %v", err)
				c.reply(NewEvent(ChannelError, map[string]any{"error": err.Error()}))
				continue
			}
			c.logger.Debugf("Widget frame on %s", event)
			if c.inbound != nil {
				c.inbound(c.ctx, c.id, event, payload)
			}

		case websocket.BinaryMessage:
			c.logger.Debugf("Ignoring binary message of length %d", len(data))
		}
	}
}

func (c *WebSocketConnection) reply(event *Event) {
	ctx, cancel := context.WithTimeout(c.ctx, enqueueTimeout)
	defer cancel()
	if err := c.Send(ctx, event); err != nil {
		c.logger.Errorf("Failed to send reply: %v", err)
	}
}

func enqueue(ctx, connCtx context.Context, closed bool, queue chan<- *Event, event *Event) error {
	if closed {
		return ErrConnectionClosed
	}

	timer := time.NewTimer(enqueueTimeout)
	defer timer.Stop()

	select {
	case queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-connCtx.Done():
		return ErrConnectionClosed
	case <-timer.C:
		return ErrTimeout
	}
}
