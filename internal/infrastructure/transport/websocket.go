package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"go-robot-dashboard/internal/infrastructure/logger"
)

// Disconnect reasons passed to OnDisconnect handlers.
const (
	ReasonClientDisconnect = "io client disconnect"
	ReasonServerDisconnect = "io server disconnect"
	ReasonTransportClose   = "transport close"
	ReasonTransportError   = "transport error"
)

// WebSocketBinding implements WildcardBinding over a gorilla/websocket client
// connection carrying JSON Frames.
type WebSocketBinding struct {
	logger logger.Logger

	// link state, guarded by mu
	mu       sync.Mutex
	address  string
	opts     Options
	conn     *websocket.Conn
	send     chan []byte
	cancel   context.CancelFunc
	loopDone chan struct{}

	connected atomic.Bool

	handlersMu     sync.RWMutex
	handlers       map[string][]EventHandler
	anyHandlers    []AnyHandler
	onConnect      []func()
	onDisconnect   []func(reason string)
	onConnectError []func(err error)
}

var _ WildcardBinding = (*WebSocketBinding)(nil)

func NewWebSocketBinding(log logger.Logger) *WebSocketBinding {
	return &WebSocketBinding{
		logger:   log.WithField("component", "transport"),
		handlers: make(map[string][]EventHandler),
	}
}

// Connect stores address and opts and starts the connection loop. It is a
// no-op while a loop is already running.
func (b *WebSocketBinding) Connect(address string, opts Options) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.logger.Warnf("Connect to %s ignored, link already active", address)
		return
	}

	b.address = address
	b.opts = opts.normalized()
	b.startLocked()
}

func (b *WebSocketBinding) Reconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		return
	}
	if b.address == "" {
		b.logger.Warn("Reconnect called before Connect")
		return
	}

	b.startLocked()
}

func (b *WebSocketBinding) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	prev := b.loopDone
	done := make(chan struct{})

	b.cancel = cancel
	b.loopDone = done

	go b.run(ctx, b.address, b.opts, prev, done)
}

// Disconnect stops the loop and closes the live socket, if any. It does not
// wait for the loop to exit so it is safe to call from inside a handler.
func (b *WebSocketBinding) Disconnect() {
	b.mu.Lock()
	cancel := b.cancel
	conn := b.conn
	writeTimeout := b.opts.WriteTimeout
	b.cancel = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout),
		)
		_ = conn.Close()
	}
	b.logger.Info("Link disconnected by client")
}

func (b *WebSocketBinding) Connected() bool {
	return b.connected.Load()
}

// Send queues one frame on the live connection's write pump. Frames sent
// while disconnected are dropped with ErrNotConnected.
func (b *WebSocketBinding) Send(event string, payload any) error {
	raw, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	queue := b.send
	b.mu.Unlock()

	if queue == nil {
		b.logger.Debugf("Dropping %s frame, not connected", event)
		return ErrNotConnected
	}

	select {
	case queue <- raw:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (b *WebSocketBinding) OnEvent(event string, handler EventHandler) {
	b.handlersMu.Lock()
	b.handlers[event] = append(b.handlers[event], handler)
	b.handlersMu.Unlock()
}

func (b *WebSocketBinding) OnAny(handler AnyHandler) {
	b.handlersMu.Lock()
	b.anyHandlers = append(b.anyHandlers, handler)
	b.handlersMu.Unlock()
}

func (b *WebSocketBinding) OnConnect(fn func()) {
	b.handlersMu.Lock()
	b.onConnect = append(b.onConnect, fn)
	b.handlersMu.Unlock()
}

func (b *WebSocketBinding) OnDisconnect(fn func(reason string)) {
	b.handlersMu.Lock()
	b.onDisconnect = append(b.onDisconnect, fn)
	b.handlersMu.Unlock()
}

func (b *WebSocketBinding) OnConnectError(fn func(err error)) {
	b.handlersMu.Lock()
	b.onConnectError = append(b.onConnectError, fn)
	b.handlersMu.Unlock()
}

// run is the connection loop. All callbacks for one Connect/Reconnect are
// raised from this goroutine.
func (b *WebSocketBinding) run(ctx context.Context, address string, opts Options, prev <-chan struct{}, done chan struct{}) {
	defer close(done)

	// let a previous loop emit its final disconnect before we connect again
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return
		}
	}

	schedule := backoff.WithContext(opts.retrySchedule(), ctx)
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.ConnectTimeout,
	}

	for {
		conn, _, err := dialer.DialContext(ctx, address, opts.Header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warnf("Connect to %s failed: %v", address, err)
			b.emitConnectError(err)
		} else {
			schedule.Reset()
			b.serve(ctx, conn, opts)
			if ctx.Err() != nil {
				return
			}
		}

		if !opts.Reconnection {
			b.clearLoop(done)
			return
		}

		wait := schedule.NextBackOff()
		if wait == backoff.Stop {
			if ctx.Err() == nil {
				b.logger.Errorf("Giving up on %s after %d reconnection attempts", address, opts.ReconnectionAttempts)
				b.clearLoop(done)
			}
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// clearLoop forgets a loop that ended on its own so Reconnect can start a new one.
func (b *WebSocketBinding) clearLoop(done chan struct{}) {
	b.mu.Lock()
	if b.loopDone == done && b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.mu.Unlock()
}

// serve runs one established connection until it drops.
func (b *WebSocketBinding) serve(ctx context.Context, conn *websocket.Conn, opts Options) {
	queue := make(chan []byte, opts.SendBufferSize)
	pumpCtx, stopPump := context.WithCancel(ctx)

	b.mu.Lock()
	b.conn = conn
	b.send = queue
	b.mu.Unlock()

	// Disconnect may have raced with the dial and missed this conn.
	if ctx.Err() != nil {
		b.mu.Lock()
		b.conn = nil
		b.send = nil
		b.mu.Unlock()
		stopPump()
		_ = conn.Close()
		return
	}

	b.connected.Store(true)
	b.logger.Infof("Connected to %s", conn.RemoteAddr())
	b.emitConnect()

	go b.writePump(pumpCtx, conn, queue, opts)
	reason := b.readLoop(ctx, conn, opts)

	stopPump()
	b.mu.Lock()
	b.conn = nil
	b.send = nil
	b.mu.Unlock()
	b.connected.Store(false)
	_ = conn.Close()

	b.logger.Infof("Disconnected: %s", reason)
	b.emitDisconnect(reason)
}

func (b *WebSocketBinding) readLoop(ctx context.Context, conn *websocket.Conn, opts Options) string {
	_ = conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return b.disconnectReason(ctx, err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(opts.PongWait))

		if messageType != websocket.TextMessage {
			b.logger.Debugf("Ignoring non-text message of length %d", len(data))
			continue
		}

		event, payload, err := DecodeFrame(data)
		if err != nil {
			b.logger.Warnf("Discarding frame: %v", err)
			continue
		}
		b.dispatch(event, payload)
	}
}

func (b *WebSocketBinding) disconnectReason(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return ReasonClientDisconnect
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return ReasonServerDisconnect
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return ReasonTransportClose
	}
	b.logger.Warnf("Read failed: %v", err)
	return ReasonTransportError
}

func (b *WebSocketBinding) writePump(ctx context.Context, conn *websocket.Conn, queue <-chan []byte, opts Options) {
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case raw := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				b.logger.Errorf("Failed to write frame: %v", err)
				// unblock the read loop so the connection is torn down
				_ = conn.Close()
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.logger.Errorf("Failed to send ping: %v", err)
				_ = conn.Close()
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Handlers are copied out of the lock so they may register more handlers.
func (b *WebSocketBinding) dispatch(event string, payload any) {
	b.handlersMu.RLock()
	named := append([]EventHandler(nil), b.handlers[event]...)
	wildcard := append([]AnyHandler(nil), b.anyHandlers...)
	b.handlersMu.RUnlock()

	b.logger.Debugf("Inbound %s (%d handlers)", event, len(named)+len(wildcard))

	for _, h := range named {
		h(payload)
	}
	for _, h := range wildcard {
		h(event, payload)
	}
}

func (b *WebSocketBinding) emitConnect() {
	b.handlersMu.RLock()
	fns := append([]func(){}, b.onConnect...)
	b.handlersMu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (b *WebSocketBinding) emitDisconnect(reason string) {
	b.handlersMu.RLock()
	fns := append([]func(string){}, b.onDisconnect...)
	b.handlersMu.RUnlock()
	for _, fn := range fns {
		fn(reason)
	}
}

func (b *WebSocketBinding) emitConnectError(err error) {
	b.handlersMu.RLock()
	fns := append([]func(error){}, b.onConnectError...)
	b.handlersMu.RUnlock()
	for _, fn := range fns {
		fn(err)
	}
}
