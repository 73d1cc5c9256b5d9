package hub

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-robot-dashboard/internal/infrastructure/logger"
)

const settle = 2 * time.Second

func TestHub_StartStop(t *testing.T) {
	hub := New(&mockLogger{})
	ctx := context.Background()

	require.NoError(t, hub.Start(ctx))
	assert.True(t, hub.IsRunning())
	assert.ErrorIs(t, hub.Start(ctx), ErrHubRunning)

	require.NoError(t, hub.Stop(ctx))
	assert.False(t, hub.IsRunning())

	assert.ErrorIs(t, hub.Publish(ctx, NewEvent("x", 1)), ErrHubNotRunning)
	assert.ErrorIs(t, hub.RegisterConnection(newMockConnection("late", nil)), ErrHubNotRunning)
}

func TestHub_ConnectionManagement(t *testing.T) {
	hub := New(&mockLogger{})
	ctx := context.Background()
	require.NoError(t, hub.Start(ctx))
	defer hub.Stop(ctx)

	assert.Zero(t, hub.ConnectionCount())

	conn := newMockConnection("test-conn-1", nil)
	require.NoError(t, hub.RegisterConnection(conn))
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, settle, 10*time.Millisecond)

	retrieved, exists := hub.GetConnection("test-conn-1")
	require.True(t, exists)
	assert.Equal(t, "test-conn-1", retrieved.ID())
	assert.Len(t, hub.GetConnectionsByType("mock"), 1)
	assert.Empty(t, hub.GetConnectionsByType("sse"))

	require.NoError(t, hub.UnregisterConnection("test-conn-1"))
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, settle, 10*time.Millisecond)
	assert.True(t, conn.IsClosed())
}

func TestHub_UnregistersWhenConnectionContextEnds(t *testing.T) {
	hub := New(&mockLogger{})
	ctx := context.Background()
	require.NoError(t, hub.Start(ctx))
	defer hub.Stop(ctx)

	conn := newMockConnection("short-lived", nil)
	require.NoError(t, hub.RegisterConnection(conn))
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, settle, 10*time.Millisecond)

	conn.cancel()
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, settle, 10*time.Millisecond)
}

func TestHub_PublishRoutesByFilter(t *testing.T) {
	hub := New(&mockLogger{})
	ctx := context.Background()
	require.NoError(t, hub.Start(ctx))
	defer hub.Stop(ctx)

	everything := newMockConnection("all", nil)
	battery := newMockConnection("battery", ParseChannelFilter("BatteryLvl"))
	speed := newMockConnection("speed", ParseChannelFilter("CurrentSpeed,Location"))

	for _, c := range []*mockConnection{everything, battery, speed} {
		require.NoError(t, hub.RegisterConnection(c))
	}
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 3 }, settle, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, NewEvent("BatteryLvl", map[string]any{"level": 73})))
	require.NoError(t, hub.Publish(ctx, NewEvent(ChannelKeepAlive, nil)))

	require.Eventually(t, func() bool { return len(everything.received()) == 2 }, settle, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(battery.received()) == 2 }, settle, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(speed.received()) == 1 }, settle, 10*time.Millisecond)

	assert.Equal(t, "BatteryLvl", battery.received()[0].Channel)
	assert.Equal(t, ChannelKeepAlive, speed.received()[0].Channel)
}

func TestHub_PublishPreservesOrder(t *testing.T) {
	hub := New(&mockLogger{})
	ctx := context.Background()
	require.NoError(t, hub.Start(ctx))
	defer hub.Stop(ctx)

	conn := newMockConnection("ordered", nil)
	require.NoError(t, hub.RegisterConnection(conn))
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, settle, 10*time.Millisecond)

	for i := 0; i < 50; i++ {
		require.NoError(t, hub.Publish(ctx, NewEvent("console_log", i)))
	}

	require.Eventually(t, func() bool { return len(conn.received()) == 50 }, settle, 10*time.Millisecond)
	for i, ev := range conn.received() {
		assert.Equal(t, i, ev.Data)
	}
}

func TestHub_DropsFailingConnection(t *testing.T) {
	hub := New(&mockLogger{})
	ctx := context.Background()
	require.NoError(t, hub.Start(ctx))
	defer hub.Stop(ctx)

	broken := newMockConnection("broken", nil)
	broken.sendErr = errors.New("pipe closed")
	require.NoError(t, hub.RegisterConnection(broken))
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, settle, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, NewEvent("Location", "here")))
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, settle, 10*time.Millisecond)
	assert.True(t, broken.IsClosed())
}

func TestHub_SendToConnection(t *testing.T) {
	hub := New(&mockLogger{})
	ctx := context.Background()
	require.NoError(t, hub.Start(ctx))
	defer hub.Stop(ctx)

	err := hub.SendToConnection(ctx, "nobody", NewEvent(ChannelError, nil))
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	// direct sends bypass the filter
	conn := newMockConnection("direct", ParseChannelFilter("BatteryLvl"))
	require.NoError(t, hub.RegisterConnection(conn))
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, settle, 10*time.Millisecond)

	require.NoError(t, hub.SendToConnection(ctx, "direct", NewEvent("ack", "ok")))
	assert.Len(t, conn.received(), 1)
}

func TestChannelFilter(t *testing.T) {
	f := ParseChannelFilter(" BatteryLvl, ,CurrentSpeed ")
	assert.Equal(t, []string{"BatteryLvl", "CurrentSpeed"}, f.Channels())
	assert.True(t, f.Allows("BatteryLvl"))
	assert.False(t, f.Allows("Location"))
	assert.True(t, f.Allows(ChannelKeepAlive))
	assert.True(t, f.Allows(ChannelError))

	empty := ParseChannelFilter("")
	assert.Empty(t, empty.Channels())
	assert.True(t, empty.Allows("anything"))
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(ChannelConnectionStatus, "connected")
	b := NewEvent(ChannelConnectionStatus, "connected")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, ChannelConnectionStatus, a.Channel)
	assert.False(t, a.Timestamp.IsZero())
	assert.True(t, strings.HasPrefix(NewConnectionID("sse"), "sse-"))
}

func TestSSEConnection_WritesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	conn := NewSSEConnection(context.Background(), "sse-1", rec, nil, &mockLogger{})

	served := make(chan error, 1)
	go func() { served <- conn.Serve() }()

	ev := NewEvent("BatteryLvl", map[string]any{"level": 73})
	require.NoError(t, conn.Send(context.Background(), ev))

	// wait until the queue drained before closing
	require.Eventually(t, func() bool { return len(conn.send) == 0 }, settle, 5*time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(settle):
		t.Fatal("Serve did not return")
	}

	body := rec.Body.String()
	assert.Contains(t, body, "id:"+ev.ID)
	assert.Contains(t, body, "event:BatteryLvl")
	assert.Contains(t, body, `"level":73`)

	assert.ErrorIs(t, conn.Send(context.Background(), ev), ErrConnectionClosed)
}

func TestWebSocketConnection_RoundTrip(t *testing.T) {
	type frame struct {
		connID, event string
		payload       any
	}
	inbound := make(chan frame, 1)
	accepted := make(chan *WebSocketConnection, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- NewWebSocketConnection(context.Background(), "ws-1", ws, nil,
			func(_ context.Context, connID, event string, payload any) {
				inbound <- frame{connID, event, payload}
			}, &mockLogger{})
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	conn := <-accepted
	defer conn.Close()

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"event":"save","data":{"rows":1}}`)))
	select {
	case f := <-inbound:
		assert.Equal(t, frame{"ws-1", "save", map[string]any{"rows": float64(1)}}, f)
	case <-time.After(settle):
		t.Fatal("inbound handler not called")
	}

	require.NoError(t, conn.Send(context.Background(), NewEvent("Location", "here")))
	var got Event
	require.NoError(t, client.SetReadDeadline(time.Now().Add(settle)))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "Location", got.Channel)
	assert.Equal(t, "here", got.Data)

	// malformed frames get an error event back
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`nope`)))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, ChannelError, got.Channel)
}

// Mock implementations for testing

type mockLogger struct{}

func (m *mockLogger) Debug(msg string)                              {}
func (m *mockLogger) Debugf(format string, args ...any)             {}
func (m *mockLogger) Info(msg string)                               {}
func (m *mockLogger) Infof(format string, args ...any)              {}
func (m *mockLogger) Warn(msg string)                               {}
func (m *mockLogger) Warnf(format string, args ...any)              {}
func (m *mockLogger) Error(msg string)                              {}
func (m *mockLogger) Errorf(format string, args ...any)             {}
func (m *mockLogger) Fatal(msg string)                              {}
func (m *mockLogger) Fatalf(format string, args ...any)             {}
func (m *mockLogger) WithField(key string, value any) logger.Logger { return m }
func (m *mockLogger) WithFields(fields logger.Fields) logger.Logger { return m }
func (m *mockLogger) WithContext(ctx context.Context) logger.Logger { return m }
func (m *mockLogger) SetLevel(level logger.Level)                   {}
func (m *mockLogger) SetOutput(output io.Writer)                    {}

type mockConnection struct {
	id      string
	filter  ChannelFilter
	ctx     context.Context
	cancel  context.CancelFunc
	sendErr error

	mu       sync.Mutex
	closed   bool
	messages []*Event
}

func newMockConnection(id string, filter ChannelFilter) *mockConnection {
	ctx, cancel := context.WithCancel(context.Background())
	return &mockConnection{id: id, filter: filter, ctx: ctx, cancel: cancel}
}

func (m *mockConnection) ID() string            { return m.id }
func (m *mockConnection) Type() string          { return "mock" }
func (m *mockConnection) Filter() ChannelFilter { return m.filter }
func (m *mockConnection) Send(ctx context.Context, event *Event) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, event)
	return nil
}
func (m *mockConnection) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
func (m *mockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
func (m *mockConnection) Context() context.Context { return m.ctx }

func (m *mockConnection) received() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Event(nil), m.messages...)
}
