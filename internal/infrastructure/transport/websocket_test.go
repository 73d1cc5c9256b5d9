package transport

import (
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

const waitFor = 2 * time.Second

// backendServer is a minimal robot backend: it pushes the configured frames
// on every new connection and records frames it receives.
type backendServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader
	push     [][]byte

	mu       sync.Mutex
	conns    []*websocket.Conn
	received chan []byte
}

func newBackendServer(t *testing.T, push ...[]byte) *backendServer {
	s := &backendServer{
		t:        t,
		push:     push,
		received: make(chan []byte, 16),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *backendServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *backendServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for _, raw := range s.push {
		_ = conn.WriteMessage(websocket.TextMessage, raw)
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.received <- data
	}
}

// dropAll closes every server-side connection without a close frame.
func (s *backendServer) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func testOptions() Options {
	return NewOptions(
		WithReconnectionDelay(20*time.Millisecond),
		WithConnectTimeout(time.Second),
	)
}

func mustFrame(t *testing.T, event string, payload any) []byte {
	raw, err := EncodeFrame(event, payload)
	require.NoError(t, err)
	return raw
}

func TestWebSocketBinding_DeliversNamedAndWildcardEvents(t *testing.T) {
	server := newBackendServer(t, mustFrame(t, "BatteryLvl", map[string]any{"level": 73}))

	b := NewWebSocketBinding(logger.NewNopLogger())
	named := make(chan any, 1)
	wildcard := make(chan string, 1)
	connected := make(chan struct{}, 1)
	b.OnConnect(func() { connected <- struct{}{} })
	b.OnEvent("BatteryLvl", func(p any) { named <- p })
	b.OnAny(func(event string, _ any) { wildcard <- event })

	b.Connect(server.url(), testOptions())
	defer b.Disconnect()

	select {
	case <-connected:
	case <-time.After(waitFor):
		t.Fatal("no connect signal")
	}
	assert.True(t, b.Connected())

	select {
	case p := <-named:
		assert.Equal(t, map[string]any{"level": float64(73)}, p)
	case <-time.After(waitFor):
		t.Fatal("named handler not called")
	}
	select {
	case e := <-wildcard:
		assert.Equal(t, "BatteryLvl", e)
	case <-time.After(waitFor):
		t.Fatal("wildcard handler not called")
	}
}

func TestWebSocketBinding_SendWritesFrame(t *testing.T) {
	server := newBackendServer(t)
	b := NewWebSocketBinding(logger.NewNopLogger())

	connected := make(chan struct{}, 1)
	b.OnConnect(func() { connected <- struct{}{} })

	assert.ErrorIs(t, b.Send("message", "early"), ErrNotConnected)

	b.Connect(server.url(), testOptions())
	defer b.Disconnect()
	<-connected

	require.NoError(t, b.Send("save", map[string]any{"rows": 2}))

	select {
	case raw := <-server.received:
		event, payload, err := DecodeFrame(raw)
		require.NoError(t, err)
		assert.Equal(t, "save", event)
		assert.Equal(t, map[string]any{"rows": float64(2)}, payload)
	case <-time.After(waitFor):
		t.Fatal("server did not receive frame")
	}
}

func TestWebSocketBinding_ReconnectsAfterDrop(t *testing.T) {
	server := newBackendServer(t)
	b := NewWebSocketBinding(logger.NewNopLogger())

	signals := make(chan string, 8)
	b.OnConnect(func() { signals <- "connect" })
	b.OnDisconnect(func(string) { signals <- "disconnect" })

	b.Connect(server.url(), testOptions())
	defer b.Disconnect()

	expect := func(want string) {
		t.Helper()
		select {
		case got := <-signals:
			require.Equal(t, want, got)
		case <-time.After(waitFor):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	expect("connect")
	server.dropAll()
	expect("disconnect")
	expect("connect")
}

func TestWebSocketBinding_ConnectErrorsStopAfterAttempts(t *testing.T) {
	server := newBackendServer(t)
	address := server.url()
	server.srv.Close()

	b := NewWebSocketBinding(logger.NewNopLogger())
	var mu sync.Mutex
	errorsSeen := 0
	b.OnConnectError(func(error) {
		mu.Lock()
		errorsSeen++
		mu.Unlock()
	})

	opts := testOptions()
	opts.ReconnectionAttempts = 2
	b.Connect(address, opts)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return errorsSeen == 3
	}, waitFor, 10*time.Millisecond)

	// first attempt plus two retries, then the loop gives up
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 3, errorsSeen)
	mu.Unlock()
	assert.False(t, b.Connected())
}

func TestWebSocketBinding_DisconnectSuppressesReconnect(t *testing.T) {
	server := newBackendServer(t)
	b := NewWebSocketBinding(logger.NewNopLogger())

	signals := make(chan string, 8)
	b.OnConnect(func() { signals <- "connect" })
	b.OnDisconnect(func(reason string) { signals <- reason })

	b.Connect(server.url(), testOptions())
	require.Equal(t, "connect", <-signals)

	b.Disconnect()
	select {
	case reason := <-signals:
		assert.Equal(t, ReasonClientDisconnect, reason)
	case <-time.After(waitFor):
		t.Fatal("no disconnect signal")
	}

	select {
	case s := <-signals:
		t.Fatalf("unexpected signal after Disconnect: %s", s)
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, b.Connected())

	b.Reconnect()
	defer b.Disconnect()
	select {
	case s := <-signals:
		assert.Equal(t, "connect", s)
	case <-time.After(waitFor):
		t.Fatal("Reconnect did not connect")
	}
}

func TestDecodeFrame(t *testing.T) {
	event, payload, err := DecodeFrame([]byte(`{"event":"heartbeat"}`))
	require.NoError(t, err)
	assert.Equal(t, "heartbeat", event)
	assert.Nil(t, payload)

	_, _, err = DecodeFrame([]byte(`{"data":1}`))
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, _, err = DecodeFrame([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = EncodeFrame("", 1)
	assert.ErrorIs(t, err, ErrEmptyEventName)
}
