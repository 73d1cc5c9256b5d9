package realtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/transport"
)

// fakeBinding is an in-memory WildcardBinding. Tests drive its lifecycle and
// inbound events synchronously, as the real binding's loop goroutine would.
type fakeBinding struct {
	mu             sync.Mutex
	connected      bool
	address        string
	opts           transport.Options
	connectCalls   int
	reconnectCalls int
	disconnects    int
	sendErr        error

	handlers       map[string][]transport.EventHandler
	registrations  map[string]int
	anyHandlers    []transport.AnyHandler
	onConnect      []func()
	onDisconnect   []func(string)
	onConnectError []func(error)

	sent []sentFrame
}

type sentFrame struct {
	event   string
	payload any
}

var _ transport.WildcardBinding = (*fakeBinding)(nil)

func newFakeBinding() *fakeBinding {
	return &fakeBinding{
		handlers:      make(map[string][]transport.EventHandler),
		registrations: make(map[string]int),
	}
}

func (f *fakeBinding) Connect(address string, opts transport.Options) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.address = address
	f.opts = opts
	f.connectCalls++
}

func (f *fakeBinding) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
}

func (f *fakeBinding) Reconnect() {
	f.mu.Lock()
	f.reconnectCalls++
	f.mu.Unlock()
}

// Send records the frame whatever the connection state; the link's own drop
// policy is out of the facade's hands.
func (f *fakeBinding) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentFrame{event: event, payload: payload})
	return f.sendErr
}

func (f *fakeBinding) OnEvent(event string, handler transport.EventHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], handler)
	f.registrations[event]++
}

func (f *fakeBinding) OnAny(handler transport.AnyHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anyHandlers = append(f.anyHandlers, handler)
}

func (f *fakeBinding) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeBinding) OnConnect(fn func()) {
	f.mu.Lock()
	f.onConnect = append(f.onConnect, fn)
	f.mu.Unlock()
}

func (f *fakeBinding) OnDisconnect(fn func(string)) {
	f.mu.Lock()
	f.onDisconnect = append(f.onDisconnect, fn)
	f.mu.Unlock()
}

func (f *fakeBinding) OnConnectError(fn func(error)) {
	f.mu.Lock()
	f.onConnectError = append(f.onConnectError, fn)
	f.mu.Unlock()
}

func (f *fakeBinding) simulateConnect() {
	f.mu.Lock()
	f.connected = true
	fns := append([]func(){}, f.onConnect...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeBinding) simulateDisconnect() {
	f.mu.Lock()
	f.connected = false
	fns := append([]func(string){}, f.onDisconnect...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(transport.ReasonTransportClose)
	}
}

func (f *fakeBinding) simulateConnectError() {
	f.mu.Lock()
	fns := append([]func(error){}, f.onConnectError...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(errors.New("dial tcp: connection refused"))
	}
}

func (f *fakeBinding) simulateEvent(event string, payload any) {
	f.mu.Lock()
	named := append([]transport.EventHandler(nil), f.handlers[event]...)
	wildcard := append([]transport.AnyHandler(nil), f.anyHandlers...)
	f.mu.Unlock()
	for _, h := range named {
		h(payload)
	}
	for _, h := range wildcard {
		h(event, payload)
	}
}

func (f *fakeBinding) registrationsFor(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registrations[event]
}

func (f *fakeBinding) lastSent() (sentFrame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentFrame{}, false
	}
	return f.sent[len(f.sent)-1], true
}

// plainBinding hides OnAny so only the Binding contract is visible.
type plainBinding struct {
	transport.Binding
}

const (
	deliveryTimeout = time.Second
	quietPeriod     = 50 * time.Millisecond
)

func receive[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return v
	case <-time.After(deliveryTimeout):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero
}

func expectNothing[T any](t *testing.T, sub *Subscription[T]) {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		if ok {
			t.Fatalf("unexpected delivery: %v", v)
		}
	case <-time.After(quietPeriod):
	}
}

func newTestClient(t *testing.T, binding transport.Binding) *Client {
	t.Helper()
	c, err := New(binding, Config{
		Address: "ws://robot.local:5005/ws",
		Policy:  transport.DefaultOptions(),
	}, nil, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}
