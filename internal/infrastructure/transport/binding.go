// Package transport holds the duplex link to the robot backend: the Binding
// contract the realtime layer depends on and a WebSocket implementation of it.
package transport

// EventHandler receives the decoded payload of one inbound event.
type EventHandler func(payload any)

// AnyHandler receives every inbound event together with its channel name.
type AnyHandler func(event string, payload any)

// Binding wraps a single duplex connection to one remote endpoint.
//
// Implementations raise every callback (lifecycle and events) from one
// goroutine per connection loop, in the order the underlying signals occur.
// Connectivity failures are reported through OnConnectError, never returned.
type Binding interface {
	// Connect starts asynchronous connection attempts and returns immediately.
	Connect(address string, opts Options)
	// Disconnect closes the link and stops automatic reconnection.
	Disconnect()
	// Reconnect restarts connection attempts with the last address and options.
	Reconnect()
	// Send hands one event to the link. It does not wait for the peer.
	Send(event string, payload any) error
	// OnEvent registers a handler for one inbound channel name.
	OnEvent(event string, handler EventHandler)
	Connected() bool

	OnConnect(fn func())
	OnDisconnect(fn func(reason string))
	OnConnectError(fn func(err error))
}

// WildcardBinding is a Binding that can also deliver every inbound event to a
// single handler regardless of its name.
type WildcardBinding interface {
	Binding
	OnAny(handler AnyHandler)
}
