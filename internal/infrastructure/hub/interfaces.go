package hub

import "context"

// Connection is one widget attached to the hub (SSE, WebSocket).
type Connection interface {
	ID() string
	Type() string
	// Filter reports which channels this widget asked for.
	Filter() ChannelFilter
	Send(ctx context.Context, event *Event) error
	Close() error
	IsClosed() bool
	Context() context.Context
}

// InboundHandler receives frames a widget writes on a bidirectional
// connection. It runs on the connection's read goroutine.
type InboundHandler func(ctx context.Context, connID, event string, payload any)
