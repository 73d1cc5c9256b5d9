// Package relay forwards the backend link's streams to dashboard widgets and
// routes widget commands back to the backend.
package relay

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"go-robot-dashboard/internal/infrastructure/hub"
	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/realtime"
)

// Source is the part of realtime.Client the relay consumes.
type Source interface {
	Status() *realtime.Subscription[realtime.ConnectionStatus]
	IsConnected() bool
	StreamFor(channel string) *realtime.Stream
	UnhandledEvents() (*realtime.CatchAll, error)
	Commands() *realtime.Commands
}

// Sink is where relayed events go; *hub.Hub satisfies it.
type Sink interface {
	Publish(ctx context.Context, event *hub.Event) error
	SendToConnection(ctx context.Context, connID string, event *hub.Event) error
}

type Relay struct {
	source   Source
	sink     Sink
	channels []string
	logger   logger.Logger

	mu         sync.RWMutex
	lastStatus realtime.ConnectionStatus
}

func New(source Source, sink Sink, channels []string, log logger.Logger) *Relay {
	return &Relay{
		source:     source,
		sink:       sink,
		channels:   append([]string(nil), channels...),
		logger:     log.WithField("component", "relay"),
		lastStatus: realtime.StatusDisconnected,
	}
}

// Run subscribes to the status stream, every configured channel and the
// catch-all sink, and forwards deliveries until ctx is done or the source
// closes. Subscriptions are taken before any forwarding goroutine starts.
// The status stream has no replay, so the link's liveness at subscribe time
// is published first.
func (r *Relay) Run(ctx context.Context) error {
	var unhandled *realtime.Subscription[realtime.UnhandledEvent]
	sink, err := r.source.UnhandledEvents()
	switch {
	case errors.Is(err, realtime.ErrWildcardUnsupported):
		r.logger.Warn("Binding has no wildcard support, unhandled events are not relayed")
	case errors.Is(err, realtime.ErrClientClosed):
		r.logger.Info("Client already closed, nothing to relay")
		return nil
	case err != nil:
		return err
	default:
		unhandled = sink.Subscribe()
	}

	eg, ctx := errgroup.WithContext(ctx)

	status := r.source.Status()
	current := realtime.StatusDisconnected
	if r.source.IsConnected() {
		current = realtime.StatusConnected
	}
	r.updateStatus(ctx, current)
	eg.Go(func() error {
		forward(ctx, status, func(s realtime.ConnectionStatus) {
			r.updateStatus(ctx, s)
		})
		return nil
	})

	for _, channel := range r.channels {
		channel := channel
		sub := r.source.StreamFor(channel).Subscribe()
		eg.Go(func() error {
			forward(ctx, sub, func(p realtime.Payload) {
				r.publish(ctx, channel, p)
			})
			return nil
		})
	}

	if unhandled != nil {
		eg.Go(func() error {
			forward(ctx, unhandled, func(ev realtime.UnhandledEvent) {
				r.publish(ctx, hub.ChannelUnhandled, ev)
			})
			return nil
		})
	}

	r.logger.Infof("Relaying %d channels", len(r.channels))
	return eg.Wait()
}

// LastStatus is the most recent connection status seen on the link.
func (r *Relay) LastStatus() realtime.ConnectionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastStatus
}

func (r *Relay) updateStatus(ctx context.Context, s realtime.ConnectionStatus) {
	r.mu.Lock()
	r.lastStatus = s
	r.mu.Unlock()
	r.publish(ctx, hub.ChannelConnectionStatus, map[string]any{"status": s})
}

func (r *Relay) publish(ctx context.Context, channel string, data any) {
	if err := r.sink.Publish(ctx, hub.NewEvent(channel, data)); err != nil && ctx.Err() == nil {
		r.logger.Warnf("Dropped %s event for widgets: %v", channel, err)
	}
}

// forward drains sub into fn until the subscription ends or ctx is done.
func forward[T any](ctx context.Context, sub *realtime.Subscription[T], fn func(T)) {
	defer sub.Cancel()
	for {
		select {
		case v, ok := <-sub.C():
			if !ok {
				return
			}
			fn(v)
		case <-ctx.Done():
			return
		}
	}
}
