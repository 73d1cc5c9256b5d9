package realtime

import (
	"sort"
	"sync"

	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/transport"
)

// Payload is an inbound message body as decoded by the transport. It is
// passed through without validation.
type Payload = any

// Stream is the lazily bound, replay-less sequence of payloads for one
// channel name.
type Stream struct {
	name string
	b    *broadcaster
}

func (s *Stream) Name() string {
	return s.name
}

// Subscribe attaches a consumer. Payloads that arrived before the call are
// not replayed.
func (s *Stream) Subscribe() *Subscription[Payload] {
	return newSubscription[Payload](s.b, s.name)
}

// Demultiplexer routes inbound events to per-channel Streams.
//
// Each channel name gets exactly one listener on the binding, registered the
// first time StreamFor is called for it. Listeners are never removed, even
// when every subscriber has cancelled: the number of live listeners is
// bounded by the number of distinct names ever requested for the lifetime of
// the binding.
type Demultiplexer struct {
	binding transport.Binding
	b       *broadcaster
	logger  logger.Logger
	metrics *Metrics

	mu      sync.Mutex
	streams map[string]*Stream
}

func NewDemultiplexer(binding transport.Binding, buffer int, metrics *Metrics, log logger.Logger) *Demultiplexer {
	return &Demultiplexer{
		binding: binding,
		b:       newBroadcaster(buffer),
		logger:  log.WithField("component", "demux"),
		metrics: metrics,
		streams: make(map[string]*Stream),
	}
}

// StreamFor returns the Stream for name, registering its binding listener on
// first use. The registration happens whether or not the link is connected.
func (d *Demultiplexer) StreamFor(name string) *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.streams[name]; ok {
		return s
	}

	s := &Stream{name: name, b: d.b}
	d.binding.OnEvent(name, func(payload any) {
		d.metrics.received(name)
		d.b.publish(name, payload)
	})
	d.streams[name] = s

	d.logger.Debugf("Registered listener for %s", name)
	return s
}

// Handles reports whether a listener exists for name.
func (d *Demultiplexer) Handles(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.streams[name]
	return ok
}

// Channels returns the names with a registered listener, sorted.
func (d *Demultiplexer) Channels() []string {
	d.mu.Lock()
	names := make([]string, 0, len(d.streams))
	for name := range d.streams {
		names = append(names, name)
	}
	d.mu.Unlock()

	sort.Strings(names)
	return names
}

func (d *Demultiplexer) close() {
	d.b.close()
}
