package realtime

import (
	"sync"

	"github.com/cskr/pubsub"
)

// DefaultSubscriberBuffer is the capacity of the channel between the pubsub
// loop and a subscription's forwarder. Values a consumer has not read yet
// queue inside its Subscription without bound, so a lagging consumer costs
// memory but never stalls the link's event goroutine.
const DefaultSubscriberBuffer = 128

// broadcaster fans values published on a topic out to the subscribers present
// at publish time. Nothing is retained for later subscribers.
type broadcaster struct {
	ps *pubsub.PubSub

	mu     sync.RWMutex
	closed bool
}

func newBroadcaster(buffer int) *broadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &broadcaster{ps: pubsub.New(buffer)}
}

func (b *broadcaster) publish(topic string, v any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.ps.Pub(v, topic)
}

func (b *broadcaster) subscribe(topic string) chan any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		ch := make(chan any)
		close(ch)
		return ch
	}
	return b.ps.Sub(topic)
}

func (b *broadcaster) unsubscribe(ch chan any, topic string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.ps.Unsub(ch, topic)
}

// close ends every subscription; later publishes are dropped.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.ps.Shutdown()
}

// Subscription is one consumer's view of a stream. Values arrive on C in
// publish order; C is closed after Cancel or when the owning client closes.
type Subscription[T any] struct {
	c     chan T
	raw   chan any
	topic string
	b     *broadcaster

	done chan struct{}
	once sync.Once
}

func newSubscription[T any](b *broadcaster, topic string) *Subscription[T] {
	s := &Subscription[T]{
		c:     make(chan T),
		raw:   b.subscribe(topic),
		topic: topic,
		b:     b,
		done:  make(chan struct{}),
	}
	go s.forward()
	return s
}

// C returns the delivery channel.
func (s *Subscription[T]) C() <-chan T {
	return s.c
}

// Cancel detaches the subscriber. It is idempotent and safe to call while a
// value is being delivered; pending values are discarded.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.b.unsubscribe(s.raw, s.topic)
	})
}

// forward moves values from raw onto a local queue and feeds C from it, so
// the pubsub loop never waits on a slow consumer and a consumer may subscribe
// while it is behind. After Cancel the queue is dropped and raw is drained
// until the broadcaster closes it.
func (s *Subscription[T]) forward() {
	defer close(s.c)

	var queue []T
	done := s.done
	for {
		var (
			out  chan T
			next T
		)
		if len(queue) > 0 {
			out, next = s.c, queue[0]
		}

		select {
		case v, ok := <-s.raw:
			if !ok {
				return
			}
			if done == nil {
				continue
			}
			// nil payloads assert to the zero value, which is what we want for T = any
			t, _ := v.(T)
			queue = append(queue, t)

		case out <- next:
			var zero T
			queue[0] = zero
			queue = queue[1:]

		case <-done:
			done = nil
			queue = nil
		}
	}
}
