package realtime

import (
	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/transport"
)

// ConnectionStatus is the three-valued liveness of the backend link.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

const statusTopic = "status"

// StatusPublisher turns the binding's lifecycle callbacks into a broadcast of
// ConnectionStatus values: one value per signal, in signal order, with no
// deduplication and no initial value for new subscribers.
type StatusPublisher struct {
	b       *broadcaster
	logger  logger.Logger
	metrics *Metrics
}

func NewStatusPublisher(binding transport.Binding, buffer int, metrics *Metrics, log logger.Logger) *StatusPublisher {
	p := &StatusPublisher{
		b:       newBroadcaster(buffer),
		logger:  log.WithField("component", "status"),
		metrics: metrics,
	}

	binding.OnConnect(func() {
		p.publish(StatusConnected)
	})
	binding.OnDisconnect(func(reason string) {
		p.logger.Infof("Link lost: %s", reason)
		p.publish(StatusDisconnected)
	})
	binding.OnConnectError(func(err error) {
		p.logger.Warnf("Link connect error: %v", err)
		p.publish(StatusError)
	})

	return p
}

// Subscribe attaches a new subscriber. It sees only transitions that happen
// after this call.
func (p *StatusPublisher) Subscribe() *Subscription[ConnectionStatus] {
	return newSubscription[ConnectionStatus](p.b, statusTopic)
}

func (p *StatusPublisher) publish(s ConnectionStatus) {
	p.logger.Infof("Connection status: %s", s)
	p.metrics.status(s)
	p.b.publish(statusTopic, s)
}

func (p *StatusPublisher) close() {
	p.b.close()
}
