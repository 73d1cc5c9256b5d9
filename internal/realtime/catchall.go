package realtime

import (
	"fmt"

	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/transport"
)

// CatchAllMode selects which inbound events reach the catch-all sink.
type CatchAllMode string

const (
	// CatchAllEvery forwards every inbound event, whether or not its channel
	// also has a Stream. It is the default.
	CatchAllEvery CatchAllMode = "all"
	// CatchAllUnhandled forwards events on channels nobody requested a Stream for.
	CatchAllUnhandled CatchAllMode = "unhandled"
)

func ParseCatchAllMode(s string) (CatchAllMode, error) {
	switch CatchAllMode(s) {
	case "", CatchAllEvery:
		return CatchAllEvery, nil
	case CatchAllUnhandled:
		return CatchAllUnhandled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCatchAllMode, s)
	}
}

// UnhandledEvent is an inbound event tagged with its channel name.
type UnhandledEvent struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

const catchAllTopic = "any"

// CatchAll is the single stream of tagged inbound events.
type CatchAll struct {
	b       *broadcaster
	mode    CatchAllMode
	logger  logger.Logger
	metrics *Metrics
}

// NewCatchAll registers a wildcard handler on binding. handled reports
// whether a channel already has an explicit listener; it is consulted only
// in CatchAllUnhandled mode.
func NewCatchAll(
	binding transport.Binding,
	mode CatchAllMode,
	handled func(channel string) bool,
	buffer int,
	metrics *Metrics,
	log logger.Logger,
) (*CatchAll, error) {
	wildcard, ok := binding.(transport.WildcardBinding)
	if !ok {
		return nil, ErrWildcardUnsupported
	}
	mode, err := ParseCatchAllMode(string(mode))
	if err != nil {
		return nil, err
	}

	c := &CatchAll{
		b:       newBroadcaster(buffer),
		mode:    mode,
		logger:  log.WithField("component", "catch_all"),
		metrics: metrics,
	}

	wildcard.OnAny(func(channel string, payload any) {
		if c.mode == CatchAllUnhandled && handled(channel) {
			return
		}
		c.metrics.caught()
		c.b.publish(catchAllTopic, UnhandledEvent{Channel: channel, Data: payload})
	})

	return c, nil
}

func (c *CatchAll) Mode() CatchAllMode {
	return c.mode
}

func (c *CatchAll) Subscribe() *Subscription[UnhandledEvent] {
	return newSubscription[UnhandledEvent](c.b, catchAllTopic)
}

func (c *CatchAll) close() {
	c.b.close()
}
