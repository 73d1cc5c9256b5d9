package transport

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Options is the reconnection policy and link tuning for one Binding.
type Options struct {
	Reconnection bool
	// ReconnectionAttempts bounds consecutive failed reconnection attempts.
	// Zero means unbounded.
	ReconnectionAttempts int
	ReconnectionDelay    time.Duration
	ConnectTimeout       time.Duration

	Header         http.Header
	SendBufferSize int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
}

type Option func(*Options)

func DefaultOptions() Options {
	return Options{
		Reconnection:         true,
		ReconnectionAttempts: 0,
		ReconnectionDelay:    1000 * time.Millisecond,
		ConnectTimeout:       20000 * time.Millisecond,
		SendBufferSize:       256,
		WriteTimeout:         10 * time.Second,
		PingInterval:         54 * time.Second,
		PongWait:             60 * time.Second,
	}
}

// NewOptions applies opts on top of DefaultOptions.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithReconnection(enabled bool) Option {
	return func(o *Options) {
		o.Reconnection = enabled
	}
}

func WithReconnectionAttempts(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.ReconnectionAttempts = n
		}
	}
}

func WithReconnectionDelay(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ReconnectionDelay = d
		}
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ConnectTimeout = d
		}
	}
}

func WithHeader(h http.Header) Option {
	return func(o *Options) {
		o.Header = h.Clone()
	}
}

func WithSendBufferSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.SendBufferSize = size
		}
	}
}

// WithKeepAlive sets the ping period and the read deadline refreshed by pongs.
// pongWait must exceed pingInterval or the link will time out between pings.
func WithKeepAlive(pingInterval, pongWait time.Duration) Option {
	return func(o *Options) {
		if pingInterval > 0 && pongWait > pingInterval {
			o.PingInterval = pingInterval
			o.PongWait = pongWait
		}
	}
}

// normalized fills zero fields left by callers that built Options by hand.
func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.ReconnectionDelay <= 0 {
		o.ReconnectionDelay = d.ReconnectionDelay
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = d.SendBufferSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PingInterval <= 0 || o.PongWait <= o.PingInterval {
		o.PingInterval = d.PingInterval
		o.PongWait = d.PongWait
	}
	if o.ReconnectionAttempts < 0 {
		o.ReconnectionAttempts = 0
	}
	return o
}

// retrySchedule is the fixed-delay schedule between connection attempts.
// It stops after ReconnectionAttempts consecutive failures when bounded.
func (o Options) retrySchedule() backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(o.ReconnectionDelay)
	if o.ReconnectionAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(o.ReconnectionAttempts))
	}
	return b
}
