// Package realtime is the dashboard's link to the robot backend. A Client
// owns one auto-reconnecting transport binding, publishes its connection
// status and demultiplexes inbound events into per-channel streams.
package realtime

import (
	"sync"

	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/transport"
)

type Config struct {
	Address string
	Policy  transport.Options
	// CatchAll selects what the catch-all sink receives. Empty means CatchAllEvery.
	CatchAll CatchAllMode
	// SubscriberBuffer sizes the hand-off channel behind each subscription; zero uses DefaultSubscriberBuffer.
	SubscriberBuffer int
}

// Client is the connection lifecycle and event-multiplexing facade handed to
// dashboard widgets.
type Client struct {
	binding  transport.Binding
	manager  *Manager
	status   *StatusPublisher
	demux    *Demultiplexer
	commands *Commands
	logger   logger.Logger
	metrics  *Metrics
	config   Config

	catchAllOnce sync.Once
	catchAll     *CatchAll
	catchAllErr  error

	closeOnce sync.Once
}

// New wires the status publisher, demultiplexer and command facade onto
// binding and opens the connection. metrics may be nil.
func New(binding transport.Binding, cfg Config, metrics *Metrics, log logger.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}
	mode, err := ParseCatchAllMode(string(cfg.CatchAll))
	if err != nil {
		return nil, err
	}
	cfg.CatchAll = mode

	log = log.WithField("backend", cfg.Address)
	c := &Client{
		binding:  binding,
		manager:  NewManager(binding, log),
		status:   NewStatusPublisher(binding, cfg.SubscriberBuffer, metrics, log),
		demux:    NewDemultiplexer(binding, cfg.SubscriberBuffer, metrics, log),
		commands: NewCommands(binding, metrics, log),
		logger:   log.WithField("component", "client"),
		metrics:  metrics,
		config:   cfg,
	}

	c.manager.Open(cfg.Address, cfg.Policy)
	return c, nil
}

// Status subscribes to connection status transitions.
func (c *Client) Status() *Subscription[ConnectionStatus] {
	return c.status.Subscribe()
}

func (c *Client) StreamFor(channel string) *Stream {
	return c.demux.StreamFor(channel)
}

// Channels lists the channel names that have a listener on the link.
func (c *Client) Channels() []string {
	return c.demux.Channels()
}

// UnhandledEvents returns the catch-all sink, creating it on first call.
// It fails with ErrWildcardUnsupported when the binding has no OnAny.
func (c *Client) UnhandledEvents() (*CatchAll, error) {
	c.catchAllOnce.Do(func() {
		c.catchAll, c.catchAllErr = NewCatchAll(
			c.binding,
			c.config.CatchAll,
			c.demux.Handles,
			c.config.SubscriberBuffer,
			c.metrics,
			c.logger,
		)
		if c.catchAllErr != nil {
			c.logger.Errorf("Catch-all sink unavailable: %v", c.catchAllErr)
		}
	})
	return c.catchAll, c.catchAllErr
}

func (c *Client) Commands() *Commands {
	return c.commands
}

func (c *Client) SendMessage(payload any) { c.commands.SendMessage(payload) }
func (c *Client) SaveTable(payload any)   { c.commands.SaveTable(payload) }
func (c *Client) LoadTable(payload any)   { c.commands.LoadTable(payload) }

func (c *Client) Disconnect()       { c.manager.Disconnect() }
func (c *Client) Reconnect()        { c.manager.Reconnect() }
func (c *Client) IsConnected() bool { return c.manager.IsConnected() }
func (c *Client) Address() string   { return c.manager.Address() }

// Close disconnects the link and ends every subscription. Streams cannot be
// used again afterwards.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.manager.Disconnect()
		c.status.close()
		c.demux.close()
		// the catch-all may still be created lazily; make sure it is born closed
		c.catchAllOnce.Do(func() { c.catchAllErr = ErrClientClosed })
		if c.catchAll != nil {
			c.catchAll.close()
		}
		c.logger.Info("Client closed")
	})
}

func (c *Client) ReceiveSessionAccess() *Stream { return c.StreamFor(ChannelSessionAccess) }
func (c *Client) ReceiveHeartbeat() *Stream     { return c.StreamFor(ChannelHeartbeat) }
func (c *Client) ReceiveHeartbeatDisconnect() *Stream {
	return c.StreamFor(ChannelHeartbeatDisconnect)
}
func (c *Client) ReceiveCurrentSerialConnectionState() *Stream {
	return c.StreamFor(ChannelCurrentSerialConnectionState)
}
func (c *Client) ReceiveMemoryUsage() *Stream     { return c.StreamFor(ChannelMemoryUsage) }
func (c *Client) ReceiveCPUUsage() *Stream        { return c.StreamFor(ChannelCPUUsage) }
func (c *Client) ReceiveResourceMonitor() *Stream { return c.StreamFor(ChannelResourceMonitor) }
func (c *Client) ReceiveBatteryLevel() *Stream    { return c.StreamFor(ChannelBatteryLevel) }
func (c *Client) ReceiveInstantConsumption() *Stream {
	return c.StreamFor(ChannelInstantConsumption)
}
func (c *Client) ReceiveEnableButton() *Stream  { return c.StreamFor(ChannelEnableButton) }
func (c *Client) ReceiveCamera() *Stream        { return c.StreamFor(ChannelCamera) }
func (c *Client) ReceiveLocation() *Stream      { return c.StreamFor(ChannelLocation) }
func (c *Client) ReceiveSemaphores() *Stream    { return c.StreamFor(ChannelSemaphores) }
func (c *Client) ReceiveCurrentSpeed() *Stream  { return c.StreamFor(ChannelCurrentSpeed) }
func (c *Client) ReceiveCurrentSteer() *Stream  { return c.StreamFor(ChannelCurrentSteer) }
func (c *Client) ReceiveWarningSignal() *Stream { return c.StreamFor(ChannelWarningSignal) }
func (c *Client) ReceiveStateChange() *Stream   { return c.StreamFor(ChannelStateChange) }
func (c *Client) ReceiveSerialConnectionState() *Stream {
	return c.StreamFor(ChannelSerialConnectionState)
}
func (c *Client) ReceiveSteerLimits() *Stream     { return c.StreamFor(ChannelSteeringLimits) }
func (c *Client) ReceiveCalibrationData() *Stream { return c.StreamFor(ChannelCalibration) }
func (c *Client) ReceiveConsoleLog() *Stream      { return c.StreamFor(ChannelConsoleLog) }
func (c *Client) ReceiveLoadTable() *Stream       { return c.StreamFor(ChannelLoadBack) }
