package realtime

import (
	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/transport"
)

// Command is the structured body the backend expects on the message channel.
type Command struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// Names understood by the backend's message handler.
const (
	CommandHeartbeat                       = "Heartbeat"
	CommandDrivingMode                     = "DrivingMode"
	CommandGetCurrentSerialConnectionState = "GetCurrentSerialConnectionState"
	CommandRequestSteerLimits              = "RequestSteerLimits"
)

// Commands is the outbound facade. Every method is fire-and-forget: success
// means the payload was handed to the binding. Binding errors are logged and
// counted, never returned.
type Commands struct {
	binding transport.Binding
	logger  logger.Logger
	metrics *Metrics
}

func NewCommands(binding transport.Binding, metrics *Metrics, log logger.Logger) *Commands {
	return &Commands{
		binding: binding,
		logger:  log.WithField("component", "commands"),
		metrics: metrics,
	}
}

func (c *Commands) SendMessage(payload any) {
	c.emit(ChannelMessage, payload)
}

func (c *Commands) SaveTable(payload any) {
	c.emit(ChannelSave, payload)
}

func (c *Commands) LoadTable(payload any) {
	c.emit(ChannelLoad, payload)
}

// Send writes cmd on the message channel.
func (c *Commands) Send(cmd Command) {
	c.SendMessage(cmd)
}

func (c *Commands) Heartbeat() {
	c.Send(Command{Name: CommandHeartbeat})
}

// SetDrivingMode asks the backend state machine to switch mode, e.g. "manual" or "auto".
func (c *Commands) SetDrivingMode(mode string) {
	c.Send(Command{Name: CommandDrivingMode, Value: mode})
}

// RequestSerialConnectionState makes the backend answer on
// current_serial_connection_state.
func (c *Commands) RequestSerialConnectionState() {
	c.Send(Command{Name: CommandGetCurrentSerialConnectionState})
}

// RequestSteerLimits makes the backend republish SteeringLimits.
func (c *Commands) RequestSteerLimits() {
	c.Send(Command{Name: CommandRequestSteerLimits, Value: true})
}

func (c *Commands) emit(channel string, payload any) {
	err := c.binding.Send(channel, payload)
	c.metrics.sent(channel, err)
	if err != nil {
		c.logger.Warnf("Send on %s not delivered to link: %v", channel, err)
		return
	}
	c.logger.Debugf("Sent on %s", channel)
}
