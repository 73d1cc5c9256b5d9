package relay

import (
	"context"
	"errors"
	"fmt"

	"go-robot-dashboard/internal/infrastructure/hub"
	"go-robot-dashboard/internal/realtime"
)

// ErrUnknownCommand is returned for widget frames on a channel the backend
// does not accept.
var ErrUnknownCommand = errors.New("unknown command channel")

// Dispatch sends payload on one of the outbound backend channels.
func (r *Relay) Dispatch(channel string, payload any) error {
	commands := r.source.Commands()
	switch channel {
	case realtime.ChannelMessage:
		commands.SendMessage(payload)
	case realtime.ChannelSave:
		commands.SaveTable(payload)
	case realtime.ChannelLoad:
		commands.LoadTable(payload)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, channel)
	}
	return nil
}

// HandleWidgetFrame is the hub.InboundHandler for widget websockets. Frames
// on unknown channels are answered with an error event to the sender only.
func (r *Relay) HandleWidgetFrame(ctx context.Context, connID, event string, payload any) {
	err := r.Dispatch(event, payload)
	if err == nil {
		r.logger.Debugf("Widget %s sent %s", connID, event)
		return
	}

	r.logger.Warnf("Widget %s: %v", connID, err)
	reply := hub.NewEvent(hub.ChannelError, map[string]any{
		"error": err.Error(),
		"event": event,
	})
	if err := r.sink.SendToConnection(ctx, connID, reply); err != nil {
		r.logger.Errorf("Failed to answer widget %s: %v", connID, err)
	}
}
