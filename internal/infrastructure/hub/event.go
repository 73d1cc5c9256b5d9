package hub

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reserved hub channels. Everything else is a backend channel name.
const (
	ChannelConnectionStatus = "connection_status"
	ChannelUnhandled        = "unhandled"
	ChannelKeepAlive        = "keepalive"
	ChannelConnected        = "connected"
	ChannelError            = "error"
)

// Event is what widgets receive.
type Event struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(channel string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Channel:   channel,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewConnectionID returns a unique id such as "ws-6f1c...".
func NewConnectionID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// ChannelFilter is the set of channels a widget subscribed to. An empty
// filter admits every channel.
type ChannelFilter map[string]struct{}

// ParseChannelFilter reads a comma separated list, e.g. the channels query
// parameter.
func ParseChannelFilter(raw string) ChannelFilter {
	f := ChannelFilter{}
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			f[name] = struct{}{}
		}
	}
	return f
}

// Allows reports whether events on channel should reach the widget. Keep-alive
// and hub notices always pass.
func (f ChannelFilter) Allows(channel string) bool {
	if len(f) == 0 {
		return true
	}
	switch channel {
	case ChannelKeepAlive, ChannelConnected, ChannelError:
		return true
	}
	_, ok := f[channel]
	return ok
}

func (f ChannelFilter) Channels() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
