package transport

import (
	"encoding/json"
	"fmt"
)

// Frame is the JSON envelope exchanged on the WebSocket link.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals payload and wraps it in a Frame for event.
func EncodeFrame(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, ErrEmptyEventName
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	return json.Marshal(Frame{Event: event, Data: data})
}

// DecodeFrame splits raw bytes into the event name and its payload decoded
// into plain Go values. A frame without data yields a nil payload.
func DecodeFrame(raw []byte) (string, any, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if frame.Event == "" {
		return "", nil, fmt.Errorf("%w: missing event name", ErrInvalidFrame)
	}
	if len(frame.Data) == 0 {
		return frame.Event, nil, nil
	}

	var payload any
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return frame.Event, payload, nil
}
