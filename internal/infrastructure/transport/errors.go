package transport

import "errors"

var (
	ErrNotConnected   = errors.New("transport not connected")
	ErrSendQueueFull  = errors.New("transport send queue full")
	ErrInvalidFrame   = errors.New("invalid frame")
	ErrEmptyEventName = errors.New("event name cannot be empty")
)
