package realtime

import "errors"

var (
	// ErrWildcardUnsupported is returned when the catch-all sink is requested
	// over a binding that cannot deliver events by wildcard.
	ErrWildcardUnsupported = errors.New("transport binding has no any-event registration")
	ErrUnknownCatchAllMode = errors.New("unknown catch-all mode")
	ErrEmptyAddress        = errors.New("backend address cannot be empty")
	ErrClientClosed        = errors.New("client closed")
)
