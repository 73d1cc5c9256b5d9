package hub

import "errors"

var (
	ErrHubRunning         = errors.New("hub is already running")
	ErrHubNotRunning      = errors.New("hub is not running")
	ErrHubShuttingDown    = errors.New("hub is shutting down")
	ErrTimeout            = errors.New("hub operation timed out")
	ErrConnectionClosed   = errors.New("connection is closed")
	ErrConnectionNotFound = errors.New("connection not found")
)
