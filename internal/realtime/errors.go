package realtime

import "errors"

// Realtime errors
var (
	ErrNotConnected   = errors.New("realtime client is not connected")
	ErrClosed         = errors.New("realtime client closed")
	ErrConnClosed     = errors.New("connection closed")
	ErrNoToken        = errors.New("no token available for connection")
	ErrReceiptTimeout = errors.New("timed out waiting for receipt")
)
