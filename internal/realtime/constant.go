package realtime

import (
	"time"

	"github.com/mbeoliero/nexochat/pkg/constant"
)

// State is the lifecycle state of a Connection
type State int32

const (
	StateIdle         State = iota // Never connected, or disconnected on purpose
	StateConnecting                // Dialing and waiting for CONNECTED
	StateConnected                 // Session up, desired subscriptions live
	StateDisconnected              // Session lost, waiting to reconnect
	StateClosed                    // Torn down for good
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Timeout constants
const (
	// WriteWait is time allowed to write a message to the peer
	WriteWait = 10 * time.Second

	// DisconnectWait bounds the graceful STOMP DISCONNECT handshake
	DisconnectWait = 2 * time.Second

	// WriteChannelSize is the number of queued outgoing websocket messages
	WriteChannelSize = 256
)

// Options holds the fixed connection parameters
type Options struct {
	ReconnectDelay    time.Duration
	HeartbeatIncoming time.Duration
	HeartbeatOutgoing time.Duration
}

// DefaultOptions returns the defaults used by the mobile client
func DefaultOptions() Options {
	return Options{
		ReconnectDelay:    constant.DefaultReconnectDelay,
		HeartbeatIncoming: constant.DefaultHeartbeatIncoming,
		HeartbeatOutgoing: constant.DefaultHeartbeatOutgoing,
	}
}
