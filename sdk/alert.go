package sdk

import "sync"

// AlertGate lets only one connectivity alert be shown at a time.
// Trigger returns true for the first failure; later failures are swallowed
// until the user acknowledges the alert.
type AlertGate struct {
	mu    sync.Mutex
	shown bool
}

// Trigger reports whether an alert should be shown for err
func (g *AlertGate) Trigger(err *TransportError) bool {
	if err == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shown {
		return false
	}
	g.shown = true
	return true
}

// Acknowledge re-arms the gate after the alert was dismissed
func (g *AlertGate) Acknowledge() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shown = false
}

// Showing reports whether an alert is currently shown
func (g *AlertGate) Showing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shown
}

// AlertText returns the title and body for a connectivity alert
func AlertText(err *TransportError) (title, body string) {
	if err != nil && err.Timeout {
		return "Timeout", "The server took too long to respond. Please try again."
	}
	return "Connection problem", "Cannot connect to the server. Check your internet connection (or that the server is running)."
}
