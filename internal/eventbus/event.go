package eventbus

import "time"

// Event is one application event published to the bus, e.g. a notification
// job reaching a terminal state.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Listener is a function that handles an event.
type Listener func(Event)
