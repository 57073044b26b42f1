package chatclient

import "time"

// ConnectionState represents the current state of the client's connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected; a dial or handshake failed
	Connecting                          // Dial and join handshake in progress
	Connected                           // Joined; frames can be sent
	Closed                              // Client has been closed and will not be used again
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ConnectionStateEvent is emitted when the connection state changes.
// It is passed to the handler set in Config.OnConnectionState.
type ConnectionStateEvent struct {
	State     ConnectionState // The new connection state
	Address   string          // The server address ("host:port")
	Timestamp time.Time       // When the state change occurred
	Error     error           // Non-nil if the state change was due to an error
}

// ConnectionStateHandler is called when the connection state changes. It runs
// on the goroutine that caused the change and must not block.
type ConnectionStateHandler func(event ConnectionStateEvent)
