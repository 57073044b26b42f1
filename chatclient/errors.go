package chatclient

import "errors"

var (
	// ErrNotConnected is returned when sending on a client that has not
	// joined or has already been closed.
	ErrNotConnected = errors.New("chatclient: not connected")

	// ErrHandshake is returned by Dial when the server does not answer the
	// join with an Ack or Error in time, or answers with something else.
	ErrHandshake = errors.New("chatclient: join handshake failed")
)

// RejectedError is returned by Dial when the server answers the join with an
// Error frame.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "chatclient: join rejected: " + e.Reason
}
