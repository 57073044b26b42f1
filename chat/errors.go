package chat

import "errors"

var (
	// ErrDuplicateName is returned by Registry.Register when another joined
	// session already holds the display name.
	ErrDuplicateName = errors.New("chat: name already in use")

	// ErrInvalidName rejects empty display names and names longer than
	// protocol.MaxNameLength bytes.
	ErrInvalidName = errors.New("chat: invalid display name")

	// ErrSessionClosed is returned when sending to a session that has
	// terminated. It is benign: stop sending to that session.
	ErrSessionClosed = errors.New("chat: session closed")

	// ErrJoinTimeout closes connections that do not join in time.
	ErrJoinTimeout = errors.New("chat: join timeout")

	// ErrQueueFull closes a session whose outbound queue is saturated.
	ErrQueueFull = errors.New("chat: outbound queue full")

	// ErrProtocolViolation covers frames that are well formed but not
	// allowed in the session's current state.
	ErrProtocolViolation = errors.New("chat: protocol violation")

	// ErrSessionLeft records a graceful Leave.
	ErrSessionLeft = errors.New("chat: session left")

	// ErrServerShutdown is the close cause of sessions ended by Server.Stop.
	ErrServerShutdown = errors.New("chat: server shutting down")
)

// Reasons carried by Error frames.
const (
	ReasonNameInUse       = "name already in use"
	ReasonInvalidName     = "invalid name"
	ReasonJoinTimeout     = "join timeout"
	ReasonExpectedJoin    = "expected join"
	ReasonUnexpectedFrame = "unexpected frame"
	ReasonMalformedFrame  = "malformed frame"
)

// AckConnected is the text of the Ack sent to a session after it joins.
const AckConnected = "CONNECTED"
