// Package protocol implements the chat wire format: a one byte type tag, a
// four byte big-endian payload length and the payload itself. Every frame is
// self-contained; no state is carried from one frame to the next.
package protocol

import "fmt"

// Type is the tag byte that opens every frame.
type Type byte

const (
	TypeJoin     Type = 0x01 // client -> server, declares the display name
	TypeChat     Type = 0x02 // client -> server text, rewritten to ChatFrom before relay
	TypeLeave    Type = 0x03 // client -> server graceful departure, empty payload
	TypeChatFrom Type = 0x04 // server -> client relayed text
	TypePresence Type = 0x05 // server -> client membership change
	TypeError    Type = 0x06 // server -> client, sent before the server closes the connection
	TypeAck      Type = 0x07 // server -> client, join accepted
	TypeList     Type = 0x08 // client -> server roster request, empty payload
	TypeRoster   Type = 0x09 // server -> client roster reply
)

const (
	// HeaderSize is the length of the tag plus the length field.
	HeaderSize = 5

	// MaxNameLength is the longest display name in bytes; names travel behind a
	// one byte length inside ChatFrom, Presence and Roster payloads.
	MaxNameLength = 255

	// MaxRosterNames bounds the roster count field.
	MaxRosterNames = 1<<16 - 1

	// DefaultMaxPayload caps the declared payload length accepted by Decode.
	DefaultMaxPayload = 1 << 20
)

// String returns the frame type name.
func (t Type) String() string {
	switch t {
	case TypeJoin:
		return "Join"
	case TypeChat:
		return "Chat"
	case TypeLeave:
		return "Leave"
	case TypeChatFrom:
		return "ChatFrom"
	case TypePresence:
		return "Presence"
	case TypeError:
		return "Error"
	case TypeAck:
		return "Ack"
	case TypeList:
		return "List"
	case TypeRoster:
		return "Roster"
	default:
		return fmt.Sprintf("Type(0x%02x)", byte(t))
	}
}

// Known reports whether t is one of the defined tags.
func (t Type) Known() bool {
	return t >= TypeJoin && t <= TypeRoster
}

// Frame is one decoded protocol message. The concrete value is always one of
// the frame structs declared in this package.
type Frame interface {
	Type() Type
}

// Join declares the sender's display name. It must be the first frame on a
// connection.
type Join struct {
	Name string
}

// Chat carries one line of text.
type Chat struct {
	Text string
}

// Leave announces a graceful departure.
type Leave struct{}

// ChatFrom is a chat line relayed by the server together with its sender.
type ChatFrom struct {
	Sender string
	Text   string
}

// Presence tells clients that Name joined (Joined == true) or left.
type Presence struct {
	Name   string
	Joined bool
}

// Error explains why the server is about to close the connection.
type Error struct {
	Reason string
}

// Ack confirms a successful join.
type Ack struct {
	Text string
}

// List asks the server for the current roster.
type List struct{}

// Roster lists the display names of all joined sessions.
type Roster struct {
	Names []string
}

func (Join) Type() Type     { return TypeJoin }
func (Chat) Type() Type     { return TypeChat }
func (Leave) Type() Type    { return TypeLeave }
func (ChatFrom) Type() Type { return TypeChatFrom }
func (Presence) Type() Type { return TypePresence }
func (Error) Type() Type    { return TypeError }
func (Ack) Type() Type      { return TypeAck }
func (List) Type() Type     { return TypeList }
func (Roster) Type() Type   { return TypeRoster }
