package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Encode serializes f into a complete frame: header followed by payload.
//
// Parameters:
//   - f: The frame to encode
//
// Returns:
//   - The encoded bytes
//   - An error wrapping ErrInvalidFrame if a name is longer than MaxNameLength,
//     text is not valid UTF-8, or f is not a frame declared in this package
func Encode(f Frame) ([]byte, error) {
	var payload []byte
	var err error

	switch v := f.(type) {
	case Join:
		payload, err = textPayload(TypeJoin, v.Name)
	case *Join:
		return Encode(*v)
	case Chat:
		payload, err = textPayload(TypeChat, v.Text)
	case *Chat:
		return Encode(*v)
	case Leave, *Leave, List, *List:
	case ChatFrom:
		payload, err = chatFromPayload(v)
	case *ChatFrom:
		return Encode(*v)
	case Presence:
		payload, err = presencePayload(v)
	case *Presence:
		return Encode(*v)
	case Error:
		payload, err = textPayload(TypeError, v.Reason)
	case *Error:
		return Encode(*v)
	case Ack:
		payload, err = textPayload(TypeAck, v.Text)
	case *Ack:
		return Encode(*v)
	case Roster:
		payload, err = rosterPayload(v)
	case *Roster:
		return Encode(*v)
	default:
		return nil, fmt.Errorf("%w: unsupported frame %T", ErrInvalidFrame, f)
	}
	if err != nil {
		return nil, err
	}

	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = byte(f.Type())
	binary.BigEndian.PutUint32(buf[1:HeaderSize], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// MustEncode is Encode for frames built from constants. It panics on error.
func MustEncode(f Frame) []byte {
	b, err := Encode(f)
	if err != nil {
		panic(err)
	}

	return b
}

// Decode parses the first frame in buf.
//
// Parameters:
//   - buf: Accumulated bytes, starting at a frame boundary
//   - maxPayload: Largest acceptable payload length; values <= 0 mean DefaultMaxPayload
//
// Returns:
//   - The decoded frame and the number of bytes it occupied in buf
//   - ErrNeedMoreData if buf holds only part of a frame
//   - A *MalformedFrameError for an unknown tag, an oversized or inconsistent
//     length, or payload text that is not valid UTF-8
func Decode(buf []byte, maxPayload int) (Frame, int, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}

	if len(buf) == 0 {
		return nil, 0, ErrNeedMoreData
	}

	tag := Type(buf[0])
	if !tag.Known() {
		return nil, 0, malformed(tag, "unknown type tag")
	}

	if len(buf) < HeaderSize {
		return nil, 0, ErrNeedMoreData
	}

	length := binary.BigEndian.Uint32(buf[1:HeaderSize])
	if uint64(length) > uint64(maxPayload) {
		return nil, 0, malformed(tag, "payload length %d exceeds limit %d", length, maxPayload)
	}

	if (tag == TypeLeave || tag == TypeList) && length != 0 {
		return nil, 0, malformed(tag, "payload length %d, want 0", length)
	}

	total := HeaderSize + int(length)
	if len(buf) < total {
		return nil, 0, ErrNeedMoreData
	}

	f, err := decodePayload(tag, buf[HeaderSize:total])
	if err != nil {
		return nil, 0, err
	}

	return f, total, nil
}

func decodePayload(tag Type, p []byte) (Frame, error) {
	switch tag {
	case TypeJoin:
		s, err := text(tag, p)
		return Join{Name: s}, err
	case TypeChat:
		s, err := text(tag, p)
		return Chat{Text: s}, err
	case TypeLeave:
		return Leave{}, nil
	case TypeList:
		return List{}, nil
	case TypeError:
		s, err := text(tag, p)
		return Error{Reason: s}, err
	case TypeAck:
		s, err := text(tag, p)
		return Ack{Text: s}, err
	case TypeChatFrom:
		name, rest, err := shortString(tag, p)
		if err != nil {
			return nil, err
		}

		s, err := text(tag, rest)
		if err != nil {
			return nil, err
		}

		return ChatFrom{Sender: name, Text: s}, nil
	case TypePresence:
		name, rest, err := shortString(tag, p)
		if err != nil {
			return nil, err
		}

		if len(rest) != 1 {
			return nil, malformed(tag, "expected 1 trailing byte, got %d", len(rest))
		}

		switch rest[0] {
		case 0:
			return Presence{Name: name, Joined: false}, nil
		case 1:
			return Presence{Name: name, Joined: true}, nil
		default:
			return nil, malformed(tag, "invalid boolean 0x%02x", rest[0])
		}
	case TypeRoster:
		return decodeRoster(p)
	}

	return nil, malformed(tag, "unknown type tag")
}

func decodeRoster(p []byte) (Frame, error) {
	if len(p) < 2 {
		return nil, malformed(TypeRoster, "missing name count")
	}

	count := int(binary.BigEndian.Uint16(p[:2]))
	rest := p[2:]
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		name, tail, err := shortString(TypeRoster, rest)
		if err != nil {
			return nil, err
		}

		names = append(names, name)
		rest = tail
	}

	if len(rest) != 0 {
		return nil, malformed(TypeRoster, "%d trailing bytes", len(rest))
	}

	return Roster{Names: names}, nil
}

// shortString reads a one byte length followed by that many UTF-8 bytes.
func shortString(tag Type, p []byte) (string, []byte, error) {
	if len(p) < 1 {
		return "", nil, malformed(tag, "missing name length")
	}

	n := int(p[0])
	if len(p)-1 < n {
		return "", nil, malformed(tag, "name length %d exceeds payload", n)
	}

	s, err := text(tag, p[1:1+n])
	if err != nil {
		return "", nil, err
	}

	return s, p[1+n:], nil
}

func text(tag Type, p []byte) (string, error) {
	if !utf8.Valid(p) {
		return "", malformed(tag, "payload is not valid UTF-8")
	}

	return string(p), nil
}

func textPayload(tag Type, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("%w: %s text is not valid UTF-8", ErrInvalidFrame, tag)
	}

	return []byte(s), nil
}

func checkName(tag Type, name string) error {
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %s name is %d bytes, limit %d", ErrInvalidFrame, tag, len(name), MaxNameLength)
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %s name is not valid UTF-8", ErrInvalidFrame, tag)
	}

	return nil
}

func chatFromPayload(v ChatFrom) ([]byte, error) {
	if err := checkName(TypeChatFrom, v.Sender); err != nil {
		return nil, err
	}

	if !utf8.ValidString(v.Text) {
		return nil, fmt.Errorf("%w: ChatFrom text is not valid UTF-8", ErrInvalidFrame)
	}

	p := make([]byte, 0, 1+len(v.Sender)+len(v.Text))
	p = append(p, byte(len(v.Sender)))
	p = append(p, v.Sender...)
	p = append(p, v.Text...)
	return p, nil
}

func presencePayload(v Presence) ([]byte, error) {
	if err := checkName(TypePresence, v.Name); err != nil {
		return nil, err
	}

	p := make([]byte, 0, 2+len(v.Name))
	p = append(p, byte(len(v.Name)))
	p = append(p, v.Name...)
	if v.Joined {
		p = append(p, 1)
	} else {
		p = append(p, 0)
	}

	return p, nil
}

func rosterPayload(v Roster) ([]byte, error) {
	if len(v.Names) > MaxRosterNames {
		return nil, fmt.Errorf("%w: roster holds %d names, limit %d", ErrInvalidFrame, len(v.Names), MaxRosterNames)
	}

	size := 2
	for _, name := range v.Names {
		if err := checkName(TypeRoster, name); err != nil {
			return nil, err
		}
		size += 1 + len(name)
	}

	p := make([]byte, 2, size)
	binary.BigEndian.PutUint16(p, uint16(len(v.Names)))
	for _, name := range v.Names {
		p = append(p, byte(len(name)))
		p = append(p, name...)
	}

	return p, nil
}
