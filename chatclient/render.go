package chatclient

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cyberinferno/go-chat/protocol"
)

// Renderer presents inbound frames to the user.
type Renderer interface {
	Render(f protocol.Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(f protocol.Frame)

// Render calls fn(f).
func (fn RendererFunc) Render(f protocol.Frame) { fn(f) }

type textRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

// TextRenderer returns a Renderer that writes one line per frame to w.
func TextRenderer(w io.Writer) Renderer {
	return &textRenderer{w: w}
}

func (r *textRenderer) Render(f protocol.Frame) {
	line := FormatFrame(f)
	if line == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.w, line+"\n")
}

// FormatFrame returns the line TextRenderer prints for f, or "" for frames
// that are not shown.
func FormatFrame(f protocol.Frame) string {
	switch v := f.(type) {
	case protocol.ChatFrom:
		return fmt.Sprintf("[MSG] %s: %s", v.Sender, v.Text)
	case protocol.Chat:
		return "[MSG] " + v.Text
	case protocol.Presence:
		if v.Joined {
			return fmt.Sprintf("[JOIN] %s joined", v.Name)
		}
		return fmt.Sprintf("[LEAVE] %s left", v.Name)
	case protocol.Roster:
		return fmt.Sprintf("[USERS] %s (%d online)", strings.Join(v.Names, ", "), len(v.Names))
	case protocol.Ack:
		return "[ACK] " + v.Text
	case protocol.Error:
		return "[ERROR] " + v.Reason
	default:
		return ""
	}
}
