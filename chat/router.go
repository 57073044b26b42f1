package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyberinferno/go-chat/cacher"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
)

const cacheOpTimeout = time.Second

// RouterConfig configures a Router.
type RouterConfig struct {
	// Roster caches roster replies. Nil disables caching.
	Roster cacher.Cacher[[]string]
	// RosterKey is the cache key for this server's roster.
	RosterKey string
	// RosterTTL bounds how long a cached roster may be served.
	RosterTTL time.Duration
}

// Router is the relay policy: it decides who receives what. It only ever
// enqueues on sessions and never touches a transport.
type Router struct {
	registry *Registry
	cfg      RouterConfig
	log      logger.Logger
}

// NewRouter creates a Router over registry.
func NewRouter(registry *Registry, cfg RouterConfig, l logger.Logger) *Router {
	if cfg.RosterKey == "" {
		cfg.RosterKey = "roster"
	}

	if cfg.RosterTTL <= 0 {
		cfg.RosterTTL = 5 * time.Second
	}

	return &Router{registry: registry, cfg: cfg, log: l}
}

// HandleFrame implements FrameHandler.
func (r *Router) HandleFrame(s *Session, f protocol.Frame) {
	if !s.Joined() {
		join, ok := f.(protocol.Join)
		if !ok {
			s.Fail(ReasonExpectedJoin, fmt.Errorf("%w: %s before join", ErrProtocolViolation, f.Type()))
			return
		}

		r.join(s, join.Name)
		return
	}

	switch v := f.(type) {
	case protocol.Chat:
		r.chat(s, v.Text)
	case protocol.Leave:
		// The session stays open until its queue drains, but it is gone
		// from the registry as of now.
		r.depart(s, ErrSessionLeft)
		s.Finish(ErrSessionLeft)
	case protocol.List:
		r.roster(s)
	default:
		s.Fail(ReasonUnexpectedFrame, fmt.Errorf("%w: %s from client", ErrProtocolViolation, f.Type()))
	}
}

// SessionClosed implements FrameHandler.
func (r *Router) SessionClosed(s *Session, cause error) {
	r.depart(s, cause)
}

// depart removes a joined session and tells the remaining sessions it left.
// Only the call that actually unregisters s broadcasts, so a Leave followed by
// the transport closing produces a single departure.
func (r *Router) depart(s *Session, cause error) {
	if !r.registry.Unregister(s.ID()) {
		return
	}

	r.invalidateRoster()
	r.log.Info("session left", logger.F("session_id", s.ID()), logger.F("name", s.Name()),
		logger.F("cause", errString(cause)), logger.F("online", r.registry.Len()))

	// Still announcing the join: join broadcasts the departure after it.
	if s.presence.CompareAndSwap(presencePending, presenceDeparted) {
		return
	}

	r.broadcast(protocol.Presence{Name: s.Name(), Joined: false}, nil)
}

// ValidateName checks that name fits the protocol's name fields.
func ValidateName(name string) error {
	if name == "" || len(name) > protocol.MaxNameLength {
		return fmt.Errorf("%w: %d bytes, want 1-%d", ErrInvalidName, len(name), protocol.MaxNameLength)
	}

	return nil
}

func (r *Router) join(s *Session, name string) {
	if err := ValidateName(name); err != nil {
		s.Fail(ReasonInvalidName, err)
		return
	}

	s.setName(name)
	ack := protocol.MustEncode(protocol.Ack{Text: AckConnected})
	err := r.registry.Register(s, func() { s.offer(ack) })
	switch {
	case errors.Is(err, ErrDuplicateName):
		s.Fail(ReasonNameInUse, err)
		return
	case err != nil:
		s.Fail(ReasonUnexpectedFrame, err)
		return
	}

	s.markJoined()
	r.invalidateRoster()
	r.log.Info("session joined", logger.F("session_id", s.ID()), logger.F("name", name),
		logger.F("remote", s.RemoteAddr().String()), logger.F("online", r.registry.Len()))

	r.broadcast(protocol.Presence{Name: name, Joined: true}, s)
	if !s.presence.CompareAndSwap(presencePending, presenceAnnounced) {
		r.broadcast(protocol.Presence{Name: name, Joined: false}, nil)
	}
}

// chat relays text to every joined session, the sender included.
func (r *Router) chat(s *Session, text string) {
	r.broadcast(protocol.ChatFrom{Sender: s.Name(), Text: text}, nil)
}

func (r *Router) roster(s *Session) {
	names := r.rosterNames()
	if len(names) > protocol.MaxRosterNames {
		names = names[:protocol.MaxRosterNames]
	}

	_ = s.Send(protocol.Roster{Names: names})
}

func (r *Router) rosterNames() []string {
	if r.cfg.Roster == nil {
		return r.registry.Names()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()

	names, err := r.cfg.Roster.GetOrFetch(ctx, r.cfg.RosterKey, r.cfg.RosterTTL, func(context.Context) ([]string, error) {
		return r.registry.Names(), nil
	})
	if err != nil {
		r.log.Warn("roster cache unavailable", logger.F("error", err))
		return r.registry.Names()
	}

	return names
}

func (r *Router) invalidateRoster() {
	if r.cfg.Roster == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()

	if err := r.cfg.Roster.Delete(ctx, r.cfg.RosterKey); err != nil {
		r.log.Warn("roster cache invalidation failed", logger.F("error", err))
	}
}

// broadcast encodes f once and queues it on every registered session except
// skip. Delivery failures only affect the failing recipient.
func (r *Router) broadcast(f protocol.Frame, skip *Session) {
	data, err := protocol.Encode(f)
	if err != nil {
		r.log.Error("cannot encode broadcast", logger.F("type", f.Type().String()), logger.F("error", err))
		return
	}

	for _, peer := range r.registry.Snapshot() {
		if peer == skip {
			continue
		}

		_ = peer.sendEncoded(data)
	}
}
