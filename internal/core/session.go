package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/proto"
	"github.com/roomcast/roomcast-server/internal/store"
)

// SessionState tracks the lifecycle of one client connection.
type SessionState int

const (
	// StateConnecting is entered when the connection opens.
	StateConnecting SessionState = iota
	// StateJoined is the only state in which inbound frames are processed.
	StateJoined
	// StateClosed is terminal.
	StateClosed
)

// eventBuffer is the per-session outbound queue size. Delivery never
// blocks; a session that stops draining loses messages.
const eventBuffer = 16

// SessionDeps are the collaborators a session needs.
type SessionDeps struct {
	Registry     *Registry
	Broadcaster  *Broadcaster
	Store        store.Store
	HistoryLimit int
	Log          *zerolog.Logger
}

// Session is the state machine for one client connection. It owns inbound
// frame parsing and the outbound event queue; the transport drains Events
// and writes them to the wire.
type Session struct {
	ID            string
	UserID        int64
	Username      string
	Authenticated bool

	Events chan *Event

	deps SessionDeps

	mu     sync.Mutex
	state  SessionState
	roomID int64
	room   string
}

// NewSession constructs a session in the Connecting state.
func NewSession(id string, user Author, authenticated bool, deps SessionDeps) *Session {
	return &Session{
		ID:            id,
		UserID:        user.UserID,
		Username:      user.Username,
		Authenticated: authenticated,
		Events:        make(chan *Event, eventBuffer),
		deps:          deps,
	}
}

// OnOpen resolves the room slug, registers the session as a member, and
// transitions to Joined. An unresolvable slug closes the session without
// touching the registry; callers close the connection with no error detail
// so room names cannot be enumerated.
func (s *Session) OnOpen(ctx context.Context, slug string) error {
	room, err := s.deps.Store.GetRoomBySlug(ctx, slug)
	if err != nil {
		s.OnClose()
		return fmt.Errorf("resolve room %q: %w", slug, ErrRoomNotFound)
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.state = StateJoined
	s.roomID = room.ID
	s.room = room.Slug
	s.mu.Unlock()

	// Registration and the history read happen under the room's publish
	// lock. A message published in between would otherwise be queued
	// live first and then show up again inside the replay.
	unlock := s.deps.Broadcaster.LockRoom(room.Slug)
	defer unlock()

	s.deps.Registry.Join(room.Slug, s)

	// The connection may have died between the state change and the
	// registry insert; do not leave a member behind.
	s.mu.Lock()
	closed := s.state == StateClosed
	s.mu.Unlock()
	if closed {
		s.deps.Registry.Leave(room.Slug, s)
		return ErrSessionClosed
	}

	s.replayHistory(ctx, room.ID)
	return nil
}

// replayHistory queues the most recent messages of the room for this
// session only.
func (s *Session) replayHistory(ctx context.Context, roomID int64) {
	if s.deps.HistoryLimit <= 0 {
		return
	}

	msgs, err := s.deps.Store.ListRecentMessages(ctx, roomID, s.deps.HistoryLimit)
	if err != nil {
		s.deps.Log.Warn().Err(err).Str("session_id", s.ID).Msg("history replay failed")
		return
	}
	if len(msgs) == 0 {
		return
	}

	history := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, Message{
			ID:        m.ID,
			Room:      s.room,
			From:      m.Author,
			Text:      m.Body,
			CreatedAt: m.CreatedAt,
		})
	}
	s.Deliver(&Event{Kind: EventHistory, Messages: history})
}

// OnInbound handles one raw frame from the wire. Frames that are not valid
// JSON, have an empty message after trimming, or arrive from an
// unauthenticated or non-joined session are dropped silently; the
// connection stays open.
func (s *Session) OnInbound(ctx context.Context, raw []byte) {
	s.mu.Lock()
	state := s.state
	roomID := s.roomID
	room := s.room
	s.mu.Unlock()

	if state != StateJoined {
		return
	}

	var frame proto.Inbound
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.deps.Log.Debug().Str("session_id", s.ID).Msg("dropping malformed frame")
		return
	}

	text := strings.TrimSpace(frame.Message)
	if text == "" {
		return
	}

	if !s.Authenticated {
		s.deps.Log.Debug().Str("session_id", s.ID).Msg("dropping unauthenticated message")
		return
	}

	author := Author{UserID: s.UserID, Username: s.Username}
	if _, err := s.deps.Broadcaster.Publish(ctx, roomID, room, author, text); err != nil {
		// Lossy on failure: the client observes no error frame.
		s.deps.Log.Warn().Err(err).Str("session_id", s.ID).Str("room", room).Msg("publish failed, message dropped")
	}
}

// OnClose transitions to Closed and removes the session from the registry.
// Safe to call more than once; close can be triggered by either peer or a
// transport error.
func (s *Session) OnClose() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	wasJoined := s.state == StateJoined
	room := s.room
	s.state = StateClosed
	s.mu.Unlock()

	if wasJoined {
		s.deps.Registry.Leave(room, s)
	}
}

// Deliver queues an event for the transport write loop. It never blocks:
// a closed session is a no-op and a full queue drops the event, so one
// stalled peer cannot hold up fan-out to the rest of the room.
func (s *Session) Deliver(event *Event) {
	s.mu.Lock()
	closed := s.state == StateClosed
	s.mu.Unlock()
	if closed {
		return
	}

	select {
	case s.Events <- event:
	default:
		// Drop if slow consumer.
	}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Room returns the joined room slug, or "" before join.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}
