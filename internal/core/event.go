package core

import "time"

// Message is the domain model for a chat message.
type Message struct {
	ID        int64
	Room      string
	From      string
	Text      string
	CreatedAt time.Time
}

// EventKind is a notification the core emits to sessions. The set is
// closed; transports dispatch on it with an explicit switch.
type EventKind int

const (
	// EventRoomMessage notifies sessions about a chat message in their room.
	EventRoomMessage EventKind = iota
	// EventHistory delivers message history to a session upon joining a room.
	EventHistory
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Message  Message
	Messages []Message // For EventHistory
}
