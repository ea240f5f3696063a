package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsGuest      bool
	SessionID    string // For guest user session tracking
	CreatedAt    time.Time
}

// Room represents a chat room. The slug is the opaque identifier
// clients use to address the room.
type Room struct {
	ID        int64
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Message represents a persisted chat message. IDs are assigned by the
// store and are strictly increasing, so within any room the persisted
// order equals the id order.
type Message struct {
	ID        int64
	RoomID    int64
	UserID    int64
	Author    string // username, filled by list queries
	Body      string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserBySessionID retrieves a guest user by its session id.
	// Returns ErrNotFound if no guest holds the session.
	GetUserBySessionID(ctx context.Context, sessionID string) (*User, error)
}

// RoomStore handles room persistence. GetRoomBySlug doubles as the
// room-existence check for incoming connections.
type RoomStore interface {
	// CreateRoom creates a new room.
	CreateRoom(ctx context.Context, name, slug string) (*Room, error)

	// GetRoomBySlug retrieves a room by slug. Returns ErrNotFound if the
	// slug does not resolve.
	GetRoomBySlug(ctx context.Context, slug string) (*Room, error)

	// ListRooms lists all rooms.
	ListRooms(ctx context.Context) ([]*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists a message and returns it with the assigned id.
	AppendMessage(ctx context.Context, roomID, userID int64, body string, createdAt time.Time) (*Message, error)

	// ListMessages returns up to limit messages with id > afterID in
	// ascending id order. The afterID cursor makes the listing restartable.
	ListMessages(ctx context.Context, roomID, afterID int64, limit int) ([]*Message, error)

	// ListRecentMessages returns the last limit messages of a room in
	// chronological order (oldest first).
	ListRecentMessages(ctx context.Context, roomID int64, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
