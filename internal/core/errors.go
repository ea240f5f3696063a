package core

import "errors"

var (
	// ErrRoomNotFound means a room slug did not resolve. Connections are
	// closed without surfacing it to the peer.
	ErrRoomNotFound = errors.New("room not found")
	// ErrSessionClosed means an operation hit a session that already closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrStoreUnavailable means persisting a message failed or timed out.
	// The publish is aborted and the message is lost by policy.
	ErrStoreUnavailable = errors.New("store unavailable")
)
