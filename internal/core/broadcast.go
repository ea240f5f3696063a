package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/store"
)

// Author identifies who is publishing a message.
type Author struct {
	UserID   int64
	Username string
}

// Broadcaster owns the ordering contract between durable storage and live
// delivery: a message is persisted first, then fanned out to a member
// snapshot taken strictly after persistence. Publishes in the same room are
// serialized so the fan-out order always matches the assigned id order;
// publishes in different rooms run concurrently.
type Broadcaster struct {
	registry *Registry
	store    store.MessageStore
	timeout  time.Duration
	log      *zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// NewBroadcaster constructs a broadcaster. timeout bounds each store append.
func NewBroadcaster(registry *Registry, st store.MessageStore, timeout time.Duration, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		store:    st,
		timeout:  timeout,
		log:      logger,
		locks:    make(map[string]*roomLock),
	}
}

// Publish persists the message and fans it out to every current member of
// the room, including the sender. On persist failure nothing is delivered
// and the error is returned for the caller to log; clients see no error
// frame (lossy-on-failure policy).
func (b *Broadcaster) Publish(ctx context.Context, roomID int64, room string, author Author, text string) (*store.Message, error) {
	unlock := b.lockRoom(room)
	defer unlock()

	appendCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	msg, err := b.store.AppendMessage(appendCtx, roomID, author.UserID, text, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	event := &Event{
		Kind: EventRoomMessage,
		Message: Message{
			ID:        msg.ID,
			Room:      room,
			From:      author.Username,
			Text:      msg.Body,
			CreatedAt: msg.CreatedAt,
		},
	}

	// Snapshot is taken after persistence completed, so no member can see
	// this message live before it is retrievable from the store.
	for _, member := range b.registry.Snapshot(room) {
		member.Deliver(event)
	}

	return msg, nil
}

// LockRoom serializes the caller against publishes in the room. A joining
// session holds it across registration and the history read so that no
// message can land in between and reach the client both live and inside
// the replay. The returned func releases the lock.
func (b *Broadcaster) LockRoom(room string) (unlock func()) {
	return b.lockRoom(room)
}

// lockRoom acquires the per-room publish lock, creating it on first use and
// dropping it once no publish in that room holds or waits on it.
func (b *Broadcaster) lockRoom(room string) (unlock func()) {
	b.locksMu.Lock()
	l, ok := b.locks[room]
	if !ok {
		l = &roomLock{}
		b.locks[room] = l
	}
	l.refs++
	b.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		b.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(b.locks, room)
		}
		b.locksMu.Unlock()
	}
}
