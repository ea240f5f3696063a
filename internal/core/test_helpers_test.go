package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/store"
)

// memStore is an in-memory store.Store for core tests.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	rooms      map[string]*store.Room
	messages   []*store.Message
	failAppend bool
}

func newMemStore(slugs ...string) *memStore {
	m := &memStore{rooms: make(map[string]*store.Room)}
	for i, slug := range slugs {
		m.rooms[slug] = &store.Room{
			ID:        int64(i + 1),
			Name:      slug,
			Slug:      slug,
			CreatedAt: time.Now(),
		}
	}
	return m
}

func (m *memStore) GetRoomBySlug(_ context.Context, slug string) (*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	return room, nil
}

func (m *memStore) CreateRoom(_ context.Context, name, slug string) (*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room := &store.Room{ID: int64(len(m.rooms) + 1), Name: name, Slug: slug, CreatedAt: time.Now()}
	m.rooms[slug] = room
	return room, nil
}

func (m *memStore) ListRooms(_ context.Context) ([]*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]*store.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (m *memStore) AppendMessage(_ context.Context, roomID, userID int64, body string, createdAt time.Time) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return nil, errors.New("append refused")
	}
	m.nextID++
	msg := &store.Message{
		ID:        m.nextID,
		RoomID:    roomID,
		UserID:    userID,
		Body:      body,
		CreatedAt: createdAt,
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memStore) ListMessages(_ context.Context, roomID, afterID int64, limit int) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*store.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID && msg.ID > afterID && len(result) < limit {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *memStore) ListRecentMessages(_ context.Context, roomID int64, limit int) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*store.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			all = append(all, msg)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *memStore) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *memStore) CreateUser(context.Context, string, string) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) CreateGuestUser(context.Context, string) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) GetUserByID(context.Context, int64) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) GetUserByUsername(context.Context, string) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) GetUserBySessionID(context.Context, string) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) Close() error { return nil }

var _ store.Store = (*memStore)(nil)

func newTestDeps(st store.Store) SessionDeps {
	logger := zerolog.Nop()
	registry := NewRegistry()
	return SessionDeps{
		Registry:     registry,
		Broadcaster:  NewBroadcaster(registry, st, time.Second, &logger),
		Store:        st,
		HistoryLimit: 25,
		Log:          &logger,
	}
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	select {
	case ev := <-ch:
		if ev == nil || ev.Kind != kind {
			t.Fatalf("expected event kind %v, got %+v", kind, ev)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("expected event kind %v not received", kind)
		return nil
	}
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
