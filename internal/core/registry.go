package core

import "sync"

// Registry is the process-wide table of room slug to the set of live
// member sessions. Membership mutations lock the registry; snapshots for
// fan-out only take per-room read locks, so delivery in one room is never
// serialized against delivery in another.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*roomGroup
}

type roomGroup struct {
	mu      sync.RWMutex
	members map[*Session]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*roomGroup),
	}
}

// Join adds the session to the room's member set, creating the set if
// absent. Re-joining with the same session is a no-op.
func (r *Registry) Join(room string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.rooms[room]
	if !ok {
		g = &roomGroup{members: make(map[*Session]struct{})}
		r.rooms[room] = g
	}

	g.mu.Lock()
	g.members[s] = struct{}{}
	g.mu.Unlock()
}

// Leave removes the session if present; removing an absent member is a
// no-op. Empty rooms are pruned. Pruning holds the registry lock, so it
// cannot race a concurrent Join into losing the room.
func (r *Registry) Leave(room string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.rooms[room]
	if !ok {
		return
	}

	g.mu.Lock()
	delete(g.members, s)
	empty := len(g.members) == 0
	g.mu.Unlock()

	if empty {
		delete(r.rooms, room)
	}
}

// Snapshot returns a point-in-time copy of the room's members, so fan-out
// iteration is never disturbed by concurrent join/leave.
func (r *Registry) Snapshot(room string) []*Session {
	r.mu.RLock()
	g, ok := r.rooms[room]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	members := make([]*Session, 0, len(g.members))
	for s := range g.members {
		members = append(members, s)
	}
	return members
}

// MemberCount returns the number of live members in a room.
func (r *Registry) MemberCount(room string) int {
	r.mu.RLock()
	g, ok := r.rooms[room]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
