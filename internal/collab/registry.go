package collab

import (
	"sync"
)

// Registry is the process-wide map of room id to live session. It is
// the single creation and removal point: concurrent first joins for
// an unseen room id resolve to exactly one session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for roomID, creating it with
// default state if absent. Hydration from durable storage is the
// caller's next step (Session.Hydrate) and runs outside the registry
// lock so a slow load never blocks other rooms.
func (r *Registry) GetOrCreate(roomID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[roomID]; ok {
		return s, false
	}
	s := newSession(roomID)
	r.sessions[roomID] = s
	return s, true
}

// Get returns the live session or nil.
func (r *Registry) Get(roomID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[roomID]
}

// Remove destroys the session only if its member set is empty; no-op
// otherwise. Emptiness is re-checked under the registry lock so a
// concurrent re-join wins over a pending removal. The session is
// marked removed under its own lock before the map delete: a join
// that fetched the session earlier sees the mark and refetches
// instead of attaching to a session the registry no longer knows.
func (r *Registry) Remove(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[roomID]
	if !ok {
		return false
	}
	s.mu.Lock()
	if len(s.members) != 0 {
		s.mu.Unlock()
		return false
	}
	s.removed = true
	s.mu.Unlock()
	delete(r.sessions, roomID)
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ActiveRoomIDs snapshots the ids of all live sessions.
func (r *Registry) ActiveRoomIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}
