package collab

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
)

// Session is the in-memory authority for one room: code buffer,
// language, live member set and file records. All mutation happens
// under mu; the broker holds mu across apply + fan-out so events for
// one room are applied and broadcast strictly in order.
type Session struct {
	roomID string

	mu       sync.Mutex
	code     string
	language string
	members  map[string]*domain.Member
	order    []string // connIDs, insertion order
	files    map[string]domain.FileRecord
	removed  bool // set by Registry.Remove; a join seeing it must refetch

	hydrateOnce sync.Once
}

func newSession(roomID string) *Session {
	return &Session{
		roomID:   roomID,
		code:     domain.DefaultCode,
		language: domain.DefaultLanguage,
		members:  make(map[string]*domain.Member),
		files:    make(map[string]domain.FileRecord),
	}
}

func (s *Session) RoomID() string { return s.roomID }

// Hydrate seeds code and language from the durable store. Runs at
// most once per session; load failure or absence keeps the defaults.
// Concurrent first joins share the same load.
func (s *Session) Hydrate(ctx context.Context, store Store) {
	s.hydrateOnce.Do(func() {
		snap, err := store.LoadSnapshot(ctx, s.roomID)
		if err != nil {
			slog.Warn("session hydrate failed, using defaults", "room", s.roomID, "err", err)
			return
		}
		if snap == nil {
			return
		}
		s.mu.Lock()
		if snap.Code != "" {
			s.code = snap.Code
		}
		if snap.Language != "" {
			s.language = snap.Language
		}
		s.mu.Unlock()
	})
}

// addMember inserts or replaces the entry for the connection. Caller
// holds mu. Replacing keeps the original slot in the snapshot order.
func (s *Session) addMember(m domain.Member) {
	if _, ok := s.members[m.ConnID]; !ok {
		s.order = append(s.order, m.ConnID)
	}
	cp := m
	s.members[m.ConnID] = &cp
}

// removeMember removes and returns the entry. Caller holds mu.
func (s *Session) removeMember(connID string) (domain.Member, bool) {
	m, ok := s.members[connID]
	if !ok {
		return domain.Member{}, false
	}
	delete(s.members, connID)
	for i, id := range s.order {
		if id == connID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return *m, true
}

// memberList copies the members in insertion order. Caller holds mu.
func (s *Session) memberList() []domain.Member {
	out := make([]domain.Member, 0, len(s.order))
	for _, id := range s.order {
		if m, ok := s.members[id]; ok {
			out = append(out, *m)
		}
	}
	return out
}

// member returns a copy of one entry. Caller holds mu.
func (s *Session) member(connID string) (domain.Member, bool) {
	m, ok := s.members[connID]
	if !ok {
		return domain.Member{}, false
	}
	return *m, true
}

// upsertFile replaces any record with the same filename. Caller holds mu.
func (s *Session) upsertFile(f domain.FileRecord) {
	s.files[f.Filename] = f
}

// removeFile deletes by filename. Caller holds mu.
func (s *Session) removeFile(filename string) bool {
	if _, ok := s.files[filename]; !ok {
		return false
	}
	delete(s.files, filename)
	return true
}

// Empty reports whether the member set is empty.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members) == 0
}

// Code returns the current code buffer.
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Language returns the current language tag.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// Members returns the live member list in insertion order.
func (s *Session) Members() []domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberList()
}

// Files returns a copy of the room's file records.
func (s *Session) Files() []domain.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.FileRecord, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	return out
}
