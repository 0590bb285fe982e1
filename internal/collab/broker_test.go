package collab

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
)

type fakeConn struct {
	id string

	mu   sync.Mutex
	msgs []Message
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(m Message) error {
	f.mu.Lock()
	f.msgs = append(f.msgs, m)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) received() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeConn) byEvent(event string) []Message {
	var out []Message
	for _, m := range f.received() {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.msgs = nil
	f.mu.Unlock()
}

// recordStore captures persistence calls so tests can assert the
// broadcast-then-persist contract without a database.
type recordStore struct {
	snapshot *Snapshot
	loadErr  error

	mu        sync.Mutex
	savedCode map[string]string
	savedLang map[string]string
	messages  []string
}

func newRecordStore() *recordStore {
	return &recordStore{
		savedCode: make(map[string]string),
		savedLang: make(map[string]string),
	}
}

func (s *recordStore) LoadSnapshot(_ context.Context, roomID string) (*Snapshot, error) {
	return s.snapshot, s.loadErr
}

func (s *recordStore) SaveSnapshot(roomID, code string) {
	s.mu.Lock()
	s.savedCode[roomID] = code
	s.mu.Unlock()
}

func (s *recordStore) SaveLanguage(roomID, language string) {
	s.mu.Lock()
	s.savedLang[roomID] = language
	s.mu.Unlock()
}

func (s *recordStore) AppendMessage(roomID, senderID, senderName, text string) {
	s.mu.Lock()
	s.messages = append(s.messages, senderName+": "+text)
	s.mu.Unlock()
}

func newTestBroker(store Store) (*Broker, *Registry) {
	reg := NewRegistry()
	return NewBroker(reg, store), reg
}

func join(t *testing.T, b *Broker, c *fakeConn, roomID, username string) {
	t.Helper()
	b.Connect(c)
	b.HandleJoin(context.Background(), c, JoinPayload{RoomID: roomID, Username: username})
}

func TestJoinFirstMemberGetsDefaults(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}

	join(t, b, alice, "room1", "alice")

	loads := alice.byEvent(EvtLoadCode)
	require.Len(t, loads, 1)
	snap := loads[0].Data.(SnapshotPayload)
	require.Equal(t, domain.DefaultCode, snap.Code)
	require.Equal(t, domain.DefaultLanguage, snap.Language)

	updates := alice.byEvent(EvtUsersUpdate)
	require.Len(t, updates, 1)
	members := updates[0].Data.([]domain.Member)
	require.Len(t, members, 1)
	require.Equal(t, "alice", members[0].Username)
	require.Regexp(t, regexp.MustCompile(`^#[0-9a-f]{6}$`), members[0].Color)

	// the joiner does not get their own system message
	require.Empty(t, alice.byEvent(EvtReceiveMessage))
	require.NotNil(t, reg.Get("room1"))
}

func TestJoinHydratesFromStore(t *testing.T) {
	store := newRecordStore()
	store.snapshot = &Snapshot{Code: "print('hi')", Language: "python"}
	b, _ := newTestBroker(store)
	alice := &fakeConn{id: "conn-a"}

	join(t, b, alice, "room1", "alice")

	loads := alice.byEvent(EvtLoadCode)
	require.Len(t, loads, 1)
	snap := loads[0].Data.(SnapshotPayload)
	require.Equal(t, "print('hi')", snap.Code)
	require.Equal(t, "python", snap.Language)
}

func TestJoinUsernameFallsBackToConnID(t *testing.T) {
	b, _ := newTestBroker(NopStore{})
	c := &fakeConn{id: "conn-x"}

	join(t, b, c, "room1", "")

	members := c.byEvent(EvtUsersUpdate)[0].Data.([]domain.Member)
	require.Equal(t, "conn-x", members[0].Username)
}

func TestSecondJoinNotifiesExistingMembers(t *testing.T) {
	b, _ := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}

	join(t, b, alice, "room1", "alice")
	b.HandleCodeChange(context.Background(), "conn-a", CodePayload{RoomID: "room1", Code: "let x = 1"})
	alice.reset()

	join(t, b, bob, "room1", "bob")

	// bob sees the live buffer, not the seed
	snap := bob.byEvent(EvtLoadCode)[0].Data.(SnapshotPayload)
	require.Equal(t, "let x = 1", snap.Code)

	// alice gets the system chat and the new roster, bob only the roster
	chats := alice.byEvent(EvtReceiveMessage)
	require.Len(t, chats, 1)
	bc := chats[0].Data.(ChatBroadcast)
	require.Equal(t, "System", bc.SenderName)
	require.Equal(t, "bob joined the room", bc.Text)
	require.Empty(t, bob.byEvent(EvtReceiveMessage))

	require.Len(t, alice.byEvent(EvtUsersUpdate)[0].Data.([]domain.Member), 2)
	require.Len(t, bob.byEvent(EvtUsersUpdate)[0].Data.([]domain.Member), 2)
}

func TestCodeChangeExcludesSenderAndPersists(t *testing.T) {
	store := newRecordStore()
	b, _ := newTestBroker(store)
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}
	join(t, b, alice, "room1", "alice")
	join(t, b, bob, "room1", "bob")
	alice.reset()
	bob.reset()

	b.HandleCodeChange(context.Background(), "conn-a", CodePayload{RoomID: "room1", Code: "v2"})

	require.Empty(t, alice.byEvent(EvtCodeChange))
	got := bob.byEvent(EvtCodeChange)
	require.Len(t, got, 1)
	cb := got[0].Data.(CodeBroadcast)
	require.Equal(t, "v2", cb.Code)
	require.Equal(t, "conn-a", cb.Sender)
	require.Equal(t, "v2", store.savedCode["room1"])
}

func TestCodeChangeLastWriteWins(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	join(t, b, alice, "room1", "alice")

	b.HandleCodeChange(context.Background(), "conn-a", CodePayload{RoomID: "room1", Code: "first"})
	b.HandleCodeChange(context.Background(), "conn-a", CodePayload{RoomID: "room1", Code: "second"})

	require.Equal(t, "second", reg.Get("room1").Code())
}

func TestCodeChangeFromNonMemberDropped(t *testing.T) {
	store := newRecordStore()
	b, reg := newTestBroker(store)
	alice := &fakeConn{id: "conn-a"}
	join(t, b, alice, "room1", "alice")
	alice.reset()

	stranger := &fakeConn{id: "conn-s"}
	b.Connect(stranger)
	b.HandleCodeChange(context.Background(), "conn-s", CodePayload{RoomID: "room1", Code: "hax"})

	require.Empty(t, alice.byEvent(EvtCodeChange))
	require.Equal(t, domain.DefaultCode, reg.Get("room1").Code())
	require.Empty(t, store.savedCode)
}

func TestLanguageChangeExcludesSender(t *testing.T) {
	store := newRecordStore()
	b, _ := newTestBroker(store)
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}
	join(t, b, alice, "room1", "alice")
	join(t, b, bob, "room1", "bob")
	bob.reset()

	b.HandleLanguageChange(context.Background(), "conn-a", LanguagePayload{RoomID: "room1", Language: "go"})

	require.Empty(t, alice.byEvent(EvtLanguageChange))
	got := bob.byEvent(EvtLanguageChange)
	require.Len(t, got, 1)
	require.Equal(t, "go", got[0].Data.(LanguageBroadcast).Language)
	require.Equal(t, "go", store.savedLang["room1"])
}

func TestSendMessageIncludesSender(t *testing.T) {
	store := newRecordStore()
	b, _ := newTestBroker(store)
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}
	join(t, b, alice, "room1", "alice")
	join(t, b, bob, "room1", "bob")
	alice.reset()
	bob.reset()

	b.HandleSendMessage(context.Background(), "conn-a", ChatPayload{RoomID: "room1", Message: "  hello  "})

	for _, c := range []*fakeConn{alice, bob} {
		got := c.byEvent(EvtReceiveMessage)
		require.Len(t, got, 1)
		bc := got[0].Data.(ChatBroadcast)
		require.Equal(t, "conn-a", bc.SenderID)
		require.Equal(t, "alice", bc.SenderName)
		require.Equal(t, "hello", bc.Text)
		require.False(t, bc.CreatedAt.IsZero())
	}
	require.Equal(t, []string{"alice: hello"}, store.messages)
}

func TestSendMessageEmptyTextDropped(t *testing.T) {
	store := newRecordStore()
	b, _ := newTestBroker(store)
	alice := &fakeConn{id: "conn-a"}
	join(t, b, alice, "room1", "alice")
	alice.reset()

	b.HandleSendMessage(context.Background(), "conn-a", ChatPayload{RoomID: "room1", Message: "   "})

	require.Empty(t, alice.received())
	require.Empty(t, store.messages)
}

func TestSendMessageUnknownSenderIsGuest(t *testing.T) {
	b, _ := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	join(t, b, alice, "room1", "alice")
	alice.reset()

	stranger := &fakeConn{id: "conn-s"}
	b.Connect(stranger)
	b.HandleSendMessage(context.Background(), "conn-s", ChatPayload{RoomID: "room1", Message: "hi"})

	got := alice.byEvent(EvtReceiveMessage)
	require.Len(t, got, 1)
	require.Equal(t, "Guest", got[0].Data.(ChatBroadcast).SenderName)
}

func TestTypingExcludesSender(t *testing.T) {
	b, _ := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}
	join(t, b, alice, "room1", "alice")
	join(t, b, bob, "room1", "bob")
	alice.reset()
	bob.reset()

	b.HandleTyping(context.Background(), "conn-a", TypingPayload{RoomID: "room1"})

	require.Empty(t, alice.byEvent(EvtUserTyping))
	got := bob.byEvent(EvtUserTyping)
	require.Len(t, got, 1)
	require.Equal(t, "alice", got[0].Data.(TypingBroadcast).Username)
}

func TestLeaveNotifiesAndDestroysEmptyRoom(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}
	join(t, b, alice, "room1", "alice")
	join(t, b, bob, "room1", "bob")
	alice.reset()

	b.HandleLeave(context.Background(), "conn-b", LeavePayload{RoomID: "room1"})

	chats := alice.byEvent(EvtReceiveMessage)
	require.Len(t, chats, 1)
	require.Equal(t, "bob left the room", chats[0].Data.(ChatBroadcast).Text)
	require.Len(t, alice.byEvent(EvtUsersUpdate)[0].Data.([]domain.Member), 1)
	require.NotNil(t, reg.Get("room1"))

	b.HandleLeave(context.Background(), "conn-a", LeavePayload{RoomID: "room1"})
	require.Nil(t, reg.Get("room1"))
}

func TestLeaveFromNonMemberDropped(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	join(t, b, alice, "room1", "alice")

	stranger := &fakeConn{id: "conn-s"}
	b.Connect(stranger)
	b.HandleLeave(context.Background(), "conn-s", LeavePayload{RoomID: "room1"})

	require.NotNil(t, reg.Get("room1"))
	require.Len(t, reg.Get("room1").Members(), 1)
}

func TestDisconnectActsAsLeave(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}
	join(t, b, alice, "room1", "alice")
	join(t, b, bob, "room1", "bob")
	bob.reset()

	b.Disconnect("conn-a")

	chats := bob.byEvent(EvtReceiveMessage)
	require.Len(t, chats, 1)
	require.Equal(t, "alice left the room", chats[0].Data.(ChatBroadcast).Text)

	b.Disconnect("conn-b")
	require.Nil(t, reg.Get("room1"))

	// disconnect of an already-gone conn is a no-op
	b.Disconnect("conn-a")
}

func TestJoinRefetchesWhenLastLeaveDestroysSession(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	join(t, b, alice, "room1", "alice")

	// a second joiner fetches the session before alice's leave lands
	doomed, created := reg.GetOrCreate("room1")
	require.False(t, created)

	b.HandleLeave(context.Background(), "conn-a", LeavePayload{RoomID: "room1"})
	require.Nil(t, reg.Get("room1"))

	// the destroyed session carries the mark the joiner retries on
	doomed.mu.Lock()
	require.True(t, doomed.removed)
	doomed.mu.Unlock()

	bob := &fakeConn{id: "conn-b"}
	join(t, b, bob, "room1", "bob")

	live := reg.Get("room1")
	require.NotNil(t, live)
	require.NotSame(t, doomed, live)
	require.Len(t, live.Members(), 1)

	// bob's events reach the registered session, not the orphan
	b.HandleCodeChange(context.Background(), "conn-b", CodePayload{RoomID: "room1", Code: "after"})
	require.Equal(t, "after", live.Code())
	require.Equal(t, domain.DefaultCode, doomed.Code())
}

func TestConcurrentJoinLeaveChurn(t *testing.T) {
	b, reg := newTestBroker(NopStore{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		c := &fakeConn{id: fmt.Sprintf("conn-%d", i)}
		b.Connect(c)
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b.HandleJoin(context.Background(), c, JoinPayload{RoomID: "room1", Username: c.id})
				b.HandleLeave(context.Background(), c.id, LeavePayload{RoomID: "room1"})
			}
		}(c)
	}
	wg.Wait()

	// every join was matched by a leave: no orphaned session survives
	require.Nil(t, reg.Get("room1"))
	require.Zero(t, reg.Len())
}

func TestJoinSecondRoomEvictsFromFirst(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}
	join(t, b, alice, "room1", "alice")
	join(t, b, bob, "room1", "bob")
	bob.reset()

	b.HandleJoin(context.Background(), alice, JoinPayload{RoomID: "room2", Username: "alice"})

	chats := bob.byEvent(EvtReceiveMessage)
	require.Len(t, chats, 1)
	require.Equal(t, "alice left the room", chats[0].Data.(ChatBroadcast).Text)
	require.Len(t, reg.Get("room1").Members(), 1)
	require.Len(t, reg.Get("room2").Members(), 1)

	// alice is no longer a member of room1
	b.HandleCodeChange(context.Background(), "conn-a", CodePayload{RoomID: "room1", Code: "stale"})
	require.Equal(t, domain.DefaultCode, reg.Get("room1").Code())
}

func TestRoomDestroyedThenRecreatedStartsFresh(t *testing.T) {
	store := newRecordStore()
	b, _ := newTestBroker(store)
	alice := &fakeConn{id: "conn-a"}
	join(t, b, alice, "room1", "alice")
	b.HandleCodeChange(context.Background(), "conn-a", CodePayload{RoomID: "room1", Code: "draft"})
	b.HandleLeave(context.Background(), "conn-a", LeavePayload{RoomID: "room1"})

	// the store is the only memory a destroyed room leaves behind
	store.snapshot = &Snapshot{Code: store.savedCode["room1"], Language: domain.DefaultLanguage}
	alice.reset()
	b.HandleJoin(context.Background(), alice, JoinPayload{RoomID: "room1", Username: "alice"})

	snap := alice.byEvent(EvtLoadCode)[0].Data.(SnapshotPayload)
	require.Equal(t, "draft", snap.Code)
}

func TestFileEventsMirrorToSessionAndExcludeSender(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}
	join(t, b, alice, "room1", "alice")
	join(t, b, bob, "room1", "bob")
	alice.reset()
	bob.reset()

	f := domain.FileRecord{Filename: "main.go", Content: "package main", Language: "go", Size: 12}
	b.HandleFileUploaded(context.Background(), "conn-a", FileUploadedPayload{RoomID: "room1", File: f})

	require.Empty(t, alice.byEvent(EvtFileUploaded))
	got := bob.byEvent(EvtFileUploaded)
	require.Len(t, got, 1)
	require.Equal(t, "main.go", got[0].Data.(fileBroadcast).File.Filename)
	require.Len(t, reg.Get("room1").Files(), 1)

	b.HandleFileDeleted(context.Background(), "conn-b", FileDeletedPayload{RoomID: "room1", Filename: "main.go"})
	require.Len(t, alice.byEvent(EvtFileDeleted), 1)
	require.Empty(t, bob.byEvent(EvtFileDeleted))
	require.Empty(t, reg.Get("room1").Files())
}

func TestLoadFileToEditorRelaysWithoutTouchingBuffer(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	bob := &fakeConn{id: "conn-b"}
	join(t, b, alice, "room1", "alice")
	join(t, b, bob, "room1", "bob")
	bob.reset()

	b.HandleLoadFileToEditor(context.Background(), "conn-a", LoadFilePayload{RoomID: "room1", Content: "x = 1", Language: "python"})

	got := bob.byEvent(EvtLoadFileToEditor)
	require.Len(t, got, 1)
	require.Equal(t, "x = 1", got[0].Data.(loadFileBroadcast).Content)
	require.Equal(t, domain.DefaultCode, reg.Get("room1").Code())
}

func TestMirrorFromRESTBroadcastsRoomWide(t *testing.T) {
	b, reg := newTestBroker(newRecordStore())
	alice := &fakeConn{id: "conn-a"}
	join(t, b, alice, "room1", "alice")
	alice.reset()

	f := domain.FileRecord{Filename: "notes.txt", Content: "n", Size: 1}
	b.MirrorFileUpserted("room1", f)
	require.Len(t, alice.byEvent(EvtFileUploaded), 1)
	require.Len(t, reg.Get("room1").Files(), 1)

	b.MirrorFileRemoved("room1", "notes.txt")
	require.Len(t, alice.byEvent(EvtFileDeleted), 1)
	require.Empty(t, reg.Get("room1").Files())

	// no live session: mirror is a no-op, not an error
	b.MirrorFileUpserted("ghost", f)
}
