package collab

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
	"github.com/Vishalkumjan/realtime-code-collab/pkg/metrics"
)

// Conn is one live bidirectional connection as the broker sees it.
// Send must not block: implementations enqueue on a buffered channel
// and drop when the peer cannot keep up.
type Conn interface {
	ID() string
	Send(msg Message) error
}

// Broker applies inbound events to room sessions and fans the results
// out. Per-room ordering: every handler holds the session mutex across
// mutation and fan-out enqueue, so two racing code-change events
// produce one deterministic final buffer and both broadcasts go out in
// application order.
type Broker struct {
	registry *Registry
	store    Store

	mu       sync.RWMutex
	conns    map[string]Conn
	connRoom map[string]string // a connection is in at most one room
}

func NewBroker(registry *Registry, store Store) *Broker {
	return &Broker{
		registry: registry,
		store:    store,
		conns:    make(map[string]Conn),
		connRoom: make(map[string]string),
	}
}

// Connect registers a connection before any join. Idempotent.
func (b *Broker) Connect(c Conn) {
	b.mu.Lock()
	b.conns[c.ID()] = c
	b.mu.Unlock()
}

// Disconnect removes the connection from its room (if any) and frees
// it. Events already accepted for the room still run to completion.
func (b *Broker) Disconnect(connID string) {
	b.mu.Lock()
	delete(b.conns, connID)
	roomID := b.connRoom[connID]
	delete(b.connRoom, connID)
	b.mu.Unlock()

	if roomID != "" {
		b.removeFromRoom(connID, roomID)
	}
}

// HandleJoin adds the connection to the room, evicting it from any
// previous room first. The joiner alone receives the code snapshot;
// the whole room receives the updated member list.
func (b *Broker) HandleJoin(ctx context.Context, c Conn, p JoinPayload) {
	metrics.EventsProcessed.WithLabelValues(EvtJoinRoom).Inc()
	if p.RoomID == "" {
		b.drop(EvtJoinRoom, "missing roomId", c.ID())
		return
	}
	connID := c.ID()
	username := p.Username
	if username == "" {
		username = connID
	}
	color := p.Color
	if color == "" {
		color = randomColor()
	}

	b.mu.Lock()
	b.conns[connID] = c
	prev := b.connRoom[connID]
	b.connRoom[connID] = p.RoomID
	b.mu.Unlock()

	if prev != "" && prev != p.RoomID {
		b.removeFromRoom(connID, prev)
	}

	m := domain.Member{ConnID: connID, Username: username, Color: color}

	// A last leave can destroy the session between our fetch and our
	// attach. Removal marks the session before dropping it from the
	// registry, so the attach re-checks the mark under the session
	// lock and refetches on loss. The retry always lands on a fresh
	// session: the mark and the map delete happen under one registry
	// lock hold.
	var list []domain.Member
	for {
		sess, created := b.registry.GetOrCreate(p.RoomID)
		if created {
			slog.Info("room session created", "room", p.RoomID)
			metrics.RoomsActive.Set(float64(b.registry.Len()))
		}
		sess.Hydrate(ctx, b.store)

		sess.mu.Lock()
		if sess.removed {
			sess.mu.Unlock()
			continue
		}
		sess.addMember(m)
		list = sess.memberList()
		snap := SnapshotPayload{Code: sess.code, Language: sess.language}
		b.fanOut(list, connID, Message{Event: EvtReceiveMessage, Data: systemChat(username + " joined the room")})
		_ = c.Send(Message{Event: EvtLoadCode, Data: snap})
		b.fanOut(list, "", Message{Event: EvtUsersUpdate, Data: list})
		sess.mu.Unlock()
		break
	}

	slog.Debug("join", "room", p.RoomID, "conn", connID, "username", username, "members", len(list))
}

// HandleLeave removes the connection from the room it claims; dropped
// as malformed if the connection is not a member.
func (b *Broker) HandleLeave(ctx context.Context, connID string, p LeavePayload) {
	metrics.EventsProcessed.WithLabelValues(EvtLeaveRoom).Inc()
	if p.RoomID == "" {
		b.drop(EvtLeaveRoom, "missing roomId", connID)
		return
	}
	b.mu.Lock()
	if b.connRoom[connID] != p.RoomID {
		b.mu.Unlock()
		b.drop(EvtLeaveRoom, "not a member", connID)
		return
	}
	delete(b.connRoom, connID)
	b.mu.Unlock()

	b.removeFromRoom(connID, p.RoomID)
}

// HandleCodeChange overwrites the room's code buffer (last write
// wins, no merge) and broadcasts to everyone except the sender.
// Persistence happens after the broadcast and never blocks it.
func (b *Broker) HandleCodeChange(ctx context.Context, connID string, p CodePayload) {
	metrics.EventsProcessed.WithLabelValues(EvtCodeChange).Inc()
	if p.RoomID == "" {
		b.drop(EvtCodeChange, "missing roomId", connID)
		return
	}
	sess := b.memberSession(connID, p.RoomID)
	if sess == nil {
		b.drop(EvtCodeChange, "not a member", connID)
		return
	}

	sess.mu.Lock()
	sess.code = p.Code
	list := sess.memberList()
	b.fanOut(list, connID, Message{Event: EvtCodeChange, Data: CodeBroadcast{Code: p.Code, Sender: connID}})
	sess.mu.Unlock()

	b.store.SaveSnapshot(p.RoomID, p.Code)
}

// HandleLanguageChange sets the room language and broadcasts to
// everyone except the sender.
func (b *Broker) HandleLanguageChange(ctx context.Context, connID string, p LanguagePayload) {
	metrics.EventsProcessed.WithLabelValues(EvtLanguageChange).Inc()
	if p.RoomID == "" || p.Language == "" {
		b.drop(EvtLanguageChange, "missing roomId or language", connID)
		return
	}
	sess := b.memberSession(connID, p.RoomID)
	if sess == nil {
		b.drop(EvtLanguageChange, "not a member", connID)
		return
	}

	sess.mu.Lock()
	sess.language = p.Language
	list := sess.memberList()
	b.fanOut(list, connID, Message{Event: EvtLanguageChange, Data: LanguageBroadcast{Language: p.Language}})
	sess.mu.Unlock()

	b.store.SaveLanguage(p.RoomID, p.Language)
}

// HandleSendMessage broadcasts a chat message to the whole room,
// sender included, then appends it to the durable chat log.
func (b *Broker) HandleSendMessage(ctx context.Context, connID string, p ChatPayload) {
	metrics.EventsProcessed.WithLabelValues(EvtSendMessage).Inc()
	text := strings.TrimSpace(p.Message)
	if p.RoomID == "" || text == "" {
		b.drop(EvtSendMessage, "missing roomId or empty message", connID)
		return
	}
	sess := b.registry.Get(p.RoomID)
	if sess == nil {
		b.drop(EvtSendMessage, "no such room", connID)
		return
	}

	sess.mu.Lock()
	senderName := "Guest"
	if m, ok := sess.member(connID); ok {
		senderName = m.Username
	}
	bc := ChatBroadcast{
		SenderID:   connID,
		SenderName: senderName,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	list := sess.memberList()
	b.fanOut(list, "", Message{Event: EvtReceiveMessage, Data: bc})
	sess.mu.Unlock()

	b.store.AppendMessage(p.RoomID, connID, senderName, text)
}

// HandleTyping relays a typing indicator to everyone except the
// sender. Nothing is tracked server-side; expiry is the client's job.
func (b *Broker) HandleTyping(ctx context.Context, connID string, p TypingPayload) {
	metrics.EventsProcessed.WithLabelValues(EvtUserTyping).Inc()
	if p.RoomID == "" {
		b.drop(EvtUserTyping, "missing roomId", connID)
		return
	}
	sess := b.registry.Get(p.RoomID)
	if sess == nil {
		b.drop(EvtUserTyping, "no such room", connID)
		return
	}

	sess.mu.Lock()
	username := p.Username
	if m, ok := sess.member(connID); ok {
		username = m.Username
	}
	list := sess.memberList()
	b.fanOut(list, connID, Message{Event: EvtUserTyping, Data: TypingBroadcast{Username: username}})
	sess.mu.Unlock()
}

// HandleFileUploaded mirrors an uploaded file into the session and
// broadcasts it to everyone except the sender.
func (b *Broker) HandleFileUploaded(ctx context.Context, connID string, p FileUploadedPayload) {
	metrics.EventsProcessed.WithLabelValues(EvtFileUploaded).Inc()
	if p.RoomID == "" || p.File.Filename == "" {
		b.drop(EvtFileUploaded, "missing roomId or filename", connID)
		return
	}
	sess := b.registry.Get(p.RoomID)
	if sess == nil {
		b.drop(EvtFileUploaded, "no such room", connID)
		return
	}

	sess.mu.Lock()
	sess.upsertFile(p.File)
	list := sess.memberList()
	b.fanOut(list, connID, Message{Event: EvtFileUploaded, Data: fileBroadcast{File: p.File}})
	sess.mu.Unlock()
}

// HandleFileDeleted removes the file record and broadcasts the
// deletion to everyone except the sender.
func (b *Broker) HandleFileDeleted(ctx context.Context, connID string, p FileDeletedPayload) {
	metrics.EventsProcessed.WithLabelValues(EvtFileDeleted).Inc()
	if p.RoomID == "" || p.Filename == "" {
		b.drop(EvtFileDeleted, "missing roomId or filename", connID)
		return
	}
	sess := b.registry.Get(p.RoomID)
	if sess == nil {
		b.drop(EvtFileDeleted, "no such room", connID)
		return
	}

	sess.mu.Lock()
	sess.removeFile(p.Filename)
	list := sess.memberList()
	b.fanOut(list, connID, Message{Event: EvtFileDeleted, Data: fileDeletedBroadcast{Filename: p.Filename}})
	sess.mu.Unlock()
}

// HandleLoadFileToEditor relays file content into the other members'
// editors. The code buffer itself is only changed by code-change.
func (b *Broker) HandleLoadFileToEditor(ctx context.Context, connID string, p LoadFilePayload) {
	metrics.EventsProcessed.WithLabelValues(EvtLoadFileToEditor).Inc()
	if p.RoomID == "" {
		b.drop(EvtLoadFileToEditor, "missing roomId", connID)
		return
	}
	sess := b.registry.Get(p.RoomID)
	if sess == nil {
		b.drop(EvtLoadFileToEditor, "no such room", connID)
		return
	}

	sess.mu.Lock()
	list := sess.memberList()
	b.fanOut(list, connID, Message{Event: EvtLoadFileToEditor, Data: loadFileBroadcast{Content: p.Content, Language: p.Language}})
	sess.mu.Unlock()
}

// MirrorFileUpserted syncs a REST upload into the live session, if
// one exists, and broadcasts room-wide (the uploader is not a socket).
func (b *Broker) MirrorFileUpserted(roomID string, f domain.FileRecord) {
	sess := b.registry.Get(roomID)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	sess.upsertFile(f)
	list := sess.memberList()
	b.fanOut(list, "", Message{Event: EvtFileUploaded, Data: fileBroadcast{File: f}})
	sess.mu.Unlock()
}

// MirrorFileRemoved syncs a REST deletion into the live session.
func (b *Broker) MirrorFileRemoved(roomID, filename string) {
	sess := b.registry.Get(roomID)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	sess.removeFile(filename)
	list := sess.memberList()
	b.fanOut(list, "", Message{Event: EvtFileDeleted, Data: fileDeletedBroadcast{Filename: filename}})
	sess.mu.Unlock()
}

// removeFromRoom removes the member, notifies the remaining members,
// and destroys the session when it empties.
func (b *Broker) removeFromRoom(connID, roomID string) {
	sess := b.registry.Get(roomID)
	if sess == nil {
		// membership index said the conn was here; log, don't crash
		slog.Warn("remove from unknown room", "room", roomID, "conn", connID)
		return
	}

	sess.mu.Lock()
	m, ok := sess.removeMember(connID)
	var empty bool
	if ok {
		list := sess.memberList()
		b.fanOut(list, "", Message{Event: EvtReceiveMessage, Data: systemChat(m.Username + " left the room")})
		b.fanOut(list, "", Message{Event: EvtUsersUpdate, Data: list})
		empty = len(list) == 0
	}
	sess.mu.Unlock()

	if !ok {
		slog.Debug("leave for non-member", "room", roomID, "conn", connID)
		return
	}
	if empty && b.registry.Remove(roomID) {
		slog.Info("room session destroyed", "room", roomID)
		metrics.RoomsActive.Set(float64(b.registry.Len()))
	}
}

// memberSession returns the session only if the connection is a
// current member of that room.
func (b *Broker) memberSession(connID, roomID string) *Session {
	b.mu.RLock()
	member := b.connRoom[connID] == roomID
	b.mu.RUnlock()
	if !member {
		return nil
	}
	return b.registry.Get(roomID)
}

// fanOut enqueues msg to every listed member except the excluded
// connection id. Callers hold the session mutex, which is what keeps
// broadcasts in application order; sends themselves never block.
func (b *Broker) fanOut(members []domain.Member, except string, msg Message) {
	for _, m := range members {
		if m.ConnID == except {
			continue
		}
		b.mu.RLock()
		c := b.conns[m.ConnID]
		b.mu.RUnlock()
		if c != nil {
			_ = c.Send(msg)
			metrics.Broadcasts.Inc()
		}
	}
}

func (b *Broker) drop(event, reason, connID string) {
	metrics.EventsDropped.Inc()
	slog.Debug("event dropped", "event", event, "reason", reason, "conn", connID)
}

func systemChat(text string) ChatBroadcast {
	return ChatBroadcast{SenderName: "System", Text: text, CreatedAt: time.Now().UTC()}
}

func randomColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}

type fileBroadcast struct {
	File domain.FileRecord `json:"file"`
}

type fileDeletedBroadcast struct {
	Filename string `json:"filename"`
}

type loadFileBroadcast struct {
	Content  string `json:"content"`
	Language string `json:"language"`
}
