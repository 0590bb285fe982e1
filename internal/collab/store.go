package collab

import "context"

// Snapshot is the durable code+language state of a room.
type Snapshot struct {
	Code     string
	Language string
}

// Store is the durability bridge the broker persists through. Saves
// are fire-and-forget: implementations log failures and never block
// the broadcast path. LoadSnapshot returns (nil, nil) when no record
// exists.
type Store interface {
	LoadSnapshot(ctx context.Context, roomID string) (*Snapshot, error)
	SaveSnapshot(roomID, code string)
	SaveLanguage(roomID, language string)
	AppendMessage(roomID, senderID, senderName, text string)
}

// NopStore is a Store that remembers nothing. Used in tests and when
// running without a database.
type NopStore struct{}

func (NopStore) LoadSnapshot(context.Context, string) (*Snapshot, error) { return nil, nil }
func (NopStore) SaveSnapshot(string, string)                             {}
func (NopStore) SaveLanguage(string, string)                             {}
func (NopStore) AppendMessage(string, string, string, string)            {}
