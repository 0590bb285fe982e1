package ws

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vishalkumjan/realtime-code-collab/config"
	"github.com/Vishalkumjan/realtime-code-collab/internal/collab"
	"github.com/Vishalkumjan/realtime-code-collab/internal/security"
)

func newTestServer(authRequired bool) *Server {
	broker := collab.NewBroker(collab.NewRegistry(), collab.NopStore{})
	signer := security.NewJWTSigner("test_secret", time.Hour)
	cfg := config.WS{
		PingInterval:   25 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
		SendBuffer:     4,
	}
	return NewServer(broker, signer, cfg, authRequired)
}

func TestDispatchTableCoversInboundEvents(t *testing.T) {
	srv := newTestServer(false)
	c := newWsConn("conn-1", nil, 4)

	table := srv.dispatchTable(c, "")

	want := []string{
		collab.EvtJoinRoom,
		collab.EvtLeaveRoom,
		collab.EvtCodeChange,
		collab.EvtLanguageChange,
		collab.EvtSendMessage,
		collab.EvtUserTyping,
		collab.EvtFileUploaded,
		collab.EvtFileDeleted,
		collab.EvtLoadFileToEditor,
	}
	require.Len(t, table, len(want))
	for _, evt := range want {
		require.Contains(t, table, evt)
	}
}

func TestAuthenticateGuestAccess(t *testing.T) {
	srv := newTestServer(false)

	// no token: guest
	r := httptest.NewRequest("GET", "/ws", nil)
	username, ok := srv.authenticate(r)
	require.True(t, ok)
	require.Empty(t, username)

	// garbage token degrades to guest as well
	r = httptest.NewRequest("GET", "/ws?access_token=bogus", nil)
	_, ok = srv.authenticate(r)
	require.True(t, ok)
}

func TestAuthenticateRequired(t *testing.T) {
	srv := newTestServer(true)

	r := httptest.NewRequest("GET", "/ws", nil)
	_, ok := srv.authenticate(r)
	require.False(t, ok)

	r = httptest.NewRequest("GET", "/ws?access_token=bogus", nil)
	_, ok = srv.authenticate(r)
	require.False(t, ok)

	token, err := srv.signer.SignAccessToken(7, "alice", time.Now())
	require.NoError(t, err)
	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	username, ok := srv.authenticate(r)
	require.True(t, ok)
	require.Equal(t, "alice", username)
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	c := newWsConn("conn-1", nil, 2)

	require.NoError(t, c.Send(collab.Message{Event: "a"}))
	require.NoError(t, c.Send(collab.Message{Event: "b"}))
	require.ErrorIs(t, c.Send(collab.Message{Event: "c"}), errSendBufferFull)

	c.closeOnce.Do(func() { close(c.closed) })
	require.ErrorIs(t, c.Send(collab.Message{Event: "d"}), errConnClosed)
}
