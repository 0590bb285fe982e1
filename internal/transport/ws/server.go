// Package ws is the realtime gateway: it upgrades HTTP connections,
// authenticates them, and feeds decoded events into the broker.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Vishalkumjan/realtime-code-collab/config"
	"github.com/Vishalkumjan/realtime-code-collab/internal/collab"
	"github.com/Vishalkumjan/realtime-code-collab/internal/security"
	"github.com/Vishalkumjan/realtime-code-collab/pkg/metrics"
)

type Server struct {
	upgrader websocket.Upgrader
	broker   *collab.Broker
	signer   *security.JWTSigner

	authRequired   bool
	pingInterval   time.Duration
	writeTimeout   time.Duration
	maxMessageSize int64
	sendBuffer     int
}

func NewServer(broker *collab.Broker, signer *security.JWTSigner, cfg config.WS, authRequired bool) *Server {
	return &Server{
		broker: broker,
		signer: signer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		authRequired:   authRequired,
		pingInterval:   cfg.PingInterval,
		writeTimeout:   cfg.WriteTimeout,
		maxMessageSize: cfg.MaxMessageSize,
		sendBuffer:     cfg.SendBuffer,
	}
}

// WS endpoint: GET /ws?access_token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	username, ok := s.authenticate(r)
	if !ok {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(uuid.NewString(), conn, s.sendBuffer)
	s.broker.Connect(c)
	metrics.ConnectionsOpen.Inc()
	slog.Debug("ws connected", "conn", c.ID(), "username", username)

	go c.writeLoop(s.pingInterval, s.writeTimeout)
	s.readLoop(r.Context(), c, username)

	s.broker.Disconnect(c.ID())
	metrics.ConnectionsOpen.Dec()
	_ = c.Close()
	slog.Debug("ws disconnected", "conn", c.ID())
}

// authenticate resolves the username from an access token, when one
// is presented. Tokenless connections are allowed unless auth is
// required; they join as guests.
func (s *Server) authenticate(r *http.Request) (string, bool) {
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token == "" {
		return "", !s.authRequired
	}
	claims, err := s.signer.ParseAndValidate(token)
	if err != nil {
		return "", !s.authRequired
	}
	return claims.Username, true
}

// readLoop owns the websocket read side. Each frame is an envelope
// dispatched to the matching broker handler; unknown events and bad
// payloads are dropped, never fatal.
func (s *Server) readLoop(ctx context.Context, c *wsConn, authUsername string) {
	c.conn.SetReadLimit(s.maxMessageSize)
	pongWait := 2 * s.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	handlers := s.dispatchTable(c, authUsername)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("ws read failed", "conn", c.ID(), "err", err)
			}
			return
		}
		var env collab.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Debug("ws bad frame", "conn", c.ID(), "err", err)
			continue
		}
		h, ok := handlers[env.Event]
		if !ok {
			slog.Debug("ws unknown event", "conn", c.ID(), "event", env.Event)
			continue
		}
		h(ctx, env.Data)
	}
}

// dispatchTable binds each inbound event to its broker handler for
// this connection. Payload decode failures drop the frame.
func (s *Server) dispatchTable(c *wsConn, authUsername string) map[string]func(context.Context, json.RawMessage) {
	connID := c.ID()
	return map[string]func(context.Context, json.RawMessage){
		collab.EvtJoinRoom: func(ctx context.Context, raw json.RawMessage) {
			var p collab.JoinPayload
			if !decode(raw, &p, connID) {
				return
			}
			if p.Username == "" {
				p.Username = authUsername
			}
			s.broker.HandleJoin(ctx, c, p)
		},
		collab.EvtLeaveRoom: func(ctx context.Context, raw json.RawMessage) {
			var p collab.LeavePayload
			if !decode(raw, &p, connID) {
				return
			}
			s.broker.HandleLeave(ctx, connID, p)
		},
		collab.EvtCodeChange: func(ctx context.Context, raw json.RawMessage) {
			var p collab.CodePayload
			if !decode(raw, &p, connID) {
				return
			}
			s.broker.HandleCodeChange(ctx, connID, p)
		},
		collab.EvtLanguageChange: func(ctx context.Context, raw json.RawMessage) {
			var p collab.LanguagePayload
			if !decode(raw, &p, connID) {
				return
			}
			s.broker.HandleLanguageChange(ctx, connID, p)
		},
		collab.EvtSendMessage: func(ctx context.Context, raw json.RawMessage) {
			var p collab.ChatPayload
			if !decode(raw, &p, connID) {
				return
			}
			s.broker.HandleSendMessage(ctx, connID, p)
		},
		collab.EvtUserTyping: func(ctx context.Context, raw json.RawMessage) {
			var p collab.TypingPayload
			if !decode(raw, &p, connID) {
				return
			}
			s.broker.HandleTyping(ctx, connID, p)
		},
		collab.EvtFileUploaded: func(ctx context.Context, raw json.RawMessage) {
			var p collab.FileUploadedPayload
			if !decode(raw, &p, connID) {
				return
			}
			s.broker.HandleFileUploaded(ctx, connID, p)
		},
		collab.EvtFileDeleted: func(ctx context.Context, raw json.RawMessage) {
			var p collab.FileDeletedPayload
			if !decode(raw, &p, connID) {
				return
			}
			s.broker.HandleFileDeleted(ctx, connID, p)
		},
		collab.EvtLoadFileToEditor: func(ctx context.Context, raw json.RawMessage) {
			var p collab.LoadFilePayload
			if !decode(raw, &p, connID) {
				return
			}
			s.broker.HandleLoadFileToEditor(ctx, connID, p)
		},
	}
}

func decode(raw json.RawMessage, dst any, connID string) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.EventsDropped.Inc()
		slog.Debug("ws bad payload", "conn", connID, "err", err)
		return false
	}
	return true
}
