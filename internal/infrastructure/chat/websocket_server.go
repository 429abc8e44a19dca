package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServerConfig carries the websocket keepalive and limit settings.
type ServerConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		PingInterval:   30 * time.Second,
		PongTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 16 * 1024,
	}
}

// ClientMessage is what a connected viewer sends: a chat submission or a
// session op addressed to their own controller.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type chatPayload struct {
	Text string `json:"text"`
}

type opPayload struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// ConnectionObserver gets connect/disconnect and message notifications;
// satisfied by the Prometheus collector.
type ConnectionObserver interface {
	ChatClientConnected()
	ChatClientDisconnected()
	RecordChatMessage(origin string)
}

type client struct {
	conn   *websocket.Conn
	author string

	mu sync.Mutex // serializes writes to conn
}

func (c *client) writeJSON(timeout time.Duration, v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteJSON(v)
}

// Server is the websocket chat surface. Each connection joins one livestream
// room; submitted messages run through the chat service and broadcast to the
// room, and session ops are dispatched to the viewer's own controller.
type Server struct {
	cfg      ServerConfig
	chat     ports.ChatService
	sessions ports.SessionManager
	observer ConnectionObserver
	logger   *zap.SugaredLogger

	mu    sync.RWMutex
	rooms map[domain.LivestreamID]map[*client]struct{}
}

func NewServer(
	cfg ServerConfig,
	chat ports.ChatService,
	sessions ports.SessionManager,
	observer ConnectionObserver,
	logger *zap.SugaredLogger,
) *Server {
	return &Server{
		cfg:      cfg,
		chat:     chat,
		sessions: sessions,
		observer: observer,
		logger:   logger,
		rooms:    make(map[domain.LivestreamID]map[*client]struct{}),
	}
}

// HandleWebSocket upgrades the connection and runs the read/ping loop until
// the client disconnects.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	livestreamID := domain.LivestreamID(r.URL.Query().Get("livestream_id"))
	author := r.URL.Query().Get("author")
	sessionID := domain.SessionID(r.URL.Query().Get("session_id"))

	if livestreamID == "" || author == "" {
		http.Error(w, "livestream_id and author are required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateAuthor(author); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	cl := &client{conn: conn, author: author}
	s.join(livestreamID, cl)
	defer s.leave(livestreamID, cl)

	if s.observer != nil {
		s.observer.ChatClientConnected()
		defer s.observer.ChatClientDisconnected()
	}

	s.logger.Infow("chat client connected",
		"livestream_id", livestreamID, "author", author, "session_id", sessionID)

	conn.SetReadLimit(s.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan ClientMessage, 10)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
			messageChan <- msg
		}
	}()

	for {
		select {
		case msg := <-messageChan:
			if err := s.handleMessage(r.Context(), livestreamID, sessionID, cl, msg); err != nil {
				s.logger.Infow("error handling client message",
					"livestream_id", livestreamID, "author", author, "error", err)
				s.sendError(cl, err.Error())
			}

		case <-pingTicker.C:
			cl.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			cl.mu.Unlock()
			if err != nil {
				s.logger.Infow("error sending ping", "author", author, "error", err)
				return
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading client message", "author", author, "error", err)
			}
			s.logger.Infow("chat client disconnected",
				"livestream_id", livestreamID, "author", author)
			return
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, livestreamID domain.LivestreamID, sessionID domain.SessionID, cl *client, msg ClientMessage) error {
	switch msg.Type {
	case "chat":
		var payload chatPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid chat payload: %w", err)
		}
		stored, err := s.chat.Submit(ctx, livestreamID, cl.author, payload.Text)
		if err != nil {
			return err
		}
		if stored == nil {
			// Blank submission, nothing to broadcast.
			return nil
		}
		if s.observer != nil {
			s.observer.RecordChatMessage("local")
		}
		s.BroadcastMessage(livestreamID, stored)
		return nil

	case "op":
		var payload opPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid op payload: %w", err)
		}
		if sessionID == "" {
			return fmt.Errorf("session_id is required for ops")
		}
		ctrl, err := s.sessions.Get(sessionID)
		if err != nil {
			return err
		}
		op := domain.Op{Kind: domain.OpKind(payload.Kind), Text: payload.Text}
		if !op.Valid() {
			return fmt.Errorf("unknown op kind: %s", payload.Kind)
		}
		if err := ctrl.Dispatch(ctx, op); err != nil {
			// Busy-skip is the lock doing its job, not a client fault.
			if err == domain.ErrOperationInFlight {
				s.logger.Debugw("op skipped, controller busy",
					"session_id", sessionID, "op", payload.Kind)
				return nil
			}
			return err
		}
		return cl.writeJSON(s.cfg.WriteTimeout, map[string]interface{}{
			"type":  "state",
			"state": ctrl.State(),
		})

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

// BroadcastMessage pushes a chat message to every client in the room. Used
// for local submissions and for messages arriving off the cross-instance bus.
func (s *Server) BroadcastMessage(livestreamID domain.LivestreamID, msg *domain.ChatMessage) {
	s.mu.RLock()
	room := make([]*client, 0, len(s.rooms[livestreamID]))
	for cl := range s.rooms[livestreamID] {
		room = append(room, cl)
	}
	s.mu.RUnlock()

	payload := map[string]interface{}{
		"type":    "chat",
		"message": msg,
	}
	for _, cl := range room {
		if err := cl.writeJSON(s.cfg.WriteTimeout, payload); err != nil {
			s.logger.Debugw("failed to deliver chat message",
				"livestream_id", livestreamID, "author", cl.author, "error", err)
		}
	}
}

// HandleRemoteMessage is the cross-instance bus callback.
func (s *Server) HandleRemoteMessage(msg *domain.ChatMessage) error {
	if s.observer != nil {
		s.observer.RecordChatMessage("remote")
	}
	s.BroadcastMessage(msg.LivestreamID, msg)
	return nil
}

func (s *Server) ConnectedClients(livestreamID domain.LivestreamID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[livestreamID])
}

func (s *Server) join(livestreamID domain.LivestreamID, cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[livestreamID]
	if !ok {
		room = make(map[*client]struct{})
		s.rooms[livestreamID] = room
	}
	room[cl] = struct{}{}
}

func (s *Server) leave(livestreamID domain.LivestreamID, cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[livestreamID]
	if !ok {
		return
	}
	delete(room, cl)
	if len(room) == 0 {
		delete(s.rooms, livestreamID)
	}
}

func (s *Server) sendError(cl *client, message string) {
	_ = cl.writeJSON(s.cfg.WriteTimeout, map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
