package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/emilythestrangee/forum/backend/internal/auth"
	"github.com/emilythestrangee/forum/backend/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

var (
	ErrSessionNotFound = errors.New("realtime session not found")
	ErrSessionSlow     = errors.New("realtime session send buffer full")
	ErrHubClosed       = errors.New("realtime hub closed")
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// HandlerFunc processes one inbound event for a session. Handlers for a
// session run one at a time, in arrival order.
type HandlerFunc func(ctx context.Context, s *Session, data json.RawMessage)

// Session is one websocket connection.
type Session struct {
	ID       string
	Identity auth.Identity

	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// Hub tracks live sessions and routes inbound events to handlers.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	handlers map[string]HandlerFunc
	closed   bool

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a hub accepting upgrades from the given origins; "*"
// accepts any origin.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		sessions: make(map[string]*Session),
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, u.Scheme+"://"+u.Host)
	}
}

// Handle registers fn for inbound frames whose event is name.
func (h *Hub) Handle(name string, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[name] = fn
}

// Serve upgrades the request and runs the session until the peer goes away.
// It blocks for the lifetime of the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, identity auth.Identity) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrading connection: %w", err)
	}

	s := &Session{
		ID:       uuid.NewString(),
		Identity: identity,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return ErrHubClosed
	}
	h.sessions[s.ID] = s
	h.mu.Unlock()

	logger := h.logger.With("session_id", s.ID, "user_id", identity.UserID)
	ctx, cancel := context.WithCancel(logging.ContextWithLogger(r.Context(), logger))
	defer cancel()

	logger.DebugContext(ctx, "realtime session opened")
	go s.writePump()
	s.readPump(ctx)
	logger.DebugContext(ctx, "realtime session closed")
	return nil
}

// Emit sends an event to exactly one session.
func (h *Hub) Emit(sessionID, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", event, err)
	}

	h.mu.RLock()
	s, ok := h.sessions[sessionID]
	if !ok {
		h.mu.RUnlock()
		return ErrSessionNotFound
	}
	select {
	case s.send <- frame:
		h.mu.RUnlock()
		return nil
	default:
		h.mu.RUnlock()
		s.close()
		return ErrSessionSlow
	}
}

// Len is the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close disconnects every session. Upgrades after Close are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

func (h *Hub) handler(event string) (HandlerFunc, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.handlers[event]
	return fn, ok
}

// close unregisters the session and stops its write pump, which in turn
// closes the connection and unblocks the read pump.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.sessions, s.ID)
		close(s.send)
		s.hub.mu.Unlock()
	})
}

func (s *Session) readPump(ctx context.Context) {
	defer func() {
		s.close()
		_ = s.conn.Close()
	}()

	logger := logging.FromContext(ctx)
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnContext(ctx, "realtime read failed", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			logger.DebugContext(ctx, "dropping undecodable frame", "error", err)
			continue
		}

		fn, ok := s.hub.handler(msg.Event)
		if !ok {
			logger.DebugContext(ctx, "dropping unknown event", "event", msg.Event)
			continue
		}
		fn(ctx, s, msg.Data)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
