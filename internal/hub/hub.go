package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 16
)

// wsConn is the subset of *websocket.Conn the hub writes to; tests
// substitute a fake.
type wsConn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Session is one live client connection. Outbound frames go through a
// buffered queue drained by a single writer goroutine, so a stalled
// peer's socket is never touched from a broadcast caller.
type Session struct {
	conn wsConn
	send chan []byte
	stop chan struct{}
	once sync.Once
}

func NewSession(conn wsConn) *Session {
	return &Session{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		stop: make(chan struct{}),
	}
}

func (s *Session) close() {
	s.once.Do(func() { close(s.stop) })
}

// enqueue hands a frame to the session's writer without blocking. A
// full queue means the peer has stopped draining its socket.
func (s *Session) enqueue(payload []byte) bool {
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// Hub owns the set of live sessions and fans events out to them.
// Registration, unregistration, and the broadcast snapshot all go
// through one mutex; delivery itself happens on per-session writer
// goroutines so a slow or dying peer cannot block set mutation or the
// broadcasting caller.
type Hub struct {
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		logger:   logger,
		sessions: make(map[*Session]struct{}),
	}
}

func (h *Hub) Register(s *Session) {
	if s == nil {
		return
	}
	h.mu.Lock()
	_, exists := h.sessions[s]
	if !exists {
		h.sessions[s] = struct{}{}
	}
	n := len(h.sessions)
	h.mu.Unlock()
	if exists {
		return
	}
	go h.writeLoop(s)
	if h.logger != nil {
		h.logger.Info("ws client connected", zap.Int("clients", n))
	}
}

// Unregister removes the session and stops its writer. Idempotent;
// dropping an already-removed session is a no-op.
func (h *Hub) Unregister(s *Session) {
	if s == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.sessions[s]
	if ok {
		delete(h.sessions, s)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return
	}
	s.close()
	if h.logger != nil {
		h.logger.Info("ws client disconnected", zap.Int("clients", n))
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) snapshot() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// Broadcast delivers ev to every live session. Best effort: a failed
// write drops that session and delivery continues for the rest.
func (h *Hub) Broadcast(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("marshal event failed", zap.String("type", ev.Type), zap.Error(err))
		}
		return
	}
	h.fanout(payload, nil)
}

// Relay forwards a raw client frame to every session except the sender.
// The payload is opaque to the server (kill-switch path): no schema, no
// persistence.
func (h *Hub) Relay(ctx context.Context, from *Session, raw []byte) {
	h.fanout(raw, from)
}

// fanout is fire-and-forget per session: frames are queued, not
// written, from the caller's goroutine, so one stalled peer cannot
// delay the ingestion response or another client's relay loop. A peer
// whose queue has filled up is dropped.
func (h *Hub) fanout(payload []byte, skip *Session) {
	for _, s := range h.snapshot() {
		if s == skip {
			continue
		}
		if !s.enqueue(payload) {
			if h.logger != nil {
				h.logger.Warn("ws send queue full, dropping client")
			}
			h.drop(s)
		}
	}
}

func (h *Hub) writeLoop(s *Session) {
	for {
		select {
		case <-s.stop:
			return
		case payload := <-s.send:
			wctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := s.conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				if h.logger != nil {
					h.logger.Warn("ws write failed, dropping client", zap.Error(err))
				}
				h.drop(s)
				return
			}
		}
	}
}

func (h *Hub) drop(s *Session) {
	h.Unregister(s)
	_ = s.conn.Close(websocket.StatusInternalError, "write failed")
}

// ServeWS upgrades the request and runs the session's read loop until
// the peer goes away. Every inbound text frame is relayed to the other
// live sessions.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("ws accept failed", zap.Error(err))
		}
		return
	}

	sess := NewSession(ws)
	h.Register(sess)
	defer func() {
		h.Unregister(sess)
		_ = ws.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		h.Relay(ctx, sess, data)
	}
}
