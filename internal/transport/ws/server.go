package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/wavechat/chat-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type MessageSvc interface {
	Post(ctx context.Context, roomID, sender, content string) (*domain.Message, error)
}

type Config struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	msgSvc   MessageSvc

	pingEvery    time.Duration
	writeTimeout time.Duration
}

func NewServer(hub *Hub, msg MessageSvc, cfg Config) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Server{
		hub:    hub,
		msgSvc: msg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:    cfg.PingInterval,
		writeTimeout: cfg.WriteTimeout,
	}
}

// WS endpoint: GET /ws/rooms/{id}
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, s.writeTimeout)
	s.hub.Join(roomID, c)

	// Leave must run exactly once on every exit path, including a panic
	// inside the read loop; the registry never keeps dead connections.
	defer func() {
		s.hub.Leave(roomID, c)
		_ = c.Close()
	}()

	go s.pingLoop(r.Context(), c)
	s.readLoop(r.Context(), roomID, c)
}

// readLoop processes inbound frames in receipt order: persist first, fan
// out only after the store assigned an id. It returns when the peer
// disconnects, the read deadline lapses, or a frame is not valid JSON.
func (s *Server) readLoop(ctx context.Context, roomID string, c *wsConn) {
	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var in InboundFrame
		if err := json.Unmarshal(data, &in); err != nil {
			slog.Debug("ws frame not json, closing", "room", roomID, "err", err)
			return
		}

		msg, err := s.msgSvc.Post(ctx, roomID, in.Sender, in.Content)
		if err != nil {
			// The frame is skipped but the connection survives; only the
			// sender learns about the failure.
			slog.Warn("ws message save failed", "room", roomID, "err", err)
			_ = c.writeJSON(ErrorFrame{Error: "message not saved"})
			continue
		}

		// Synchronous on purpose: keeps broadcasts of one connection in
		// receipt order. Slow subscribers are bounded by the write timeout.
		s.hub.Broadcast(roomID, NewMessageFrame(msg))
	}
}

func (s *Server) pingLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// wsConn serializes writes to one gorilla connection. The channel acts as a
// mutex so broadcast sends and error acks never interleave a frame.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	sendMu       chan struct{}
	closeOnce    sync.Once
	closed       chan struct{}
}

func newWsConn(c *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		conn:         c,
		writeTimeout: writeTimeout,
		sendMu:       make(chan struct{}, 1),
		closed:       make(chan struct{}),
	}
}

func (c *wsConn) Send(frame MessageFrame) error {
	return c.writeJSON(frame)
}

func (c *wsConn) writeJSON(v any) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))

	return c.conn.WriteJSON(v)
}

// Close may race between the lifecycle defer and a broadcast dropping the
// same connection; the Once keeps the closed channel single-shot.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })

	return c.conn.Close()
}
