package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Event is the frame pushed to every client.
type Event struct {
	Type string                 `json:"type"`
	Data *models.Recommendation `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the connected dashboards and fans recommendations out to them.
// Clients that cannot keep up are dropped.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub(l *logger.Logger) *Hub {
	if l == nil {
		l = logger.Nop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:     l.With("ws"),
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/ws", h.Serve)
}

// Serve upgrades the request and keeps the connection until either side
// goes away.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.Error(err))
		return nil
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		return conn.Close()
	}
	h.log.Debug("client connected", logger.String("remote", c.RealIP()), logger.Int("clients", h.Clients()))

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

func (h *Hub) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// readPump only drains control frames; clients never send data.
func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("client read error", logger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast sends rec to every connected client.
func (h *Hub) Broadcast(rec *models.Recommendation) {
	if rec == nil {
		return
	}
	kind := "signal"
	if rec.Status != models.StatusPending {
		kind = "signal_update"
	}
	msg, err := json.Marshal(Event{Type: kind, Data: rec})
	if err != nil {
		h.log.Error("marshal broadcast", logger.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.log.Warn("dropping slow websocket client")
		h.remove(cl)
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
	return nil
}
