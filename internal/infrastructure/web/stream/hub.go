// Package stream pushes widget changes to websocket clients
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/application/widgets"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"
)

const (
	DefaultPingInterval = 30 * time.Second
	WriteWait           = 10 * time.Second
	ReadBufferSize      = 1024
	WriteBufferSize     = 1024
	sendBuffer          = 64
	maxReadBytes        = 512
)

// Subscriber is the source of widget events
type Subscriber interface {
	Subscribe(fn func(widgets.Event)) func()
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub fans store events out to every connected client. A client that
// cannot keep up is disconnected.
type Hub struct {
	upgrader     websocket.Upgrader
	mu           sync.Mutex
	clients      map[*client]struct{}
	closed       bool
	pingInterval time.Duration
	unsubscribe  func()
	now          func() time.Time
}

// NewHub subscribes to source. origins lists the allowed Origin headers;
// "*" allows any.
func NewHub(source Subscriber, origins []string, pingInterval time.Duration) *Hub {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	h := &Hub{
		clients:      make(map[*client]struct{}),
		pingInterval: pingInterval,
		now:          time.Now,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  ReadBufferSize,
		WriteBufferSize: WriteBufferSize,
		CheckOrigin:     originChecker(origins),
	}
	h.unsubscribe = source.Subscribe(h.broadcast)
	return h
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.WarnWithError(ctx, "WebSocket upgrade failed", err, nil)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(WriteWait))
		_ = conn.Close()
		return
	}

	logging.Info(ctx, "Stream client connected", logging.Fields{"clients": h.Clients()})

	go h.writePump(c)
	h.readPump(ctx, c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.SetStreamClients(len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		metrics.SetStreamClients(len(h.clients))
	}
	h.mu.Unlock()
	c.close()
}

// readPump discards client messages and keeps the read deadline fresh
func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		h.unregister(c)
		logging.Debug(ctx, "Stream client disconnected", nil)
	}()

	pongWait := 2 * h.pingInterval
	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		h.unregister(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcast runs on the store's publishing goroutine and must not block
func (h *Hub) broadcast(ev widgets.Event) {
	payload, err := json.Marshal(dto.ToStreamMessage(ev, h.now()))
	if err != nil {
		logging.ErrorWithError(context.Background(), "Failed to encode stream message", err, logging.Fields{
			"event_type": string(ev.Type),
		})
		return
	}

	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		logging.Warn(context.Background(), "Dropping slow stream client", nil)
		h.unregister(c)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close stops listening to the store and disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	metrics.SetStreamClients(0)
	h.mu.Unlock()

	h.unsubscribe()
	deadline := time.Now().Add(WriteWait)
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		c.close()
	}
}
