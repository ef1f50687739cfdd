package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Status is served on /api/status and read back by discovery.
type Status struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Clients int    `json:"clients"`
	Sent    uint64 `json:"sent"`
}

// Hub is a websocket server. Messages passed to Send are broadcast to
// every connected client as binary frames; binary frames received from
// clients go to the sink, when one is set.
type Hub struct {
	name   string
	sink   Sink
	logger *slog.Logger

	clients    map[*hubClient]struct{}
	clientsMu  sync.RWMutex
	broadcast  chan []byte
	register   chan *hubClient
	unregister chan *hubClient
	done       chan struct{}
	once       sync.Once
	sent       atomic.Uint64

	srv *http.Server
	ln  net.Listener
}

type hubClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	addr string
}

// NewHub creates a hub. sink may be nil for a broadcast-only hub.
func NewHub(name string, sink Sink, logger *slog.Logger) *Hub {
	h := &Hub{
		name:       name,
		sink:       sink,
		logger:     componentLogger(logger, "ws-hub"),
		clients:    make(map[*hubClient]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Handler returns the hub's routes: /ws, /health and /api/status.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/status", h.handleStatus)
	return h.recoverMiddleware(mux)
}

// ListenAndServe serves the hub on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("network: hub listen %s: %w", addr, err)
	}
	h.ln = ln
	h.srv = &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second}
	h.logger.Info("listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.srv.Shutdown(shutdownCtx)
	}()

	if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("network: hub: %w", err)
	}
	return nil
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.clientsMu.Unlock()
			h.logger.Info("client connected", "remote", c.addr, "clients", n)

		case c := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Info("client disconnected", "remote", c.addr, "clients", len(h.clients))
			}
			h.clientsMu.Unlock()

		case b := <-h.broadcast:
			h.fanOut(b)

		case <-h.done:
			h.clientsMu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.clientsMu.Unlock()
			return
		}
	}
}

func (h *Hub) fanOut(b []byte) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.logger.Warn("client too slow, dropping", "remote", c.addr)
			delete(h.clients, c)
			close(c.send)
		}
	}
	h.sent.Add(1)
}

// Send broadcasts an encoded message to all clients.
func (h *Hub) Send(b []byte) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.broadcast <- b:
		return nil
	case <-h.done:
		return ErrClosed
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients and stops the HTTP server if running.
func (h *Hub) Close() error {
	h.once.Do(func() {
		close(h.done)
		if h.srv != nil {
			h.srv.Close()
		}
	})
	return nil
}

func (h *Hub) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("handler panic", "path", r.URL.Path, "panic", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	role := "sender"
	if h.sink != nil {
		role = "server"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Status{
		Name:    h.name,
		Role:    role,
		Clients: h.Clients(),
		Sent:    h.sent.Load(),
	})
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "error", err)
		return
	}
	c := &hubClient{hub: h, conn: conn, send: make(chan []byte, 256), addr: r.RemoteAddr}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *hubClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("read failed", "remote", c.addr, "error", err)
			}
			return
		}
		if typ != websocket.BinaryMessage || c.hub.sink == nil {
			continue
		}
		if err := c.hub.sink.SendBytes(data); err != nil {
			c.hub.logger.Warn("message not delivered", "remote", c.addr, "error", err)
		}
	}
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case b, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
