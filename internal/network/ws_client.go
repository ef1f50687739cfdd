package network

import (
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient keeps a websocket connection to a Hub. Binary messages from
// the hub go to the sink; Send writes messages to the hub. The connection
// is re-established every RetryInterval after it drops.
type WSClient struct {
	hubAddr string
	sink    Sink
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	logger  *slog.Logger

	RetryInterval time.Duration

	mu          sync.Mutex
	isConnected bool
}

// NewWSClient creates a client for the hub at "host:port". sink may be nil.
func NewWSClient(hubAddr string, sink Sink, logger *slog.Logger) *WSClient {
	return &WSClient{
		hubAddr:       hubAddr,
		sink:          sink,
		send:          make(chan []byte, 100),
		done:          make(chan struct{}),
		logger:        componentLogger(logger, "ws-client"),
		RetryInterval: 5 * time.Second,
	}
}

// Start begins the connect loop.
func (c *WSClient) Start() {
	go c.loop()
}

func (c *WSClient) loop() {
	for {
		c.connect()
		select {
		case <-c.done:
			return
		case <-time.After(c.RetryInterval):
			c.logger.Debug("reconnecting")
		}
	}
}

func (c *WSClient) connect() {
	u := url.URL{Scheme: "ws", Host: c.hubAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		c.logger.Warn("connect failed", "url", u.String(), "error", err)
		return
	}
	defer conn.Close()

	c.setConnected(true)
	defer c.setConnected(false)
	c.logger.Info("connected", "url", u.String())

	stop := make(chan struct{})
	connDone := make(chan struct{})
	go func() {
		defer close(connDone)
		c.writePump(conn, stop)
	}()

	c.readPump(conn)
	close(stop)
	<-connDone
}

func (c *WSClient) setConnected(v bool) {
	c.mu.Lock()
	c.isConnected = v
	c.mu.Unlock()
}

func (c *WSClient) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessage)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}
		if typ != websocket.BinaryMessage || c.sink == nil {
			continue
		}
		if err := c.sink.SendBytes(data); err != nil {
			c.logger.Warn("message not delivered", "error", err)
		}
	}
}

// writePump returns when a write fails, the read side stops or the
// client is closed.
func (c *WSClient) writePump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case b := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				c.logger.Warn("write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			return
		case <-stop:
			return
		}
	}
}

// Send queues b for the hub. Messages queued while disconnected are sent
// after the next connect.
func (c *WSClient) Send(b []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	case c.send <- b:
		return nil
	}
}

// IsConnected reports whether the client currently holds a connection.
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

// Close stops the client.
func (c *WSClient) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
