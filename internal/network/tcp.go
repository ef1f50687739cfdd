package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"
)

const tcpReadTimeout = 5 * time.Second

// TCPListener accepts one message per connection: the peer writes the
// encoded message and closes its side.
type TCPListener struct {
	ln     net.Listener
	sink   Sink
	logger *slog.Logger
}

// ListenTCP binds addr, such as ":7878".
func ListenTCP(addr string, sink Sink, logger *slog.Logger) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("network: listen %s: %w", addr, err)
	}
	l := &TCPListener{ln: ln, sink: sink, logger: componentLogger(logger, "tcp")}
	l.logger.Info("listening", "addr", ln.Addr().String())
	return l, nil
}

// Addr returns the bound address.
func (l *TCPListener) Addr() net.Addr { return l.ln.Addr() }

// Serve accepts connections until ctx is done or the listener is closed.
// Connections are read one at a time so messages reach the sink in accept
// order; the read deadline bounds how long one peer can hold the queue.
func (l *TCPListener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("network: accept: %w", err)
		}
		l.handle(conn)
	}
}

func (l *TCPListener) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(tcpReadTimeout))
	b, err := io.ReadAll(io.LimitReader(conn, maxMessage))
	if err != nil {
		l.logger.Debug("read failed", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}
	if len(b) == 0 {
		return
	}
	if err := l.sink.SendBytes(b); err != nil {
		l.logger.Warn("message not delivered", "error", err)
	}
}

// Close stops accepting connections.
func (l *TCPListener) Close() error { return l.ln.Close() }

// TCPSender opens a connection per message.
type TCPSender struct {
	addr    string
	timeout time.Duration
}

func NewTCPSender(addr string) *TCPSender {
	return &TCPSender{addr: addr, timeout: 2 * time.Second}
}

func (s *TCPSender) Send(b []byte) error {
	conn, err := net.DialTimeout("tcp", s.addr, s.timeout)
	if err != nil {
		return fmt.Errorf("network: dial %s: %w", s.addr, err)
	}
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(s.timeout))
	if _, err := conn.Write(b); err != nil {
		return fmt.Errorf("network: write %s: %w", s.addr, err)
	}
	return nil
}

func (s *TCPSender) Close() error { return nil }
