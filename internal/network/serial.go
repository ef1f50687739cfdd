package network

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"keyrelay/internal/protocol"
)

// DefaultBaud is used when no baud rate is configured.
const DefaultBaud = 115200

// OpenSerial opens a serial line at baud, 8N1.
func OpenSerial(path string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("network: open serial %s: %w", path, err)
	}
	return port, nil
}

// SerialPorts lists the serial devices present on the system.
func SerialPorts() ([]string, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("network: list serial ports: %w", err)
	}
	return names, nil
}

// StreamSender writes length-framed messages to a stream such as a
// serial line.
type StreamSender struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func NewStreamSender(w io.WriteCloser) *StreamSender {
	return &StreamSender{w: w}
}

func (s *StreamSender) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return ErrClosed
	}
	return protocol.WriteFrame(s.w, b)
}

func (s *StreamSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}

// ServeStream reads length-framed messages from r and passes them to sink
// until r ends. A clean end of stream returns nil.
func ServeStream(r io.Reader, sink Sink, logger *slog.Logger) error {
	logger = componentLogger(logger, "stream")
	for {
		b, err := protocol.ReadFrame(r)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("network: read frame: %w", err)
		}
		if err := sink.SendBytes(b); err != nil {
			logger.Warn("message not delivered", "error", err)
		}
	}
}

// ServeSerial opens path and serves framed messages from it in the
// background. Closing the returned port ends serving; the channel
// reports why serving stopped.
func ServeSerial(path string, baud int, sink Sink, logger *slog.Logger) (io.Closer, <-chan error, error) {
	port, err := OpenSerial(path, baud)
	if err != nil {
		return nil, nil, err
	}
	port.SetReadTimeout(serial.NoTimeout)
	componentLogger(logger, "serial").Info("serving", "port", path, "baud", baud)

	errc := make(chan error, 1)
	go func() {
		errc <- ServeStream(blockingReader{port}, sink, logger)
	}()
	return port, errc, nil
}

// blockingReader retries zero-byte reads, which a serial port returns on
// timeout, so framing sees a plain blocking stream.
type blockingReader struct{ r io.Reader }

func (b blockingReader) Read(p []byte) (int, error) {
	for {
		n, err := b.r.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		time.Sleep(time.Millisecond)
	}
}
