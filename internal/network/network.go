// Package network carries encoded messages between a sender and a server
// over TCP, UDP, websocket or a serial line.
package network

import (
	"errors"
	"log/slog"
)

// DefaultPort is the TCP, UDP and websocket port used when none is given.
const DefaultPort = 7878

// maxMessage bounds a single message read from a connection.
const maxMessage = 64 << 10

var ErrClosed = errors.New("network: closed")

// Sink receives encoded messages. server.Handle implements it.
type Sink interface {
	SendBytes(b []byte) error
}

// Sender delivers encoded messages to a remote server.
type Sender interface {
	Send(b []byte) error
	Close() error
}

func componentLogger(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", name)
}
