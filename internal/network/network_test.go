package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/keys"
	"keyrelay/internal/protocol"
)

type chanSink chan []byte

func (c chanSink) SendBytes(b []byte) error {
	c <- append([]byte(nil), b...)
	return nil
}

func (c chanSink) next(t *testing.T) []byte {
	t.Helper()
	select {
	case b := <-c:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func encoded(t *testing.T, m protocol.Message) []byte {
	t.Helper()
	b, err := protocol.Encode(m)
	require.NoError(t, err)
	return b
}

func TestTCPLoopback(t *testing.T) {
	sink := make(chanSink, 4)
	l, err := ListenTCP("127.0.0.1:0", sink, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- l.Serve(ctx) }()

	msg := encoded(t, protocol.KeyEventMessage(keys.KeyEvent{
		Key:       keys.Char('a'),
		Press:     true,
		Modifiers: keys.ModShift,
	}))
	s := NewTCPSender(l.Addr().String())
	require.NoError(t, s.Send(msg))
	assert.Equal(t, msg, sink.next(t))

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestTCPEmptyConnectionIgnored(t *testing.T) {
	sink := make(chanSink, 4)
	l, err := ListenTCP("127.0.0.1:0", sink, nil)
	require.NoError(t, err)
	defer l.Close()
	go l.Serve(context.Background())

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	conn.Close()

	msg := encoded(t, protocol.CharMessage('x'))
	require.NoError(t, NewTCPSender(l.Addr().String()).Send(msg))
	assert.Equal(t, msg, sink.next(t))
}

func TestTCPDeliversInAcceptOrder(t *testing.T) {
	sink := make(chanSink, 4)
	l, err := ListenTCP("127.0.0.1:0", sink, nil)
	require.NoError(t, err)
	defer l.Close()
	go l.Serve(context.Background())

	press := encoded(t, protocol.KeyEventMessage(keys.WithPhys(keys.KeyA, true)))
	release := encoded(t, protocol.KeyEventMessage(keys.WithPhys(keys.KeyA, false)))

	slow, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = slow.Write(press)
	require.NoError(t, err)

	require.NoError(t, NewTCPSender(l.Addr().String()).Send(release))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, slow.Close())

	assert.Equal(t, press, sink.next(t))
	assert.Equal(t, release, sink.next(t))
}

func TestSeqDedup(t *testing.T) {
	d := newSeqDedup()
	assert.False(t, d.isDuplicate(1))
	assert.True(t, d.isDuplicate(1))
	assert.False(t, d.isDuplicate(2))

	// Entries fall out of the ring after a full cycle.
	for seq := uint32(3); seq < 3+uint32(len(d.ring)); seq++ {
		d.isDuplicate(seq)
	}
	assert.False(t, d.isDuplicate(1))
}

func TestUDPRoundTrip(t *testing.T) {
	s := NewUDPSender(0, nil)
	require.NoError(t, s.Start())
	defer s.Close()

	sink := make(chanSink, 8)
	r := NewUDPReceiver(fmt.Sprintf("127.0.0.1:%d", s.Addr().Port), sink, nil)
	require.True(t, r.Probe())
	require.NoError(t, r.Start())
	defer r.Close()

	// The probe socket registers too.
	require.Eventually(t, func() bool { return s.Peers() == 2 }, 2*time.Second, 10*time.Millisecond)

	msg := encoded(t, protocol.KeycodeMessage(38, true))
	require.NoError(t, s.Send(msg))
	assert.Equal(t, msg, sink.next(t))

	// Redundant copies are dropped.
	select {
	case b := <-sink:
		t.Fatalf("duplicate delivered: %x", b)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUDPSenderRejectsMalformed(t *testing.T) {
	s := NewUDPSender(0, nil)
	err := s.Send([]byte{0x09, 0x01})
	assert.ErrorIs(t, err, protocol.ErrMalformed)
}

func TestHubBroadcastToClient(t *testing.T) {
	hub := NewHub("desk", nil, nil)
	defer hub.Close()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	sink := make(chanSink, 4)
	c := NewWSClient(strings.TrimPrefix(srv.URL, "http://"), sink, nil)
	c.Start()
	defer c.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 && c.IsConnected() }, 2*time.Second, 10*time.Millisecond)

	msg := encoded(t, protocol.ReleaseKeysMessage())
	require.NoError(t, hub.Send(msg))
	assert.Equal(t, msg, sink.next(t))
}

func TestHubForwardsClientMessages(t *testing.T) {
	sink := make(chanSink, 4)
	hub := NewHub("box", sink, nil)
	defer hub.Close()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	c := NewWSClient(strings.TrimPrefix(srv.URL, "http://"), nil, nil)
	c.Start()
	defer c.Close()

	msg := encoded(t, protocol.CharMessage('é'))
	require.NoError(t, c.Send(msg))
	assert.Equal(t, msg, sink.next(t))
}

func TestHubClosed(t *testing.T) {
	hub := NewHub("x", nil, nil)
	require.NoError(t, hub.Close())
	assert.ErrorIs(t, hub.Send([]byte{1}), ErrClosed)
}

func TestProbeHub(t *testing.T) {
	hub := NewHub("box", make(chanSink, 1), nil)
	defer hub.Close()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	port, err := net.LookupPort("tcp", portStr)
	require.NoError(t, err)

	found, ok := probeHub(context.Background(), http.DefaultClient, host, port)
	require.True(t, ok)
	assert.Equal(t, "box", found.Status.Name)
	assert.Equal(t, "server", found.Status.Role)
	assert.Equal(t, srv.Listener.Addr().String(), found.Addr())
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func TestStreamFraming(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamSender(nopCloser{&buf})
	first := encoded(t, protocol.CharMessage('q'))
	second := encoded(t, protocol.ExitMessage())
	require.NoError(t, s.Send(first))
	require.NoError(t, s.Send(second))
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send(first), ErrClosed)

	sink := make(chanSink, 4)
	require.NoError(t, ServeStream(&buf, sink, nil))
	assert.Equal(t, first, sink.next(t))
	assert.Equal(t, second, sink.next(t))
}

func TestStreamTruncated(t *testing.T) {
	err := ServeStream(bytes.NewReader([]byte{0x00, 0x05, 0x01}), make(chanSink, 1), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}
