package network

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"keyrelay/internal/protocol"
)

// UDPReceiver runs next to a server. It registers with a UDPSender, keeps
// the registration alive and forwards received messages to its sink.
type UDPReceiver struct {
	senderAddr string
	conn       *net.UDPConn
	sink       Sink
	done       chan struct{}
	once       sync.Once
	logger     *slog.Logger

	dedup seqDedup
}

// seqDedup remembers recent sequence numbers to drop redundant copies.
// Fixed-size ring, no allocation after construction.
type seqDedup struct {
	ring [512]uint32
	pos  int
	seen map[uint32]struct{}
}

func newSeqDedup() seqDedup {
	return seqDedup{seen: make(map[uint32]struct{}, 512)}
}

func (d *seqDedup) isDuplicate(seq uint32) bool {
	if _, ok := d.seen[seq]; ok {
		return true
	}
	if old := d.ring[d.pos]; old != 0 {
		delete(d.seen, old)
	}
	d.ring[d.pos] = seq
	d.seen[seq] = struct{}{}
	d.pos = (d.pos + 1) % len(d.ring)
	return false
}

// NewUDPReceiver creates a receiver for the sender at "host:port".
func NewUDPReceiver(senderAddr string, sink Sink, logger *slog.Logger) *UDPReceiver {
	return &UDPReceiver{
		senderAddr: senderAddr,
		sink:       sink,
		done:       make(chan struct{}),
		dedup:      newSeqDedup(),
		logger:     componentLogger(logger, "udp-receiver"),
	}
}

// Probe reports whether the sender acknowledges a registration within
// three attempts.
func (r *UDPReceiver) Probe() bool {
	addr, err := net.ResolveUDPAddr("udp", r.senderAddr)
	if err != nil {
		r.logger.Warn("probe: resolve failed", "error", err)
		return false
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		r.logger.Warn("probe: bind failed", "error", err)
		return false
	}
	defer conn.Close()

	reg, _ := protocol.EncodeUDPPacket(&protocol.UDPPacket{Type: protocol.UDPPacketRegister})
	buf := make([]byte, 64)
	for attempt := 1; attempt <= 3; attempt++ {
		conn.WriteToUDP(reg, addr)
		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		if resp, err := protocol.DecodeUDPPacket(buf[:n]); err == nil && resp.Type == protocol.UDPPacketAck {
			r.logger.Info("probe: sender acknowledged", "attempt", attempt)
			return true
		}
	}
	r.logger.Info("probe: no ack after 3 attempts")
	return false
}

// Start registers with the sender and begins receiving.
func (r *UDPReceiver) Start() error {
	addr, err := net.ResolveUDPAddr("udp", r.senderAddr)
	if err != nil {
		return fmt.Errorf("network: resolve %s: %w", r.senderAddr, err)
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		return fmt.Errorf("network: udp bind: %w", err)
	}
	r.conn = conn
	conn.SetReadBuffer(1 << 20)

	r.logger.Info("receiving", "local", conn.LocalAddr().String(), "sender", r.senderAddr)

	r.sendControl(protocol.UDPPacketRegister, addr)
	go r.heartbeatLoop(addr)
	go r.readLoop()
	return nil
}

func (r *UDPReceiver) heartbeatLoop(addr *net.UDPAddr) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sendControl(protocol.UDPPacketHeartbeat, addr)
		case <-r.done:
			return
		}
	}
}

func (r *UDPReceiver) sendControl(typ uint8, addr *net.UDPAddr) {
	data, err := protocol.EncodeUDPPacket(&protocol.UDPPacket{Type: typ, Timestamp: time.Now().UnixNano()})
	if err != nil {
		return
	}
	r.conn.WriteToUDP(data, addr)
}

func (r *UDPReceiver) readLoop() {
	buf := make([]byte, 2048)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.done:
				return
			default:
				continue
			}
		}
		r.handle(buf[:n])
	}
}

func (r *UDPReceiver) handle(data []byte) {
	pkt, err := protocol.DecodeUDPPacket(data)
	if err != nil {
		r.logger.Debug("dropping datagram", "error", err)
		return
	}
	if pkt.Type != protocol.UDPPacketMessage || r.dedup.isDuplicate(pkt.Seq) {
		return
	}
	b, err := protocol.Encode(pkt.Message)
	if err != nil {
		return
	}
	if err := r.sink.SendBytes(b); err != nil {
		r.logger.Warn("message not delivered", "error", err)
	}
}

// Close stops the receiver.
func (r *UDPReceiver) Close() error {
	r.once.Do(func() {
		close(r.done)
		if r.conn != nil {
			r.conn.Close()
		}
	})
	return nil
}
