package network

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"keyrelay/internal/protocol"
)

// UDPSender runs on the capturing machine. Servers register with it over
// UDP and it sends every message to all registered servers.
type UDPSender struct {
	conn    *net.UDPConn
	port    int
	peers   map[string]*udpPeer
	peersMu sync.RWMutex
	seq     atomic.Uint32
	done    chan struct{}
	once    sync.Once
	logger  *slog.Logger

	// Redundancy is how many copies of a key message are sent. UDP has no
	// delivery guarantee and receivers drop duplicates by sequence number.
	Redundancy int
}

type udpPeer struct {
	addr     *net.UDPAddr
	lastSeen time.Time
}

// NewUDPSender creates a sender listening for registrations on port.
func NewUDPSender(port int, logger *slog.Logger) *UDPSender {
	return &UDPSender{
		port:       port,
		peers:      make(map[string]*udpPeer),
		done:       make(chan struct{}),
		logger:     componentLogger(logger, "udp-sender"),
		Redundancy: 3,
	}
}

// Start binds the UDP socket and begins listening for registrations.
func (s *UDPSender) Start() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: s.port})
	if err != nil {
		return fmt.Errorf("network: udp listen :%d: %w", s.port, err)
	}
	s.conn = conn
	conn.SetWriteBuffer(1 << 20)
	conn.SetReadBuffer(1 << 16)

	s.logger.Info("listening", "addr", conn.LocalAddr().String())

	go s.readLoop()
	go s.cleanupLoop()
	return nil
}

// Addr returns the bound address.
func (s *UDPSender) Addr() *net.UDPAddr { return s.conn.LocalAddr().(*net.UDPAddr) }

// readLoop handles register and heartbeat packets from servers.
func (s *UDPSender) readLoop() {
	buf := make([]byte, 512)
	for {
		n, remote, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		pkt, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}

		switch pkt.Type {
		case protocol.UDPPacketRegister, protocol.UDPPacketHeartbeat:
			key := remote.String()
			s.peersMu.Lock()
			if _, exists := s.peers[key]; !exists {
				s.logger.Info("server registered", "peer", key)
			}
			s.peers[key] = &udpPeer{addr: remote, lastSeen: time.Now()}
			s.peersMu.Unlock()

			if pkt.Type == protocol.UDPPacketRegister {
				s.writeControl(protocol.UDPPacketAck, remote)
			}
		}
	}
}

func (s *UDPSender) writeControl(typ uint8, addr *net.UDPAddr) {
	data, err := protocol.EncodeUDPPacket(&protocol.UDPPacket{Type: typ, Timestamp: time.Now().UnixNano()})
	if err != nil {
		return
	}
	s.conn.WriteToUDP(data, addr)
}

// cleanupLoop removes servers that stopped sending heartbeats.
func (s *UDPSender) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.peersMu.Lock()
			for key, p := range s.peers {
				if time.Since(p.lastSeen) > 30*time.Second {
					s.logger.Info("removing stale server", "peer", key)
					delete(s.peers, key)
				}
			}
			s.peersMu.Unlock()
		case <-s.done:
			return
		}
	}
}

// Send wraps an encoded message in a datagram and sends it to every
// registered server.
func (s *UDPSender) Send(b []byte) error {
	m, err := protocol.Decode(b)
	if err != nil {
		return err
	}
	return s.SendMessage(m)
}

// SendMessage sends m to every registered server. Key messages are
// repeated Redundancy times.
func (s *UDPSender) SendMessage(m protocol.Message) error {
	pkt := &protocol.UDPPacket{
		Type:      protocol.UDPPacketMessage,
		Seq:       s.seq.Add(1),
		Timestamp: time.Now().UnixNano(),
		Message:   m,
	}
	data, err := protocol.EncodeUDPPacket(pkt)
	if err != nil {
		return err
	}
	redundancy := 1
	if m.Type != protocol.TypeExit {
		redundancy = max(s.Redundancy, 1)
	}
	s.broadcast(data, redundancy)
	return nil
}

func (s *UDPSender) broadcast(data []byte, redundancy int) {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	for _, p := range s.peers {
		for i := 0; i < redundancy; i++ {
			s.conn.WriteToUDP(data, p.addr)
		}
	}
}

// Peers returns the number of registered servers.
func (s *UDPSender) Peers() int {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	return len(s.peers)
}

// Close shuts the sender down.
func (s *UDPSender) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
	return nil
}
