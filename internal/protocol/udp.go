package protocol

import (
	"encoding/binary"
	"fmt"
)

// UDP packet types
const (
	UDPPacketMessage   uint8 = 0x04
	UDPPacketRegister  uint8 = 0x10
	UDPPacketHeartbeat uint8 = 0x11
	UDPPacketAck       uint8 = 0x12 // server -> sender: confirms the UDP path is open
)

// Header: [type(1)] [seq(4)] [timestamp(8)] = 13 bytes
const UDPHeaderSize = 13

// UDPPacket is one datagram. A Message packet carries an encoded Message
// after the header; control packets are header only.
type UDPPacket struct {
	Type      uint8
	Seq       uint32
	Timestamp int64 // unix nanoseconds at the sender
	Message   Message
}

// EncodeUDPPacket serializes a UDPPacket to wire format.
func EncodeUDPPacket(pkt *UDPPacket) ([]byte, error) {
	buf := make([]byte, UDPHeaderSize, UDPHeaderSize+32)
	buf[0] = pkt.Type
	binary.BigEndian.PutUint32(buf[1:5], pkt.Seq)
	binary.BigEndian.PutUint64(buf[5:13], uint64(pkt.Timestamp))

	switch pkt.Type {
	case UDPPacketMessage:
		body, err := Encode(pkt.Message)
		if err != nil {
			return nil, err
		}
		buf = append(buf, body...)
	case UDPPacketRegister, UDPPacketHeartbeat, UDPPacketAck:
	default:
		return nil, fmt.Errorf("udp: cannot encode packet type %#x", pkt.Type)
	}
	return buf, nil
}

// DecodeUDPPacket deserializes wire bytes into a UDPPacket.
func DecodeUDPPacket(data []byte) (*UDPPacket, error) {
	if len(data) < UDPHeaderSize {
		return nil, fmt.Errorf("%w: udp packet too short", ErrMalformed)
	}

	pkt := &UDPPacket{
		Type:      data[0],
		Seq:       binary.BigEndian.Uint32(data[1:5]),
		Timestamp: int64(binary.BigEndian.Uint64(data[5:13])),
	}

	payload := data[UDPHeaderSize:]
	switch pkt.Type {
	case UDPPacketMessage:
		m, err := Decode(payload)
		if err != nil {
			return nil, err
		}
		pkt.Message = m
	case UDPPacketRegister, UDPPacketHeartbeat, UDPPacketAck:
		if len(payload) != 0 {
			return nil, fmt.Errorf("%w: udp control packet with payload", ErrMalformed)
		}
	default:
		return nil, fmt.Errorf("%w: unknown udp packet type %#x", ErrMalformed, pkt.Type)
	}

	return pkt, nil
}
