// Package protocol is the binary wire format between a sender and a server.
//
// Every message starts with a version byte and a type byte. A KeyEvent body
// is the logical key (kind tag and payload), the press byte, the 16-bit
// modifiers and an optional raw event. All integers are big endian.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"keyrelay/internal/keys"
)

// Version is the wire version written by Encode.
const Version uint8 = 1

// ErrMalformed is returned for bytes that do not decode to a message.
var ErrMalformed = errors.New("protocol: malformed message")

// MessageType identifies the body of a message.
type MessageType uint8

const (
	// TypeKeyEvent carries a full KeyEvent.
	TypeKeyEvent MessageType = 0x01
	// TypeChar types one character without modifiers.
	TypeChar MessageType = 0x02
	// TypeKeycode presses or releases a native code on the server.
	TypeKeycode MessageType = 0x03
	// TypeReleaseKeys releases every key the server holds.
	TypeReleaseKeys MessageType = 0x10
	// TypeExit stops the server loop.
	TypeExit MessageType = 0x11
)

func (t MessageType) String() string {
	switch t {
	case TypeKeyEvent:
		return "key_event"
	case TypeChar:
		return "char"
	case TypeKeycode:
		return "keycode"
	case TypeReleaseKeys:
		return "release_keys"
	case TypeExit:
		return "exit"
	}
	return fmt.Sprintf("type(%#x)", uint8(t))
}

// Message is one unit sent to a server. Only the fields of Type are used.
type Message struct {
	Type  MessageType
	Event keys.KeyEvent
	Rune  rune
	Code  uint32
	Press bool
}

func KeyEventMessage(evt keys.KeyEvent) Message { return Message{Type: TypeKeyEvent, Event: evt} }
func CharMessage(r rune) Message               { return Message{Type: TypeChar, Rune: r} }
func KeycodeMessage(code uint32, press bool) Message {
	return Message{Type: TypeKeycode, Code: code, Press: press}
}
func ReleaseKeysMessage() Message { return Message{Type: TypeReleaseKeys} }
func ExitMessage() Message        { return Message{Type: TypeExit} }

func (m Message) String() string {
	switch m.Type {
	case TypeKeyEvent:
		return m.Event.String()
	case TypeChar:
		return fmt.Sprintf("char %q", m.Rune)
	case TypeKeycode:
		return fmt.Sprintf("keycode %d press=%t", m.Code, m.Press)
	}
	return m.Type.String()
}

// Encode serializes m.
func Encode(m Message) ([]byte, error) {
	buf := []byte{Version, byte(m.Type)}
	switch m.Type {
	case TypeKeyEvent:
		return appendKeyEvent(buf, m.Event)
	case TypeChar:
		return binary.BigEndian.AppendUint32(buf, uint32(m.Rune)), nil
	case TypeKeycode:
		buf = binary.BigEndian.AppendUint32(buf, m.Code)
		return append(buf, boolByte(m.Press)), nil
	case TypeReleaseKeys, TypeExit:
		return buf, nil
	}
	return nil, fmt.Errorf("protocol: cannot encode %s", m.Type)
}

// Decode parses one message. Modifier bits are returned as encoded.
func Decode(data []byte) (Message, error) {
	d := decoder{buf: data}
	if v := d.u8(); d.err == nil && v != Version {
		return Message{}, fmt.Errorf("%w: version %d", ErrMalformed, v)
	}
	m := Message{Type: MessageType(d.u8())}
	switch m.Type {
	case TypeKeyEvent:
		m.Event = d.keyEvent()
	case TypeChar:
		m.Rune = d.rune()
	case TypeKeycode:
		m.Code = d.u32()
		m.Press = d.bool()
	case TypeReleaseKeys, TypeExit:
	default:
		d.fail("unknown message type %#x", uint8(m.Type))
	}
	if d.err == nil && d.off != len(d.buf) {
		d.fail("%d trailing bytes", len(d.buf)-d.off)
	}
	if d.err != nil {
		return Message{}, d.err
	}
	return m, nil
}

// EncodeKeyEvent serializes a KeyEvent message.
func EncodeKeyEvent(evt keys.KeyEvent) ([]byte, error) {
	return Encode(KeyEventMessage(evt))
}

// DecodeKeyEvent parses a message that must be a KeyEvent.
func DecodeKeyEvent(data []byte) (keys.KeyEvent, error) {
	m, err := Decode(data)
	if err != nil {
		return keys.KeyEvent{}, err
	}
	if m.Type != TypeKeyEvent {
		return keys.KeyEvent{}, fmt.Errorf("%w: want key_event, got %s", ErrMalformed, m.Type)
	}
	return m.Event, nil
}

func appendKeyEvent(buf []byte, evt keys.KeyEvent) ([]byte, error) {
	k := evt.Key
	buf = append(buf, byte(k.Kind))
	switch k.Kind {
	case keys.KindChar:
		buf = binary.BigEndian.AppendUint32(buf, uint32(k.Rune))
	case keys.KindComposed:
		if len(k.Text) > 0xffff {
			return nil, fmt.Errorf("protocol: composed text of %d bytes", len(k.Text))
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(k.Text)))
		buf = append(buf, k.Text...)
	case keys.KindRawCode, keys.KindKeySym:
		buf = binary.BigEndian.AppendUint32(buf, k.Code)
	case keys.KindPhysical:
		buf = binary.BigEndian.AppendUint16(buf, uint16(k.Phys))
	case keys.KindNamed:
		buf = append(buf, byte(k.Name))
	case keys.KindFunction, keys.KindNumpad:
		buf = append(buf, k.Ordinal)
	default:
		return nil, fmt.Errorf("protocol: unknown key kind %d", k.Kind)
	}
	buf = append(buf, boolByte(evt.Press))
	buf = binary.BigEndian.AppendUint16(buf, uint16(evt.Modifiers))
	if evt.Raw == nil {
		return append(buf, 0), nil
	}
	raw := evt.Raw
	buf = append(buf, 1)
	buf = binary.BigEndian.AppendUint16(buf, uint16(raw.Key))
	buf = append(buf, boolByte(raw.Press))
	buf = binary.BigEndian.AppendUint16(buf, uint16(raw.Modifiers))
	buf = binary.BigEndian.AppendUint32(buf, raw.RawCode)
	buf = binary.BigEndian.AppendUint32(buf, raw.ScanCode)
	return buf, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// decoder reads big-endian fields and keeps the first error.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf)-d.off < n {
		d.fail("short buffer at offset %d", d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) bool() bool {
	switch v := d.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail("bool byte %d", v)
		return false
	}
}

func (d *decoder) rune() rune {
	r := rune(d.u32())
	if d.err == nil && !utf8.ValidRune(r) {
		d.fail("invalid rune %#x", uint32(r))
	}
	return r
}

func (d *decoder) physical() keys.PhysicalKey {
	p := keys.PhysicalKey(d.u16())
	if d.err == nil && !p.Valid() {
		d.fail("unknown physical key %d", uint16(p))
	}
	return p
}

func (d *decoder) logicalKey() keys.LogicalKey {
	kind := keys.KeyKind(d.u8())
	switch kind {
	case keys.KindChar:
		return keys.Char(d.rune())
	case keys.KindComposed:
		text := d.take(int(d.u16()))
		if d.err == nil && !utf8.Valid(text) {
			d.fail("composed text is not utf-8")
		}
		return keys.Composed(string(text))
	case keys.KindRawCode:
		return keys.RawCode(d.u32())
	case keys.KindKeySym:
		return keys.KeySym(d.u32())
	case keys.KindPhysical:
		return keys.Physical(d.physical())
	case keys.KindNamed:
		n := keys.NamedKey(d.u8())
		if d.err == nil && !n.Valid() {
			d.fail("unknown named key %d", uint8(n))
		}
		return keys.Named(n)
	case keys.KindFunction:
		return keys.FunctionKey(d.u8())
	case keys.KindNumpad:
		return keys.Numpad(d.u8())
	}
	d.fail("unknown key kind %d", uint8(kind))
	return keys.LogicalKey{}
}

func (d *decoder) keyEvent() keys.KeyEvent {
	evt := keys.KeyEvent{
		Key:       d.logicalKey(),
		Press:     d.bool(),
		Modifiers: keys.Modifiers(d.u16()),
	}
	if d.bool() {
		evt.Raw = &keys.RawKeyEvent{
			Key:       d.physical(),
			Press:     d.bool(),
			Modifiers: keys.Modifiers(d.u16()),
			RawCode:   d.u32(),
			ScanCode:  d.u32(),
		}
	}
	return evt
}
