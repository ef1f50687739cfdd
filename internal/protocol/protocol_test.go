package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/keys"
)

func TestKeyEventRoundTrip(t *testing.T) {
	events := []keys.KeyEvent{
		keys.WithKey(keys.Char('é'), true, keys.ModShift|keys.ModCaps),
		keys.WithKey(keys.Composed("ñé"), false, keys.ModNone),
		keys.WithKey(keys.KeySym(0xfe52), true, keys.ModAltGr),
		keys.WithPhys(keys.IntlBackslash, false),
		keys.WithKey(keys.Named(keys.PageUpKey), true, keys.ModCtrl),
		keys.WithKey(keys.FunctionKey(12), true, keys.ModNone),
		{
			Key:       keys.Char('\x7f'),
			Press:     true,
			Modifiers: keys.ModShift,
			Raw: &keys.RawKeyEvent{
				Key: keys.Delete, Press: true, Modifiers: keys.ModShift,
				RawCode: 119, ScanCode: 0xe053,
			},
		},
	}
	for _, evt := range events {
		b, err := EncodeKeyEvent(evt)
		require.NoError(t, err)
		got, err := DecodeKeyEvent(b)
		require.NoError(t, err, evt.String())
		assert.Equal(t, evt, got)
	}
}

func TestDecodeKeepsPositionalModifiers(t *testing.T) {
	evt := keys.KeyEvent{
		Key:       keys.Char('a'),
		Press:     true,
		Modifiers: keys.ModLeftCtrl | keys.ModRightShift,
		Raw: &keys.RawKeyEvent{
			Key: keys.KeyA, Press: true, Modifiers: keys.ModRightShift | keys.ModLeftAlt,
			RawCode: 38, ScanCode: 0x1e,
		},
	}
	b, err := EncodeKeyEvent(evt)
	require.NoError(t, err)

	got, err := DecodeKeyEvent(b)
	require.NoError(t, err)
	assert.Equal(t, evt, got)
	assert.Equal(t, keys.ModLeftCtrl|keys.ModRightShift, got.Modifiers)
	assert.Equal(t, keys.ModRightShift|keys.ModLeftAlt, got.Raw.Modifiers)
}

func TestControlMessages(t *testing.T) {
	for _, m := range []Message{
		CharMessage('ß'),
		KeycodeMessage(38, true),
		ReleaseKeysMessage(),
		ExitMessage(),
	} {
		b, err := Encode(m)
		require.NoError(t, err)
		got, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestDecodeMalformed(t *testing.T) {
	good, err := EncodeKeyEvent(keys.WithPhys(keys.KeyA, true))
	require.NoError(t, err)

	tests := map[string][]byte{
		"empty":          nil,
		"bad version":    append([]byte{9}, good[1:]...),
		"unknown type":   {Version, 0x7f},
		"truncated":      good[:len(good)-1],
		"trailing":       append(append([]byte(nil), good...), 0),
		"bad press":      {Version, byte(TypeKeycode), 0, 0, 0, 1, 2},
		"bad kind":       {Version, byte(TypeKeyEvent), 0x40, 0, 0, 0, 0},
		"bad physical":   {Version, byte(TypeKeyEvent), byte(keys.KindPhysical), 0xff, 0xff, 1, 0, 0, 0},
		"invalid rune":   {Version, byte(TypeChar), 0, 0x11, 0, 0},
		"bad utf8 text":  {Version, byte(TypeKeyEvent), byte(keys.KindComposed), 0, 1, 0xff, 1, 0, 0, 0},
		"not key event":  {Version, byte(TypeExit)},
		"raw truncated":  append(append([]byte(nil), good[:len(good)-1]...), 1, 0),
	}
	for name, b := range tests {
		_, err := DecodeKeyEvent(b)
		assert.ErrorIs(t, err, ErrMalformed, name)
	}
}

func TestFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, CharMessage('a')))
	require.NoError(t, WriteMessage(&buf, KeyEventMessage(keys.WithPhys(keys.Space, true))))
	require.NoError(t, WriteFrame(&buf, []byte{0xff}))

	m, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, CharMessage('a'), m)

	m, err = ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, keys.WithPhys(keys.Space, true), m.Event)

	_, err = ReadMessage(&buf)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ReadMessage(&buf)
	assert.ErrorIs(t, err, io.EOF)

	assert.ErrorIs(t, WriteFrame(io.Discard, make([]byte, MaxFrame+1)), ErrFrameTooLarge)

	_, err = ReadFrame(bytes.NewReader([]byte{0, 4, 1}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestUDPPacket(t *testing.T) {
	pkt := &UDPPacket{
		Type:      UDPPacketMessage,
		Seq:       42,
		Timestamp: 1700000000000000000,
		Message:   KeyEventMessage(keys.WithKey(keys.Char('x'), true, keys.ModCtrl)),
	}
	b, err := EncodeUDPPacket(pkt)
	require.NoError(t, err)
	got, err := DecodeUDPPacket(b)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)

	hb, err := EncodeUDPPacket(&UDPPacket{Type: UDPPacketHeartbeat, Seq: 7})
	require.NoError(t, err)
	assert.Len(t, hb, UDPHeaderSize)

	_, err = DecodeUDPPacket(b[:5])
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = DecodeUDPPacket(append([]byte{0x99}, b[1:UDPHeaderSize]...))
	assert.ErrorIs(t, err, ErrMalformed)
}
