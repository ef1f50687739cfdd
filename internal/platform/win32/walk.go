package win32

import (
	"keyrelay/internal/keys"
	"keyrelay/internal/layout"
)

// translator is ToUnicodeEx bound to one keyboard layout.
type translator interface {
	// scan returns the scan code of vk, or 0 when the layout has none.
	scan(vk uint32) uint32
	// translate types vk under st. A negative count means vk is a dead key
	// and the rune is its spacing glyph. With keep set the layout's dead-key
	// buffer is updated as a real keystroke would.
	translate(vk, sc uint32, st *keyState, keep bool) (rune, int)
	// flush clears a pending dead key.
	flush()
}

type walkKey struct {
	vk     uint32
	state  keyState
	stroke layout.Stroke
}

// levelState returns the key state selecting a shift level: bit 0 is Shift,
// bit 1 is AltGr (Ctrl+Alt).
func levelState(level int) keyState {
	var st keyState
	if level&1 != 0 {
		st.press(vkShift, vkLShift)
	}
	if level&2 != 0 {
		st.press(vkControl, vkMenu, vkLControl, vkRMenu)
	}
	return st
}

// hasAltGr reports whether Ctrl+Alt selects printable characters.
func hasAltGr(t translator) bool {
	st := levelState(2)
	for vk := uint32('0'); vk <= 0xe2; vk++ {
		sc := t.scan(vk)
		if sc == 0 {
			continue
		}
		r, n := t.translate(vk, sc, &st, false)
		if n < 0 || (n == 1 && r >= ' ') {
			return true
		}
	}
	return false
}

// walkLayout walks every virtual key at every level, then types each dead
// key followed by every character stroke to learn its combinations. It
// returns the keymap and the number of ToUnicodeEx calls made.
func walkLayout(name string, t translator, altGr bool) (*layout.Keymap, int) {
	km := layout.NewKeymap(name, 1, 1, 0xe0ff)
	for _, p := range keys.AllPhysicalKeys() {
		if sc, ok := keys.ScanCodes.Code(p); ok {
			km.SetPhysical(p, sc)
		}
	}

	levels := 2
	if altGr {
		levels = 4
	}
	var leaders, strokes []walkKey
	calls := 0
	for vk := uint32(1); vk < 0xff; vk++ {
		sc := t.scan(vk)
		if sc == 0 || vk == vkPacket {
			continue
		}
		for level := 0; level < levels; level++ {
			k := walkKey{
				vk:     vk,
				state:  levelState(level),
				stroke: layout.Stroke{Modifiers: layout.LevelModifiers(level), Code: sc},
			}
			st := k.state
			r, n := t.translate(vk, sc, &st, false)
			calls++
			switch {
			case n < 0:
				leaders = append(leaders, k)
				if sym, ok := layout.DeadKeysym(r); ok {
					km.Add(0, k.stroke, sym)
				} else {
					km.Dead(0).AddLeader(k.stroke, r, 0)
				}
			case n == 1:
				km.Add(0, k.stroke, layout.RuneToKeysym(r))
				strokes = append(strokes, k)
			}
		}
	}
	calls += walkCombos(km.Dead(0), t, leaders, strokes)
	km.Finish()
	return km, calls
}

// walkCombos clocks each leader into the dead-key buffer and types next
// after it. A single character is a combination; two characters mean the
// layout rejects the pair.
func walkCombos(dead *layout.DeadKeyTable, t translator, leaders, strokes []walkKey) int {
	calls := 0
	for _, l := range leaders {
		for _, next := range strokes {
			lst, nst := l.state, next.state
			if _, n := t.translate(l.vk, l.stroke.Code, &lst, true); n >= 0 {
				t.flush()
				break
			}
			r, n := t.translate(next.vk, next.stroke.Code, &nst, true)
			calls++
			switch {
			case n == 1:
				dead.AddCombination(l.stroke, next.stroke, r)
			case n < 0:
				t.flush()
			}
		}
	}
	return calls
}
