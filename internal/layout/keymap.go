package layout

import (
	"sort"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"keyrelay/internal/keys"
)

// Stroke is one native key pressed under a level-selecting modifier set.
type Stroke struct {
	Modifiers keys.Modifiers
	Code      uint32
}

// Event returns the key event that performs the stroke.
func (s Stroke) Event(press bool) keys.KeyEvent {
	return keys.KeyEvent{Key: keys.RawCode(s.Code), Press: press, Modifiers: s.Modifiers}
}

func (s Stroke) less(o Stroke) bool {
	if a, b := levelRank(s.Modifiers), levelRank(o.Modifiers); a != b {
		return a < b
	}
	return s.Code < o.Code
}

var levelModifiers = [4]keys.Modifiers{
	keys.ModNone,
	keys.ModShift,
	keys.ModAltGr,
	keys.ModShift | keys.ModAltGr,
}

// LevelModifiers returns the modifiers selecting a shift level (0 to 3).
func LevelModifiers(level int) keys.Modifiers {
	if level < 0 || level >= len(levelModifiers) {
		return keys.ModNone
	}
	return levelModifiers[level]
}

func levelRank(m keys.Modifiers) int {
	for i, lm := range levelModifiers {
		if m == lm {
			return i
		}
	}
	return len(levelModifiers)
}

// Keymap is an immutable-by-convention snapshot of a keyboard layout. It is
// rebuilt as a whole when the OS reports a layout change.
type Keymap struct {
	Name    string
	MinCode uint32
	MaxCode uint32

	groups []*group
	toCode map[keys.PhysicalKey]uint32
	toPhys map[uint32]keys.PhysicalKey
	unused []uint32
}

type group struct {
	bySym    map[Keysym]Stroke
	byRune   map[rune]Stroke
	byStroke map[Stroke]Keysym
	dead     *DeadKeyTable
}

func newGroup() *group {
	return &group{
		bySym:    make(map[Keysym]Stroke),
		byRune:   make(map[rune]Stroke),
		byStroke: make(map[Stroke]Keysym),
		dead:     NewDeadKeyTable(),
	}
}

// NewKeymap returns an empty keymap with n groups covering native codes
// minCode..maxCode.
func NewKeymap(name string, n int, minCode, maxCode uint32) *Keymap {
	if n < 1 {
		n = 1
	}
	k := &Keymap{
		Name:    name,
		MinCode: minCode,
		MaxCode: maxCode,
		groups:  make([]*group, n),
		toCode:  make(map[keys.PhysicalKey]uint32),
		toPhys:  make(map[uint32]keys.PhysicalKey),
	}
	for i := range k.groups {
		k.groups[i] = newGroup()
	}
	return k
}

// Groups returns the number of layout groups.
func (k *Keymap) Groups() int { return len(k.groups) }

func (k *Keymap) group(g int) *group {
	if g < 0 || g >= len(k.groups) {
		return k.groups[0]
	}
	return k.groups[g]
}

// SetPhysical maps a physical key to a native code.
func (k *Keymap) SetPhysical(p keys.PhysicalKey, code uint32) {
	k.toCode[p] = code
	if prev, ok := k.toPhys[code]; !ok || p < prev {
		k.toPhys[code] = p
	}
}

// Add records that stroke s types sym in group g. When a symbol is reachable
// from several strokes the lowest level wins, then the lowest code.
func (k *Keymap) Add(g int, s Stroke, sym Keysym) {
	if sym == NoSymbol {
		return
	}
	grp := k.group(g)
	if _, ok := grp.byStroke[s]; !ok {
		grp.byStroke[s] = sym
	}
	if prev, ok := grp.bySym[sym]; !ok || s.less(prev) {
		grp.bySym[sym] = s
	}
	if glyph, mark, ok := DeadGlyph(sym); ok {
		grp.dead.AddLeader(s, glyph, mark)
		return
	}
	if r := KeysymToRune(sym); r != 0 {
		if prev, ok := grp.byRune[r]; !ok || s.less(prev) {
			grp.byRune[r] = s
		}
	}
}

// AddUnused marks a native code as free for rebinding.
func (k *Keymap) AddUnused(code uint32) { k.unused = append(k.unused, code) }

// Dead returns the dead-key table of group g.
func (k *Keymap) Dead(g int) *DeadKeyTable { return k.group(g).dead }

// Finish derives dead-key combinations for leaders that carry a combining
// mark and have no combinations recorded by the source. A leader followed by
// space types its glyph; a leader never combines with another dead key.
func (k *Keymap) Finish() {
	for _, grp := range k.groups {
		strokes := make([]Stroke, 0, len(grp.byStroke))
		for s := range grp.byStroke {
			strokes = append(strokes, s)
		}
		sort.Slice(strokes, func(i, j int) bool { return strokes[i].less(strokes[j]) })

		for lead, l := range grp.dead.leaders {
			if l.mark == 0 || len(l.combos) > 0 {
				continue
			}
			for _, next := range strokes {
				sym := grp.byStroke[next]
				if IsDead(sym) {
					continue
				}
				base := KeysymToRune(sym)
				switch {
				case base == ' ':
					grp.dead.AddCombination(lead, next, l.glyph)
				case base > ' ' && base != 0x7f:
					if c, ok := compose(base, l.mark); ok {
						grp.dead.AddCombination(lead, next, c)
					}
				}
			}
		}
	}
	sort.Slice(k.unused, func(i, j int) bool { return k.unused[i] < k.unused[j] })
}

// compose applies a combining mark to base, succeeding only when Unicode
// has a precomposed character for the pair.
func compose(base, mark rune) (rune, bool) {
	out := []rune(norm.NFC.String(string([]rune{base, mark})))
	if len(out) != 1 || out[0] == base {
		return 0, false
	}
	return out[0], true
}

// Stroke returns the stroke typing r directly in group g. Dead keys are
// never returned.
func (k *Keymap) Stroke(g int, r rune) (Stroke, bool) {
	s, ok := k.group(g).byRune[r]
	return s, ok
}

// StrokeForKeysym returns the stroke producing sym in group g.
func (k *Keymap) StrokeForKeysym(g int, sym Keysym) (Stroke, bool) {
	s, ok := k.group(g).bySym[sym]
	return s, ok
}

// Keysym returns the symbol stroke s produces in group g.
func (k *Keymap) Keysym(g int, s Stroke) (Keysym, bool) {
	sym, ok := k.group(g).byStroke[s]
	return sym, ok
}

// Code returns the native code of a physical key.
func (k *Keymap) Code(p keys.PhysicalKey) (uint32, bool) {
	c, ok := k.toCode[p]
	return c, ok
}

// Physical returns the physical key at a native code.
func (k *Keymap) Physical(code uint32) (keys.PhysicalKey, bool) {
	p, ok := k.toPhys[code]
	return p, ok
}

// Unused returns the native codes available for rebinding, lowest first.
func (k *Keymap) Unused() []uint32 { return append([]uint32(nil), k.unused...) }

// Bind assigns sym to a free code at level 0 of every group.
func (k *Keymap) Bind(code uint32, sym Keysym) {
	for i, c := range k.unused {
		if c == code {
			k.unused = append(k.unused[:i:i], k.unused[i+1:]...)
			break
		}
	}
	for g := range k.groups {
		k.Add(g, Stroke{Code: code}, sym)
	}
}

// Entries lists the strokes of group g ordered by code then level.
func (k *Keymap) Entries(g int) []Entry {
	grp := k.group(g)
	out := make([]Entry, 0, len(grp.byStroke))
	for s, sym := range grp.byStroke {
		out = append(out, Entry{Stroke: s, Keysym: sym})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stroke.Code != out[j].Stroke.Code {
			return out[i].Stroke.Code < out[j].Stroke.Code
		}
		return levelRank(out[i].Stroke.Modifiers) < levelRank(out[j].Stroke.Modifiers)
	})
	return out
}

// Entry is one stroke of a keymap dump.
type Entry struct {
	Stroke Stroke
	Keysym Keysym
}

// coreColumn returns the column of (group, level) in an X11 core keyboard
// mapping row: G1L1 G1L2 G2L1 G2L2 G1L3 G1L4 G2L3 G2L4, then G3 and G4.
func coreColumn(g, level int) int {
	switch {
	case g < 2 && level < 2:
		return g*2 + level
	case g < 2:
		return 4 + g*2 + level - 2
	}
	return 8 + (g-2)*4 + level
}

// BuildCoreKeymap builds a keymap from an X11 core keyboard mapping reply.
//
// A key whose symbols are all in group 1 is replicated into every group.
// Keys with more groups keep their own symbols per group, wrapping when the
// keyboard has more groups than the key. A missing level 2 of a lowercase
// letter is its uppercase form.
func BuildCoreKeymap(name string, minCode uint32, perKeycode int, syms []Keysym, phys *keys.Table) *Keymap {
	if perKeycode <= 0 {
		return NewKeymap(name, 1, minCode, minCode)
	}
	rows := len(syms) / perKeycode
	at := func(row []Keysym, g, level int) Keysym {
		if c := coreColumn(g, level); c < len(row) {
			return row[c]
		}
		return NoSymbol
	}
	groupsOf := func(row []Keysym) int {
		n := 1
		for g := 1; g < 4; g++ {
			for level := 0; level < 4; level++ {
				if at(row, g, level) != NoSymbol {
					n = g + 1
				}
			}
		}
		return n
	}

	total := 1
	for i := 0; i < rows; i++ {
		if n := groupsOf(syms[i*perKeycode : (i+1)*perKeycode]); n > total {
			total = n
		}
	}

	maxCode := minCode
	if rows > 0 {
		maxCode = minCode + uint32(rows) - 1
	}
	km := NewKeymap(name, total, minCode, maxCode)

	for i := 0; i < rows; i++ {
		row := syms[i*perKeycode : (i+1)*perKeycode]
		code := minCode + uint32(i)
		empty := true
		for _, s := range row {
			if s != NoSymbol {
				empty = false
				break
			}
		}
		if empty {
			km.AddUnused(code)
			continue
		}
		own := groupsOf(row)
		for g := 0; g < total; g++ {
			src := g % own
			var levels [4]Keysym
			for level := range levels {
				levels[level] = at(row, src, level)
			}
			if levels[1] == NoSymbol {
				if r := KeysymToRune(levels[0]); unicode.IsLower(r) {
					if up := unicode.ToUpper(r); up != r {
						levels[1] = RuneToKeysym(up)
					}
				}
			}
			for level, sym := range levels {
				km.Add(g, Stroke{Modifiers: LevelModifiers(level), Code: code}, sym)
			}
		}
	}

	if phys != nil {
		for _, p := range keys.AllPhysicalKeys() {
			if code, ok := phys.Code(p); ok && code >= minCode && code <= maxCode {
				km.SetPhysical(p, code)
			}
		}
	}
	km.Finish()
	return km
}
