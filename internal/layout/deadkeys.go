package layout

import "keyrelay/internal/keys"

// DeadKeyTable maps dead-key leaders to the characters they compose with the
// next stroke.
type DeadKeyTable struct {
	leaders  map[Stroke]*leader
	byGlyph  map[rune]Stroke
	composed map[rune][2]Stroke
}

type leader struct {
	glyph  rune
	mark   rune
	combos map[Stroke]rune
}

// NewDeadKeyTable returns an empty table.
func NewDeadKeyTable() *DeadKeyTable {
	return &DeadKeyTable{
		leaders:  make(map[Stroke]*leader),
		byGlyph:  make(map[rune]Stroke),
		composed: make(map[rune][2]Stroke),
	}
}

// AddLeader registers s as a dead key showing glyph. mark is the combining
// character it applies, or 0 when combinations are added explicitly.
func (t *DeadKeyTable) AddLeader(s Stroke, glyph, mark rune) {
	if _, ok := t.leaders[s]; ok {
		return
	}
	t.leaders[s] = &leader{glyph: glyph, mark: mark, combos: make(map[Stroke]rune)}
	if prev, ok := t.byGlyph[glyph]; !ok || s.less(prev) {
		t.byGlyph[glyph] = s
	}
}

// AddCombination records that lead followed by next types r.
func (t *DeadKeyTable) AddCombination(lead, next Stroke, r rune) {
	l, ok := t.leaders[lead]
	if !ok || lead == next {
		return
	}
	l.combos[next] = r
	if r == l.glyph {
		return
	}
	if prev, ok := t.composed[r]; !ok || lead.less(prev[0]) || (lead == prev[0] && next.less(prev[1])) {
		t.composed[r] = [2]Stroke{lead, next}
	}
}

// Leader returns the placeholder glyph when s starts a composition.
func (t *DeadKeyTable) Leader(s Stroke) (rune, bool) {
	l, ok := t.leaders[s]
	if !ok {
		return 0, false
	}
	return l.glyph, true
}

// LeaderForGlyph returns the stroke of the dead key showing glyph.
func (t *DeadKeyTable) LeaderForGlyph(glyph rune) (Stroke, bool) {
	s, ok := t.byGlyph[glyph]
	return s, ok
}

// Composition returns the two strokes that compose r.
func (t *DeadKeyTable) Composition(r rune) (lead, next Stroke, ok bool) {
	pair, ok := t.composed[r]
	return pair[0], pair[1], ok
}

// Resolve combines a leader with the next stroke.
func (t *DeadKeyTable) Resolve(lead, next Stroke) keys.ResolvedDeadKey {
	l, ok := t.leaders[lead]
	if !ok {
		return keys.ResolvedDeadKey{Result: keys.InvalidDeadKey}
	}
	if r, ok := l.combos[next]; ok {
		return keys.ResolvedDeadKey{Result: keys.Combined, Rune: r}
	}
	return keys.ResolvedDeadKey{Result: keys.InvalidCombination, Rune: l.glyph}
}

// Len returns the number of leaders.
func (t *DeadKeyTable) Len() int { return len(t.leaders) }

// Leaders returns every leader stroke with its glyph.
func (t *DeadKeyTable) Leaders() map[Stroke]rune {
	out := make(map[Stroke]rune, len(t.leaders))
	for s, l := range t.leaders {
		out[s] = l.glyph
	}
	return out
}
