// Package deadkey holds the dead-key composition state of one simulator.
package deadkey

import (
	"log/slog"

	"keyrelay/internal/keys"
	"keyrelay/internal/layout"
)

// Table is the part of the layout the resolver consults.
type Table interface {
	DeadKeyLeader(s layout.Stroke) (rune, bool)
	ResolveDeadKey(lead, next layout.Stroke) keys.ResolvedDeadKey
}

// Action tells the caller what to inject for a fed stroke.
type Action uint8

const (
	// Suppress injects nothing.
	Suppress Action = iota
	// Pass injects the fed stroke unchanged.
	Pass
	// Emit types Outcome.Rune instead of the fed stroke.
	Emit
	// EmitThenPass types Outcome.Rune, then injects the fed stroke.
	EmitThenPass
)

func (a Action) String() string {
	switch a {
	case Suppress:
		return "suppress"
	case Pass:
		return "pass"
	case Emit:
		return "emit"
	case EmitThenPass:
		return "emit+pass"
	}
	return "unknown"
}

// Outcome is the result of feeding one stroke.
type Outcome struct {
	Action Action
	Rune   rune
}

// Resolver is a two-state machine: idle, or holding a pending leader.
// It is not safe for concurrent use.
type Resolver struct {
	table   Table
	pending *layout.Stroke
	glyph   rune
	// codes whose release must not reach the OS because their press was
	// consumed by a composition.
	swallow map[uint32]bool
	// codes whose press was passed through; their release always passes.
	held   map[uint32]bool
	logger *slog.Logger
}

// New returns an idle resolver.
func New(t Table, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		table:   t,
		swallow: make(map[uint32]bool),
		held:    make(map[uint32]bool),
		logger:  logger.With("component", "deadkey"),
	}
}

// Status reports the composition in flight.
func (r *Resolver) Status() keys.DeadKeyStatus {
	if r.pending == nil {
		return keys.DeadKeyStatus{}
	}
	return keys.DeadKeyStatus{Composing: true, Pending: string(r.glyph)}
}

// Reset drops a pending leader.
func (r *Resolver) Reset() {
	r.pending = nil
	r.glyph = 0
}

// Feed advances the state machine with one key press or release. While a
// leader is pending, only releases of keys pressed before it pass.
func (r *Resolver) Feed(s layout.Stroke, press bool) Outcome {
	if !press {
		if r.swallow[s.Code] {
			delete(r.swallow, s.Code)
			return Outcome{Action: Suppress}
		}
		if r.held[s.Code] {
			delete(r.held, s.Code)
			return Outcome{Action: Pass}
		}
		if r.pending != nil {
			return Outcome{Action: Suppress}
		}
		return Outcome{Action: Pass}
	}

	if r.pending == nil {
		if glyph, ok := r.table.DeadKeyLeader(s); ok {
			r.arm(s, glyph)
			return Outcome{Action: Suppress}
		}
		r.held[s.Code] = true
		return Outcome{Action: Pass}
	}

	lead := *r.pending
	res := r.table.ResolveDeadKey(lead, s)
	switch res.Result {
	case keys.Combined:
		r.Reset()
		r.swallow[s.Code] = true
		return Outcome{Action: Emit, Rune: res.Rune}

	case keys.InvalidCombination:
		if glyph, ok := r.table.DeadKeyLeader(s); ok {
			if glyph != r.glyph {
				r.arm(s, glyph)
				return Outcome{Action: Suppress}
			}
			r.Reset()
			r.swallow[s.Code] = true
			return Outcome{Action: Emit, Rune: res.Rune}
		}
		r.Reset()
		r.held[s.Code] = true
		return Outcome{Action: EmitThenPass, Rune: res.Rune}
	}

	r.logger.Warn("pending dead key is not in the leader table, dropping", "code", lead.Code)
	r.Reset()
	r.swallow[s.Code] = true
	return Outcome{Action: Suppress}
}

func (r *Resolver) arm(s layout.Stroke, glyph rune) {
	r.pending = &s
	r.glyph = glyph
	r.swallow[s.Code] = true
	r.logger.Debug("dead key pending", "glyph", string(glyph), "code", s.Code)
}
