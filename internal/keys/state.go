package keys

import (
	"fmt"
	"strings"
)

// ServerMode selects how a receiving engine replays remote events.
type ServerMode uint8

const (
	// ModeMap replays the physical key the sender pressed.
	ModeMap ServerMode = iota
	// ModeTranslate reinterprets the sender's key against the local layout.
	ModeTranslate
	// ModeAuto is reserved.
	ModeAuto
)

func (m ServerMode) String() string {
	switch m {
	case ModeMap:
		return "map"
	case ModeTranslate:
		return "translate"
	case ModeAuto:
		return "auto"
	}
	return fmt.Sprintf("ServerMode(%d)", uint8(m))
}

// ParseServerMode accepts the names produced by String.
func ParseServerMode(s string) (ServerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "map":
		return ModeMap, nil
	case "translate", "":
		return ModeTranslate, nil
	case "auto":
		return ModeAuto, nil
	}
	return ModeMap, fmt.Errorf("keys: unknown server mode %q", s)
}

// GroupIndex is the active layout group, N1 through N4.
type GroupIndex uint8

const (
	N1 GroupIndex = iota
	N2
	N3
	N4
)

// GroupFromInt clamps an OS group number (0 based) into a GroupIndex.
func GroupFromInt(n int) GroupIndex {
	switch {
	case n <= 0:
		return N1
	case n >= 3:
		return N4
	}
	return GroupIndex(n)
}

// Index returns the 0 based group number.
func (g GroupIndex) Index() int { return int(g) }

func (g GroupIndex) String() string { return fmt.Sprintf("N%d", int(g)+1) }

// DeadKeyResult tags a ResolvedDeadKey.
type DeadKeyResult uint8

const (
	InvalidDeadKey DeadKeyResult = iota
	Combined
	InvalidCombination
)

// ResolvedDeadKey is the outcome of combining a dead key with the next key.
// Rune holds the composed character for Combined and the fallback glyph for
// InvalidCombination.
type ResolvedDeadKey struct {
	Result DeadKeyResult
	Rune   rune
}

func (r ResolvedDeadKey) String() string {
	switch r.Result {
	case Combined:
		return fmt.Sprintf("Combined(%q)", r.Rune)
	case InvalidCombination:
		return fmt.Sprintf("InvalidCombination(%q)", r.Rune)
	}
	return "InvalidDeadKey"
}

// DeadKeyStatus reports whether a dead-key composition is in flight.
type DeadKeyStatus struct {
	Composing bool
	Pending   string
}

func (s DeadKeyStatus) String() string {
	if !s.Composing {
		return "None"
	}
	return fmt.Sprintf("Composing(%q)", s.Pending)
}
