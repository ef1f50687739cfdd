package keyrelay

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/pflag"

	"keyrelay/internal/keys"
	"keyrelay/internal/protocol"
)

// Actions accepted by --action.
const (
	actionTap     = "tap"
	actionPress   = "press"
	actionRelease = "release"
)

// eventFlags describe one key event on the command line.
type eventFlags struct {
	key    string
	char   string
	mods   string
	action string
}

func (f *eventFlags) register(fs *pflag.FlagSet, action string) {
	fs.StringVar(&f.key, "key", "", "physical key name, e.g. KeyA, Return, F5")
	fs.StringVar(&f.char, "char", "", "single character key, e.g. c")
	fs.StringVar(&f.mods, "mods", "", `modifiers held with the key, e.g. "ctrl+shift"`)
	fs.StringVar(&f.action, "action", action, "tap, press or release")
}

func (f *eventFlags) set() bool { return f.key != "" || f.char != "" }

// events returns the events f describes: a press and a release for a tap.
func (f *eventFlags) events() ([]keys.KeyEvent, error) {
	var k keys.LogicalKey
	switch {
	case f.key != "" && f.char != "":
		return nil, errors.New("--key and --char are exclusive")
	case f.key != "":
		p, err := keys.ParsePhysicalKey(f.key)
		if err != nil {
			return nil, err
		}
		k = keys.Physical(p)
	case f.char != "":
		r, size := utf8.DecodeRuneInString(f.char)
		if r == utf8.RuneError || size != len(f.char) {
			return nil, fmt.Errorf("--char wants one character, got %q", f.char)
		}
		k = keys.Char(r)
	default:
		return nil, errors.New("one of --key or --char is required")
	}

	mods, err := keys.ParseModifiers(f.mods)
	if err != nil {
		return nil, err
	}
	press := keys.WithKey(k, true, mods).Canonical()
	release := keys.WithKey(k, false, mods).Canonical()
	switch f.action {
	case actionTap, "":
		return []keys.KeyEvent{press, release}, nil
	case actionPress:
		return []keys.KeyEvent{press}, nil
	case actionRelease:
		return []keys.KeyEvent{release}, nil
	}
	return nil, fmt.Errorf("unknown action %q", f.action)
}

// sendFlags select the messages of one send invocation.
type sendFlags struct {
	event       eventFlags
	text        string
	keycode     uint32
	hasKeycode  bool
	releaseKeys bool
	exit        bool
}

// messages returns the messages in the order they are sent: the key
// event or keycode, the typed text, then release and exit.
func (f *sendFlags) messages() ([]protocol.Message, error) {
	var out []protocol.Message
	if f.event.set() {
		evts, err := f.event.events()
		if err != nil {
			return nil, err
		}
		for _, e := range evts {
			out = append(out, protocol.KeyEventMessage(e))
		}
	}
	if f.hasKeycode {
		switch f.event.action {
		case actionTap, "":
			out = append(out, protocol.KeycodeMessage(f.keycode, true), protocol.KeycodeMessage(f.keycode, false))
		case actionPress:
			out = append(out, protocol.KeycodeMessage(f.keycode, true))
		case actionRelease:
			out = append(out, protocol.KeycodeMessage(f.keycode, false))
		default:
			return nil, fmt.Errorf("unknown action %q", f.event.action)
		}
	}
	for _, r := range f.text {
		out = append(out, protocol.CharMessage(r))
	}
	if f.releaseKeys {
		out = append(out, protocol.ReleaseKeysMessage())
	}
	if f.exit {
		out = append(out, protocol.ExitMessage())
	}
	if len(out) == 0 {
		return nil, errors.New("nothing to send")
	}
	return out, nil
}
