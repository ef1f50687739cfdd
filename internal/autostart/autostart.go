// Package autostart starts a keyrelay command when the user logs in.
package autostart

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
)

var ErrUnsupported = errors.New("autostart: not supported on this platform")

// Entry is a command run at login.
type Entry struct {
	// Name identifies the entry, e.g. "keyrelay-serve".
	Name string
	// Exec is the executable. Empty means the running binary.
	Exec string
	Args []string
}

func (e Entry) resolve() (Entry, error) {
	if e.Name == "" {
		return e, errors.New("autostart: entry needs a name")
	}
	if e.Exec == "" {
		p, err := os.Executable()
		if err != nil {
			return e, fmt.Errorf("autostart: executable path: %w", err)
		}
		e.Exec = p
	}
	return e, nil
}

// Enable installs e for the current user.
func Enable(e Entry) error {
	e, err := e.resolve()
	if err != nil {
		return err
	}
	return enable(e)
}

// Disable removes the entry called name. Removing a missing entry is not
// an error.
func Disable(name string) error { return disable(name) }

// IsEnabled reports whether the entry called name is installed.
func IsEnabled(name string) bool { return isEnabled(name) }

const desktopEntry = `[Desktop Entry]
Type=Application
Name={{.Name}}
Exec={{.Command}}
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

const launchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{html .Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Argv}}
        <string>{{html .}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

var templates = template.Must(template.New("desktop").Parse(desktopEntry))

func init() {
	template.Must(templates.New("plist").Parse(launchAgentPlist))
}

// renderDesktop returns an XDG autostart file for e.
func renderDesktop(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "desktop", struct{ Name, Command string }{
		Name:    e.Name,
		Command: commandLine(e, desktopQuote),
	})
	return buf.Bytes(), err
}

// renderPlist returns a launchd agent for e.
func renderPlist(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "plist", struct {
		Label string
		Argv  []string
	}{
		Label: label(e.Name),
		Argv:  append([]string{e.Exec}, e.Args...),
	})
	return buf.Bytes(), err
}

func label(name string) string { return "io.keyrelay." + name }

func commandLine(e Entry, quote func(string) string) string {
	parts := make([]string, 0, len(e.Args)+1)
	parts = append(parts, quote(e.Exec))
	for _, a := range e.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

// desktopQuote quotes s for an Exec key when it holds reserved characters.
func desktopQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\><~|&;$*?#()`") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(s) + `"`
}

// windowsQuote quotes s for a registry Run value.
func windowsQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
