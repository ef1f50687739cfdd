package autostart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDesktop(t *testing.T) {
	data, err := renderDesktop(Entry{
		Name: "keyrelay-serve",
		Exec: "/opt/key relay/keyrelay",
		Args: []string{"serve", "--mode", "map"},
	})
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "[Desktop Entry]\n")
	assert.Contains(t, s, "Name=keyrelay-serve\n")
	assert.Contains(t, s, `Exec="/opt/key relay/keyrelay" serve --mode map`+"\n")
}

func TestRenderPlistEscapes(t *testing.T) {
	data, err := renderPlist(Entry{Name: "tray", Exec: "/usr/local/bin/keyrelay", Args: []string{"tray", "--peer", "a&b"}})
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "<string>io.keyrelay.tray</string>")
	assert.Contains(t, s, "<string>/usr/local/bin/keyrelay</string>")
	assert.Contains(t, s, "<string>a&amp;b</string>")
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, "serve", desktopQuote("serve"))
	assert.Equal(t, `"a \$b"`, desktopQuote("a $b"))
	assert.Equal(t, `""`, desktopQuote(""))
	assert.Equal(t, `"C:\Program Files\keyrelay.exe"`, windowsQuote(`C:\Program Files\keyrelay.exe`))
	assert.Equal(t, `--mode`, windowsQuote("--mode"))
}

func TestEntryNeedsName(t *testing.T) {
	assert.Error(t, Enable(Entry{}))
}
