package autostart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableDisable(t *testing.T) {
	dir := t.TempDir()
	prev := configDir
	configDir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDir = prev })

	assert.False(t, IsEnabled("keyrelay-serve"))
	require.NoError(t, Enable(Entry{Name: "keyrelay-serve", Exec: "/bin/keyrelay", Args: []string{"serve"}}))
	assert.True(t, IsEnabled("keyrelay-serve"))

	data, err := os.ReadFile(filepath.Join(dir, "autostart", "keyrelay-serve.desktop"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Exec=/bin/keyrelay serve\n")

	require.NoError(t, Disable("keyrelay-serve"))
	assert.False(t, IsEnabled("keyrelay-serve"))
	require.NoError(t, Disable("keyrelay-serve"))
}
