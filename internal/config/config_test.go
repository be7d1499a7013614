package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.General.CaptureEnabled)
	assert.Equal(t, "LCtrl+LAlt+PgUp", cfg.General.CaptureHotkey)
	assert.Equal(t, 1.0, cfg.General.MouseSensitivity)
	assert.Equal(t, 25, cfg.General.AbsoluteDivisor)
	assert.True(t, cfg.General.APIEnabled)
	assert.Equal(t, 18090, cfg.General.APIPort)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.yaml"))

	require.NoError(t, m.Load())
	assert.Equal(t, 25, m.Get().General.AbsoluteDivisor)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManagerAt(path)

	cfg := m.Get()
	cfg.General.CaptureEnabled = true
	cfg.General.MouseSensitivity = 1.5
	cfg.General.RCtrlIsLAlt = true
	cfg.Remap = map[string]string{"0x03A": "0x01D"}
	require.NoError(t, m.Save())

	m2 := NewManagerAt(path)
	require.NoError(t, m2.Load())

	got := m2.Get()
	assert.True(t, got.General.CaptureEnabled)
	assert.Equal(t, 1.5, got.General.MouseSensitivity)
	assert.True(t, got.General.RCtrlIsLAlt)
	assert.Equal(t, "0x01D", got.Remap["0x03A"])
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("general: [not a map"), 0644))

	m := NewManagerAt(path)
	assert.Error(t, m.Load())
}

func TestChangeCallback(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.yaml"))

	changed := 0
	m.RegisterChangeCallback(func() { changed++ })

	m.Set(DefaultConfig())
	assert.Equal(t, 1, changed)
}
