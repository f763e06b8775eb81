package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(AltEnvPathVar, "")
	for _, k := range []string{"OVERLAY_PROFILES_FILE", "CAPTURE_HOTKEY", "TOGGLE_HOTKEY", "DISPLAY_POLL_SEC", "WATCH_PROFILES_FILE", "ENABLE_FILE_LOGGING"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "config.json", filepath.Base(cfg.ProfilesFile))
	assert.Equal(t, "Ctrl+Alt+N", cfg.CaptureHotkey)
	assert.Equal(t, "Ctrl+Alt+H", cfg.ToggleHotkey)
	assert.Equal(t, 2, cfg.DisplayPollSec)
	assert.True(t, cfg.WatchProfilesFile)
	assert.False(t, cfg.EnableFileLogging)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(AltEnvPathVar, "")
	t.Setenv("OVERLAY_PROFILES_FILE", "/tmp/profiles.json")
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("CAPTURE_HOTKEY", "Ctrl+Shift+T")
	t.Setenv("DISPLAY_POLL_SEC", "0")
	t.Setenv("WATCH_PROFILES_FILE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/profiles.json", cfg.ProfilesFile)
	assert.True(t, cfg.EnableFileLogging)
	assert.Equal(t, "Ctrl+Shift+T", cfg.CaptureHotkey)
	assert.Equal(t, 2, cfg.DisplayPollSec)
	assert.False(t, cfg.WatchProfilesFile)
}

func TestLoadFromAltEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "overlay.env")
	require.NoError(t, os.WriteFile(envFile, []byte("FONT_DIR=/fonts\nOVERLAY_PROFILES_FILE=layouts.json\n"), 0o644))
	t.Setenv(AltEnvPathVar, envFile)
	// godotenv never overrides variables that are already set.
	t.Setenv("FONT_DIR", "")
	os.Unsetenv("FONT_DIR")
	t.Setenv("OVERLAY_PROFILES_FILE", "")
	os.Unsetenv("OVERLAY_PROFILES_FILE")

	cfg, err := Load()
	require.NoError(t, err)
	if cfg.EnvPath != envFile {
		t.Skipf("a .env next to the test binary took precedence: %s", cfg.EnvPath)
	}
	assert.Equal(t, "/fonts", cfg.FontDir)
	assert.Equal(t, filepath.Join(dir, "layouts.json"), cfg.ProfilesFile)
}

func TestOverridesWin(t *testing.T) {
	t.Setenv(AltEnvPathVar, "")
	t.Setenv("OVERLAY_PROFILES_FILE", "/tmp/a.json")
	t.Setenv("OVERLAY_EXPORT_DIR", "")

	cfg, err := LoadWithOptions(LoadOptions{ProfilesFileOverride: "/tmp/b.json", FramesDirOverride: "/tmp/frames"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b.json", cfg.ProfilesFile)
	assert.Equal(t, "/tmp/frames", cfg.FramesDir)
	assert.Equal(t, filepath.Join("/tmp", "exports"), cfg.ExportDir)
}

func TestInvalidValueFails(t *testing.T) {
	t.Setenv(AltEnvPathVar, "")
	t.Setenv("DISPLAY_POLL_SEC", "soon")
	_, err := Load()
	assert.Error(t, err)
}
