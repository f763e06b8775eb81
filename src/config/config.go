package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// AltEnvPathVar names a .env file used when none sits next to the executable.
	AltEnvPathVar = "SCREEN_LABEL_OVERLAY"

	defaultDisplayPollSec = 2
)

type LoadOptions struct {
	ProfilesFileOverride string
	FramesDirOverride    string
}

type Config struct {
	ProfilesFile      string `env:"OVERLAY_PROFILES_FILE" envDefault:"config.json"`
	EnableFileLogging bool   `env:"ENABLE_FILE_LOGGING"`
	CaptureHotkey     string `env:"CAPTURE_HOTKEY" envDefault:"Ctrl+Alt+N"`
	ToggleHotkey      string `env:"TOGGLE_HOTKEY" envDefault:"Ctrl+Alt+H"`
	FontDir           string `env:"FONT_DIR"`
	DisplayPollSec    int    `env:"DISPLAY_POLL_SEC" envDefault:"2"`
	FramesDir         string `env:"OVERLAY_FRAMES_DIR"`
	ExportDir         string `env:"OVERLAY_EXPORT_DIR"`
	WatchProfilesFile bool   `env:"WATCH_PROFILES_FILE" envDefault:"true"`
	PortStart         int    `env:"SINGLEINSTANCE_PORT_START" envDefault:"49500"`
	PortEnd           int    `env:"SINGLEINSTANCE_PORT_END" envDefault:"49550"`

	// EnvPath is the .env file that was applied, if any.
	EnvPath string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, the file named by SCREEN_LABEL_OVERLAY
	// Real environment variables always win over the file.
	envPath := resolveEnvPath()
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("read %s: %w", envPath, err)
		}
	}

	cfg := &Config{EnvPath: envPath}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if override := strings.TrimSpace(opts.ProfilesFileOverride); override != "" {
		cfg.ProfilesFile = override
	}
	if override := strings.TrimSpace(opts.FramesDirOverride); override != "" {
		cfg.FramesDir = override
	}
	cfg.ProfilesFile = resolveProfilesPath(cfg.ProfilesFile, envPath)
	if strings.TrimSpace(cfg.ExportDir) == "" {
		cfg.ExportDir = filepath.Join(filepath.Dir(cfg.ProfilesFile), "exports")
	}
	if cfg.DisplayPollSec <= 0 {
		cfg.DisplayPollSec = defaultDisplayPollSec
	}
	return cfg, nil
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(AltEnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

// resolveProfilesPath anchors a relative profiles path next to the .env
// file that configured it, or the working directory otherwise.
func resolveProfilesPath(path, envPath string) string {
	if path == "" || filepath.IsAbs(path) || envPath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(envPath), path)
}
