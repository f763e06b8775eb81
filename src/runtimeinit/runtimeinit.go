package runtimeinit

import (
	"fmt"
	"log"
	"path/filepath"

	"screen-label-overlay/src/clipboard"
	"screen-label-overlay/src/config"
	"screen-label-overlay/src/notification"
	"screen-label-overlay/src/overlay"
	"screen-label-overlay/src/singleinstance"
)

type Options struct {
	LoadOptions config.LoadOptions
	// SetupLogging receives the file-logging switch and the directory of the
	// profiles file, and returns the log file path if one is in use.
	SetupLogging func(enable bool, dir string) string
	// ShowBlockingErrors shows startup failures in a dialog; the resident
	// sets it, the CLI does not.
	ShowBlockingErrors bool
	// SkipClipboard leaves the clipboard uninitialized.
	SkipClipboard bool
}

// Runtime is what every entry point needs after startup.
type Runtime struct {
	Config   *config.Config
	Renderer *overlay.Renderer
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		if path := opts.SetupLogging(cfg.EnableFileLogging, filepath.Dir(cfg.ProfilesFile)); path != "" {
			log.Printf("Logging to %s", path)
		}
	}
	singleinstance.SetPortRange(cfg.PortStart, cfg.PortEnd)
	if cfg.EnvPath != "" {
		log.Printf("Configuration loaded from %s", cfg.EnvPath)
	}
	log.Printf("Profiles file: %s", cfg.ProfilesFile)

	fonts, err := overlay.NewFonts()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in fonts: %w", err)
	}
	if cfg.FontDir != "" {
		n, err := fonts.LoadDir(cfg.FontDir)
		if err != nil {
			// Built-in faces still work; report and carry on.
			log.Printf("FONT_DIR %s: %v", cfg.FontDir, err)
			if opts.ShowBlockingErrors {
				notification.ShowBlockingError("Fonts unavailable", fmt.Sprintf("Could not load fonts from %s: %v\n\nBuilt-in fonts will be used.", cfg.FontDir, err))
			}
		} else {
			log.Printf("Registered %d font file(s) from %s", n, cfg.FontDir)
		}
	}

	if !opts.SkipClipboard {
		if err := clipboard.Init(); err != nil {
			if opts.ShowBlockingErrors {
				notification.ShowBlockingError("Clipboard unavailable", fmt.Sprintf("Startup check failed: %v", err))
			}
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	return &Runtime{Config: cfg, Renderer: overlay.NewRenderer(fonts)}, nil
}
