package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/clipboard"
	"screen-label-overlay/src/config"
	"screen-label-overlay/src/eventloop"
	"screen-label-overlay/src/export"
	"screen-label-overlay/src/hotkey"
	"screen-label-overlay/src/logutil"
	"screen-label-overlay/src/messages"
	"screen-label-overlay/src/notification"
	"screen-label-overlay/src/overlay"
	"screen-label-overlay/src/profile"
	"screen-label-overlay/src/runtimeinit"
	"screen-label-overlay/src/screenshot"
	"screen-label-overlay/src/session"
	"screen-label-overlay/src/singleinstance"
	"screen-label-overlay/src/tray"
)

var errAlreadyRunning = errors.New("an overlay is already running")

type mainOptions struct {
	profilesFile string
	framesDir    string
	capture      bool
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	// Lock main goroutine to its own OS thread to prevent it from sharing
	// the hook thread's message queue
	runtime.LockOSThread()

	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-label-overlay"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-label-overlay",
		Short:         "Show numbered labels at saved screen positions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(*opts)
		},
	}
	cmd.Flags().StringVar(&opts.profilesFile, "profiles", "", "Path to the profiles JSON file")
	cmd.Flags().StringVar(&opts.framesDir, "frames-dir", "", "Write overlay frames as PNG files to this directory")
	cmd.Flags().BoolVar(&opts.capture, "capture", false, "Start configuring coordinates right away")
	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"profiles", "frames-dir", "capture"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "--" + arg[1:]
			}
		}
	}

	return normalized
}

// delegateToResident hands the request to a running resident. It reports
// whether one was found.
func delegateToResident(ctx context.Context, opts mainOptions, client singleinstance.Client) (bool, error) {
	req := singleinstance.Request{Command: singleinstance.CmdStatus}
	if opts.capture {
		req.Command = singleinstance.CmdStartCapture
	}
	delegated, reply, err := client.Send(ctx, req)
	if err != nil {
		log.Printf("Delegation error: %v; starting a new resident", err)
		return false, nil
	}
	if !delegated {
		return false, nil
	}
	if !reply.OK {
		return true, fmt.Errorf("resident refused %s: %s", req.Command, reply.Error)
	}
	if opts.capture {
		log.Printf("Delegated capture to resident")
		return true, nil
	}
	if reply.Status != nil {
		return true, fmt.Errorf("%w (active profile %q)", errAlreadyRunning, reply.Status.Active)
	}
	return true, errAlreadyRunning
}

func runResident(opts mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT_* are applied before delegation scan
	if early, err := config.Load(); err == nil {
		singleinstance.SetPortRange(early.PortStart, early.PortEnd)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probeCtx, probeCancel := context.WithTimeout(ctx, 2*time.Second)
	found, err := delegateToResident(probeCtx, opts, singleinstance.NewClient())
	probeCancel()
	if found {
		return err
	}

	// ---------- SINGLE-INSTANCE NUKE ----------
	startPort, _ := singleinstance.PortRange()
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", startPort))
	if err != nil {
		log.Printf("Pre-flight: port %d busy → resident already exists", startPort)
		return fmt.Errorf("%w on port %d", errAlreadyRunning, startPort)
	}
	// We claimed the port; release it so the event loop can re-bind.
	_ = listener.Close()
	log.Printf("Pre-flight: port %d free → we are the one true resident", startPort)
	// ------------------------------------------

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			ProfilesFileOverride: opts.profilesFile,
			FramesDirOverride:    opts.framesDir,
		},
		SetupLogging:       logutil.Setup,
		ShowBlockingErrors: true,
	})
	if err != nil {
		return err
	}
	cfg := rt.Config
	logMonitorConfiguration()

	cv := canvas.New()
	if err := cv.Refresh(screenshot.Source); err != nil {
		notification.ShowBlockingError("No displays", fmt.Sprintf("Could not enumerate displays: %v", err))
		return err
	}

	var presenter overlay.Presenter = &overlay.LogPresenter{}
	if cfg.FramesDir != "" {
		log.Printf("Overlay frames written to %s", cfg.FramesDir)
		presenter = overlay.PNGPresenter{Dir: cfg.FramesDir}
	}

	store := profile.NewFileStore(cfg.ProfilesFile)
	notifier := notification.Notifier{}
	ctrl, err := session.New(session.Options{
		Store:    store,
		Canvas:   cv,
		Renderer: rt.Renderer,
		NewSurface: func(name string, paint overlay.PaintFunc) session.Surface {
			return overlay.NewLayer(name, presenter, cv.Displays, paint)
		},
		Notifier: notifier,
	})
	if err != nil {
		return err
	}

	// loop is assigned before any producer starts.
	var loop *eventloop.Loop
	post := func(m messages.Message) { loop.Post(m) }

	hk, err := hotkey.NewListener([]hotkey.Binding{
		{Combo: cfg.CaptureHotkey, Action: messages.ActionCapture},
		{Combo: cfg.ToggleHotkey, Action: messages.ActionToggle},
	}, post)
	if err != nil {
		notification.ShowBlockingError("Invalid hotkey", err.Error())
		return err
	}

	tooltip := fmt.Sprintf("Screen labels - %s to configure, %s to show/hide", cfg.CaptureHotkey, cfg.ToggleHotkey)
	var icon []byte
	if img, err := rt.Renderer.Icon(32); err != nil {
		log.Printf("Tray icon: %v", err)
	} else if icon, err = tray.EncodeIcon(img); err != nil {
		log.Printf("Tray icon: %v", err)
	}
	trayIcon := tray.New(tray.Config{
		Title:   "Screen Labels",
		Tooltip: tooltip,
		Icon:    icon,
		Post:    post,
		OnExit:  cancel,
	})

	loop, err = eventloop.New(eventloop.Options{
		Controller:   ctrl,
		Canvas:       cv,
		Displays:     screenshot.Source,
		PollInterval: time.Duration(cfg.DisplayPollSec) * time.Second,
		Store:        store,
		Hotkeys:      hk,
		Tray:         trayIcon,
		Notifier:     notifier,
		Clipboard:    clipboard.Write,
		Exporter: &export.Exporter{
			Renderer:   rt.Renderer,
			Background: screenshot.Capture,
			Dir:        cfg.ExportDir,
		},
		OnQuit: cancel,
	})
	if err != nil {
		return err
	}

	if cfg.WatchProfilesFile {
		watcher, err := profile.NewWatcher(cfg.ProfilesFile, func() { post(messages.ProfilesChanged{}) })
		if err != nil {
			log.Printf("Profiles file watching disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	log.Printf("Screen label overlay initialized")
	log.Printf("Capture hotkey: %s, toggle hotkey: %s", cfg.CaptureHotkey, cfg.ToggleHotkey)
	log.Printf("Display poll: %ds", cfg.DisplayPollSec)

	hk.Start()
	defer hk.Stop()
	go trayIcon.Run()
	defer trayIcon.Quit()

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	if opts.capture {
		post(messages.HotkeyPressed{Combo: "--capture", Action: messages.ActionCapture})
	}

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("event loop stopped: %v", err)
		return err
	}
	log.Printf("Shutting down")
	return nil
}
