package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/clipboard"
	"screen-label-overlay/src/config"
	"screen-label-overlay/src/export"
	"screen-label-overlay/src/numbering"
	"screen-label-overlay/src/profile"
	"screen-label-overlay/src/runtimeinit"
	"screen-label-overlay/src/screenshot"
	"screen-label-overlay/src/singleinstance"
)

const requestTimeout = 60 * time.Second

var errNeedsResident = errors.New("this command needs a running overlay")

type cliOptions struct {
	jsonOutput   bool
	verbose      bool
	offline      bool
	profilesFile string
}

// backend executes one request, either against the resident or offline.
type backend interface {
	Do(ctx context.Context, req singleinstance.Request) (singleinstance.Reply, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdout)
}

func runWithArgs(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"overlayctl"}
	}
	opts := &cliOptions{}
	cmd := newRootCmd(opts, stdout, nil)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

// newRootCmd builds the command tree. When be is nil each command picks the
// resident when one answers and the profiles file otherwise.
func newRootCmd(opts *cliOptions, stdout io.Writer, be backend) *cobra.Command {
	root := &cobra.Command{
		Use:           "overlayctl",
		Short:         "Control the screen label overlay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Configure logging BEFORE any other operations.
			if opts.verbose {
				log.SetOutput(os.Stderr)
			} else {
				log.SetOutput(io.Discard)
			}
		},
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Edit the profiles file even if an overlay is running")
	root.PersistentFlags().StringVar(&opts.profilesFile, "profiles", "", "Path to the profiles JSON file")

	do := func(req singleinstance.Request) (singleinstance.Reply, error) {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		b := be
		if b == nil {
			b = &autoBackend{opts: *opts}
		}
		reply, err := b.Do(ctx, req)
		if err != nil {
			return reply, err
		}
		if !reply.OK {
			return reply, fmt.Errorf("%s: %s", req.Command, reply.Error)
		}
		return reply, nil
	}
	simple := func(use, short, command string, nargs int, build func(args []string) singleinstance.Request) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(nargs),
			RunE: func(cmd *cobra.Command, args []string) error {
				req := singleinstance.Request{Command: command}
				if build != nil {
					req = build(args)
					req.Command = command
				}
				reply, err := do(req)
				if err != nil {
					return err
				}
				return printReply(stdout, reply, opts.jsonOutput)
			},
		}
	}

	root.AddCommand(
		simple("status", "Show the active profile and overlay state", singleinstance.CmdStatus, 0, nil),
		simple("capture", "Start configuring coordinates", singleinstance.CmdStartCapture, 0, nil),
		simple("cancel", "Cancel configuring coordinates", singleinstance.CmdCancelCapture, 0, nil),
		simple("toggle", "Show or hide the overlay", singleinstance.CmdToggle, 0, nil),
		simple("clear", "Remove all coordinates of the active profile", singleinstance.CmdClear, 0, nil),
		simple("switch NAME", "Activate a profile", singleinstance.CmdSwitch, 1, func(a []string) singleinstance.Request {
			return singleinstance.Request{Name: a[0]}
		}),
		simple("add NAME", "Create and activate an empty profile", singleinstance.CmdAdd, 1, func(a []string) singleinstance.Request {
			return singleinstance.Request{Name: a[0]}
		}),
		simple("rename OLD NEW", "Rename a profile", singleinstance.CmdRename, 2, func(a []string) singleinstance.Request {
			return singleinstance.Request{Name: a[0], NewName: a[1]}
		}),
		simple("remove NAME", "Delete a profile", singleinstance.CmdRemove, 1, func(a []string) singleinstance.Request {
			return singleinstance.Request{Name: a[0]}
		}),
		newStyleCmd(opts, stdout, do),
		newCoordsCmd(opts, stdout, do),
		newExportCmd("snapshot", "Write a PNG of the labels over the desktop", singleinstance.CmdSnapshot, opts, stdout, do),
		newExportCmd("export-pdf", "Write a PDF layout sheet of the active profile", singleinstance.CmdExportPDF, opts, stdout, do),
	)
	return root
}

type doFunc func(req singleinstance.Request) (singleinstance.Reply, error)

func newStyleCmd(opts *cliOptions, stdout io.Writer, do doFunc) *cobra.Command {
	var family, color, outlineColor string
	var size, outlineWidth int
	cmd := &cobra.Command{
		Use:   "style",
		Short: "Change the label style of the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := do(singleinstance.Request{Command: singleinstance.CmdStatus})
			if err != nil {
				return err
			}
			if current.Status == nil {
				return errors.New("status missing from reply")
			}
			st := current.Status.Style
			flags := cmd.Flags()
			if flags.Changed("family") {
				st.Family = family
			}
			if flags.Changed("size") {
				st.Size = size
			}
			if flags.Changed("outline-width") {
				st.OutlineWidth = outlineWidth
			}
			if flags.Changed("color") {
				if st.Color, err = parseColor(color); err != nil {
					return err
				}
			}
			if flags.Changed("outline-color") {
				if st.OutlineColor, err = parseColor(outlineColor); err != nil {
					return err
				}
			}
			reply, err := do(singleinstance.Request{Command: singleinstance.CmdStyle, Style: &st})
			if err != nil {
				return err
			}
			return printReply(stdout, reply, opts.jsonOutput)
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "Font family")
	cmd.Flags().IntVar(&size, "size", 0, fmt.Sprintf("Font size (%d-%d)", profile.MinFontSize, profile.MaxFontSize))
	cmd.Flags().StringVar(&color, "color", "", "Fill colour as #rrggbb or r,g,b")
	cmd.Flags().StringVar(&outlineColor, "outline-color", "", "Outline colour as #rrggbb or r,g,b")
	cmd.Flags().IntVar(&outlineWidth, "outline-width", 0, fmt.Sprintf("Outline width (%d-%d)", profile.MinOutlineWidth, profile.MaxOutlineWidth))
	return cmd
}

func newCoordsCmd(opts *cliOptions, stdout io.Writer, do doFunc) *cobra.Command {
	var copyToClipboard bool
	cmd := &cobra.Command{
		Use:   "coords",
		Short: "Print the coordinates of the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := do(singleinstance.Request{Command: singleinstance.CmdStatus})
			if err != nil {
				return err
			}
			if reply.Status == nil {
				return errors.New("status missing from reply")
			}
			if opts.jsonOutput {
				return writeJSON(stdout, reply.Status.Coordinates)
			}
			text := formatCoordinates(reply.Status.Coordinates)
			if copyToClipboard {
				if text == "" {
					return errors.New("active profile has no coordinates")
				}
				if err := clipboard.Write(text); err != nil {
					return err
				}
			}
			_, err = io.WriteString(stdout, text)
			return err
		},
	}
	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Also copy the list to the clipboard")
	return cmd
}

func newExportCmd(use, short, command string, opts *cliOptions, stdout io.Writer, do doFunc) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := do(singleinstance.Request{Command: command, Path: out})
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(stdout, reply)
			}
			_, err = fmt.Fprintln(stdout, reply.Path)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: timestamped file in the export directory)")
	return cmd
}

// autoBackend delegates to a resident and falls back to the profiles file.
type autoBackend struct {
	opts cliOptions
}

func (b *autoBackend) Do(ctx context.Context, req singleinstance.Request) (singleinstance.Reply, error) {
	// Load .env early so SINGLEINSTANCE_PORT_* are applied before delegation scan
	if cfg, err := config.Load(); err == nil {
		singleinstance.SetPortRange(cfg.PortStart, cfg.PortEnd)
	}
	if !b.opts.offline {
		delegated, reply, err := singleinstance.NewClient().Send(ctx, req)
		if err != nil {
			return reply, fmt.Errorf("resident: %w", err)
		}
		if delegated {
			log.Printf("Delegated %s to resident", req.Command)
			return reply, nil
		}
		log.Printf("No resident detected, using the profiles file")
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:   config.LoadOptions{ProfilesFileOverride: b.opts.profilesFile},
		SkipClipboard: true,
	})
	if err != nil {
		return singleinstance.Reply{}, err
	}
	off := &offlineBackend{
		store:    profile.NewFileStore(rt.Config.ProfilesFile),
		displays: screenshot.Source,
		exporter: &export.Exporter{Renderer: rt.Renderer, Background: screenshot.Capture, Dir: rt.Config.ExportDir},
	}
	return off.Do(ctx, req)
}

// offlineBackend applies commands straight to the persisted document.
type offlineBackend struct {
	store    profile.Store
	displays canvas.Source
	exporter *export.Exporter
}

func (b *offlineBackend) Do(ctx context.Context, req singleinstance.Request) (singleinstance.Reply, error) {
	doc, err := b.store.Load()
	if err != nil {
		// Never write defaults over a file we could not read.
		return singleinstance.Reply{}, err
	}
	set := doc.Profiles
	mutated := true
	var path string
	switch req.Command {
	case singleinstance.CmdStatus:
		mutated = false
	case singleinstance.CmdSwitch:
		mutated = req.Name != set.ActiveName() && set.SetActive(req.Name)
	case singleinstance.CmdAdd:
		err = set.Add(req.Name)
	case singleinstance.CmdRename:
		err = set.Rename(req.Name, strings.TrimSpace(req.NewName))
	case singleinstance.CmdRemove:
		err = set.Remove(req.Name)
	case singleinstance.CmdStyle:
		if req.Style == nil {
			err = errors.New("style is required")
			break
		}
		set.Active().Style = req.Style.Clamp()
	case singleinstance.CmdClear:
		set.Active().SetCoordinates(nil)
	case singleinstance.CmdSnapshot, singleinstance.CmdExportPDF:
		mutated = false
		path, err = b.export(ctx, req, set.Active().Clone())
	case singleinstance.CmdStartCapture, singleinstance.CmdCancelCapture, singleinstance.CmdToggle:
		err = errNeedsResident
	default:
		err = fmt.Errorf("unknown command %q", req.Command)
	}
	if err != nil {
		return singleinstance.Reply{Error: err.Error()}, nil
	}
	if mutated {
		if err := b.store.Save(doc); err != nil {
			return singleinstance.Reply{}, err
		}
	}
	return singleinstance.Reply{OK: true, Status: docStatus(doc), Path: path}, nil
}

func (b *offlineBackend) export(ctx context.Context, req singleinstance.Request, p profile.Profile) (string, error) {
	if b.exporter == nil || b.displays == nil {
		return "", errors.New("export is not configured")
	}
	displays, err := b.displays.Displays()
	if err != nil {
		return "", err
	}
	kind := export.KindPDF
	if req.Command == singleinstance.CmdSnapshot {
		kind = export.KindSnapshot
	}
	return b.exporter.Job(kind, req.Path, displays, p)(ctx)
}

func docStatus(doc *profile.Document) *singleinstance.Status {
	p := doc.Profiles.Active()
	return &singleinstance.Status{
		Active:        p.Name,
		Profiles:      doc.Profiles.Names(),
		Points:        len(p.Coordinates),
		Coordinates:   append([]canvas.Point(nil), p.Coordinates...),
		Style:         p.Style,
		ShowOnStartup: doc.ShowOverlayOnStartup,
	}
}

func printReply(w io.Writer, reply singleinstance.Reply, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, reply)
	}
	s := reply.Status
	if s == nil {
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Active profile: %s (%d point(s))\n", s.Active, s.Points)
	names := make([]string, len(s.Profiles))
	for i, n := range s.Profiles {
		names[i] = n
		if n == s.Active {
			names[i] = "*" + n
		}
	}
	fmt.Fprintf(&b, "Profiles: %s\n", strings.Join(names, ", "))
	st := s.Style
	fmt.Fprintf(&b, "Style: %s %dpt, color %s, outline %s %dpx\n", st.Family, st.Size, st.Color, st.OutlineColor, st.OutlineWidth)
	fmt.Fprintf(&b, "Overlay visible: %t, capturing: %t, show on startup: %t\n", s.OverlayVisible, s.Capturing, s.ShowOnStartup)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func formatCoordinates(points []canvas.Point) string {
	var b strings.Builder
	for i, p := range points {
		label, ok := numbering.Label(i + 1)
		if !ok {
			break
		}
		fmt.Fprintf(&b, "%s: %d, %d\n", label, p.X, p.Y)
	}
	return b.String()
}

// parseColor accepts #rrggbb or r,g,b.
func parseColor(s string) (profile.RGB, error) {
	s = strings.TrimSpace(s)
	var c profile.RGB
	if strings.HasPrefix(s, "#") {
		if len(s) != 7 {
			return c, fmt.Errorf("invalid colour %q", s)
		}
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return c, fmt.Errorf("invalid colour %q", s)
		}
		return profile.RGB{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return c, fmt.Errorf("invalid colour %q", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return c, fmt.Errorf("invalid colour %q", s)
		}
		c[i] = uint8(n)
	}
	return c, nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		switch {
		case arg == "-json":
			normalized[i] = "--json"
		case strings.HasPrefix(arg, "-json="):
			normalized[i] = "--json=" + arg[len("-json="):]
		case arg == "-verbose":
			normalized[i] = "--verbose"
		case strings.HasPrefix(arg, "-verbose="):
			normalized[i] = "--verbose=" + arg[len("-verbose="):]
		case arg == "-offline":
			normalized[i] = "--offline"
		case arg == "-profiles":
			normalized[i] = "--profiles"
		case strings.HasPrefix(arg, "-profiles="):
			normalized[i] = "--profiles=" + arg[len("-profiles="):]
		}
	}

	return normalized
}
