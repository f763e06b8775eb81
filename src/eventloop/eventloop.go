package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/export"
	"screen-label-overlay/src/messages"
	"screen-label-overlay/src/profile"
	"screen-label-overlay/src/session"
	"screen-label-overlay/src/singleinstance"
	"screen-label-overlay/src/worker"
)

// exportDeadline bounds one snapshot or PDF export.
const exportDeadline = 30 * time.Second

// ChangeDetector reports whether the persisted document was edited by
// someone else since it was last loaded or saved.
type ChangeDetector interface {
	Changed() (bool, error)
}

// CaptureSwitch turns capture-mode input forwarding on and off.
type CaptureSwitch interface {
	SetCapturing(on bool)
}

// StateSink receives controller state after every change.
type StateSink interface {
	Update(s session.State)
}

type Options struct {
	Controller *session.Controller
	Canvas     *canvas.Canvas
	// Displays is polled every PollInterval; nil disables polling.
	Displays     canvas.Source
	PollInterval time.Duration
	// Store lets the loop skip reloads triggered by its own saves.
	Store    ChangeDetector
	Server   singleinstance.Server
	Hotkeys  CaptureSwitch
	Tray     StateSink
	Notifier session.Notifier
	// Clipboard receives the coordinate list for the copy action.
	Clipboard func(text string) error
	Exporter  *export.Exporter
	Pool      *worker.Pool
	// OnQuit runs when the tray asks to quit, before Run returns.
	OnQuit func()
}

// Loop is the single goroutine that owns the controller. Every other
// goroutine talks to it through Post.
type Loop struct {
	opts    Options
	ctrl    *session.Controller
	msgs    chan messages.Message
	results chan result
	pool    *worker.Pool

	pendingReload bool
}

type result struct {
	path   string
	err    error
	target resultTarget
	cancel context.CancelFunc
}

// resultTarget receives the outcome of a background export.
type resultTarget interface {
	OnSuccess(path string)
	OnFailure(err error)
}

type notifyTarget struct {
	notifier session.Notifier
	what     string
}

func (t notifyTarget) OnSuccess(path string) {
	if t.notifier != nil {
		t.notifier.Notify(t.what, "Saved "+path)
	}
}

func (t notifyTarget) OnFailure(err error) {
	if t.notifier != nil {
		t.notifier.Notify(t.what, fmt.Sprintf("Export failed: %v", err))
	}
}

type connTarget struct {
	conn singleinstance.Conn
}

func (t connTarget) OnSuccess(path string) {
	if err := t.conn.Respond(singleinstance.Reply{OK: true, Path: path}); err != nil {
		log.Printf("eventloop: reply failed: %v", err)
	}
	_ = t.conn.Close()
}

func (t connTarget) OnFailure(err error) {
	if rerr := t.conn.Respond(singleinstance.Reply{Error: err.Error()}); rerr != nil {
		log.Printf("eventloop: reply failed: %v", rerr)
	}
	_ = t.conn.Close()
}

// New wires the loop to the controller. The controller must not be used by
// any other goroutine afterwards.
func New(opts Options) (*Loop, error) {
	if opts.Controller == nil {
		return nil, errors.New("Controller is required")
	}
	if opts.Canvas == nil {
		return nil, errors.New("Canvas is required")
	}
	l := &Loop{
		opts:    opts,
		ctrl:    opts.Controller,
		msgs:    make(chan messages.Message, 64),
		// One running and one queued export can complete after Run stops.
		results: make(chan result, 2),
		pool:    opts.Pool,
	}
	if l.opts.Server == nil {
		l.opts.Server = singleinstance.NewServer()
	}
	if l.pool == nil {
		l.pool = worker.New(1)
	}
	l.ctrl.Subscribe(l.onState)
	return l, nil
}

// Post hands m to the loop. Pointer moves are dropped when the loop is
// behind; everything else waits for room.
func (l *Loop) Post(m messages.Message) {
	if _, ok := m.(messages.PointerMoved); ok {
		select {
		case l.msgs <- m:
		default:
		}
		return
	}
	l.msgs <- m
}

func (l *Loop) onState(s session.State) {
	if l.opts.Hotkeys != nil {
		l.opts.Hotkeys.SetCapturing(s.Capturing)
	}
	if l.opts.Tray != nil {
		l.opts.Tray.Update(s)
	}
}

func (l *Loop) notify(title, message string) {
	if l.opts.Notifier != nil {
		l.opts.Notifier.Notify(title, message)
	}
}

// Run starts the resident server, applies startup visibility and processes
// messages until ctx is cancelled or quit is requested.
func (l *Loop) Run(ctx context.Context) error {
	srv := l.opts.Server
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Close()
	if p := srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
		if t, ok := l.opts.Tray.(interface{ SetAboutExtra(string) }); ok {
			t.SetAboutExtra(fmt.Sprintf("Resident TCP port: %d", p))
		}
	}
	defer l.pool.Close()

	if err := l.ctrl.Start(); err != nil {
		log.Printf("eventloop: show overlay at startup: %v", err)
	}

	// Accept loop in background to avoid blocking message handling
	reqCh := make(chan singleinstance.Conn, 4)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			conn, err := srv.Next(ctx)
			if err != nil {
				close(reqCh)
				return
			}
			select {
			case reqCh <- conn:
			case <-stop:
				_ = conn.Close()
				return
			}
		}
	}()

	var poll <-chan time.Time
	if l.opts.Displays != nil && l.opts.PollInterval > 0 {
		ticker := time.NewTicker(l.opts.PollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		case <-poll:
			l.handle(ctx, messages.DisplaysPoll{})
		case m := <-l.msgs:
			if !l.handle(ctx, m) {
				return nil
			}
		}
		if l.pendingReload && !l.ctrl.Capturing() {
			l.pendingReload = false
			l.reload()
		}
	}
}

// handle processes one message and reports whether the loop should go on.
func (l *Loop) handle(ctx context.Context, m messages.Message) bool {
	switch m := m.(type) {
	case messages.HotkeyPressed:
		l.handleHotkey(m)
	case messages.PointerMoved:
		if d, ok := l.resolve(m.Global); ok {
			l.ctrl.PointerMove(d.ID, d.ToLocal(m.Global))
		}
	case messages.PrimaryClick:
		if d, ok := l.resolve(m.Global); ok {
			if err := l.ctrl.PrimaryClick(d.ID, d.ToLocal(m.Global)); err != nil {
				log.Printf("eventloop: click: %v", err)
			}
		}
	case messages.SecondaryClick:
		l.ctrl.SecondaryClick()
	case messages.Scroll:
		l.ctrl.Scroll(m.Delta)
	case messages.CancelKey:
		if err := l.ctrl.CancelCapture(); err != nil {
			log.Printf("eventloop: cancel: %v", err)
		}
	case messages.TrayMenuClicked:
		return l.handleTray(ctx, m)
	case messages.ProfilesChanged:
		l.handleProfilesChanged()
	case messages.DisplaysPoll:
		if l.opts.Displays == nil {
			return true
		}
		if changed, err := l.ctrl.DisplaysChanged(l.opts.Displays); err != nil {
			log.Printf("eventloop: displays: %v", err)
		} else if changed {
			log.Printf("eventloop: display layout changed, bounds %v", l.opts.Canvas.BoundingRect())
		}
	case messages.DIENOW:
		log.Printf("eventloop: DIENOW received")
		return false
	default:
		log.Printf("eventloop: unhandled message %s", m.Type())
	}
	return true
}

// resolve finds the display under a pointer event. Events are ignored unless
// a capture is open.
func (l *Loop) resolve(global canvas.Point) (canvas.Display, bool) {
	if !l.ctrl.Capturing() {
		return canvas.Display{}, false
	}
	return l.opts.Canvas.DisplayAt(global)
}

func (l *Loop) handleHotkey(m messages.HotkeyPressed) {
	log.Printf("handleHotkey: %s -> %s", m.Combo, m.Action)
	switch m.Action {
	case messages.ActionCapture:
		l.startCapture()
	case messages.ActionToggle:
		l.toggle()
	}
}

func (l *Loop) startCapture() {
	if err := l.ctrl.StartCapture(); err != nil {
		if errors.Is(err, session.ErrCapturing) {
			log.Printf("eventloop: capture already running")
			return
		}
		log.Printf("eventloop: start capture: %v", err)
		l.notify("Configure coordinates", err.Error())
	}
}

func (l *Loop) toggle() {
	_, err := l.ctrl.ToggleOverlayVisibility()
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNoCoordinates):
		l.notify("Overlay", "No coordinates configured for this profile. Configure them first.")
	case errors.Is(err, session.ErrCapturing):
		log.Printf("eventloop: toggle ignored while capturing")
	default:
		log.Printf("eventloop: toggle: %v", err)
	}
}

func (l *Loop) handleTray(ctx context.Context, m messages.TrayMenuClicked) bool {
	log.Printf("handleTray: %s", m.Action)
	var err error
	switch m.Action {
	case messages.TrayToggle:
		l.toggle()
	case messages.TrayCapture:
		l.startCapture()
	case messages.TrayClear:
		err = l.ctrl.ClearCoordinates()
	case messages.TrayCopy:
		err = l.copyCoordinates()
	case messages.TraySwitchProfile:
		_, err = l.ctrl.SwitchProfile(m.Profile)
	case messages.TrayShowOnStartup:
		err = l.ctrl.SetShowOnStartup(m.Checked)
	case messages.TraySnapshot:
		l.startExport(ctx, export.KindSnapshot, "", notifyTarget{notifier: l.opts.Notifier, what: "Snapshot"})
	case messages.TrayExportPDF:
		l.startExport(ctx, export.KindPDF, "", notifyTarget{notifier: l.opts.Notifier, what: "Layout sheet"})
	case messages.TrayQuit:
		_ = l.ctrl.CancelCapture()
		if l.opts.OnQuit != nil {
			l.opts.OnQuit()
		}
		return false
	}
	if err != nil && !errors.Is(err, profile.ErrPersistence) {
		// Persistence failures were already surfaced by the controller.
		l.notify("Overlay", err.Error())
	}
	return true
}

func (l *Loop) copyCoordinates() error {
	text := l.ctrl.CoordinatesText()
	if text == "" {
		return session.ErrNoCoordinates
	}
	if l.opts.Clipboard == nil {
		return errors.New("clipboard unavailable")
	}
	if err := l.opts.Clipboard(text); err != nil {
		return fmt.Errorf("copy coordinates: %w", err)
	}
	log.Printf("eventloop: copied %d byte(s) of coordinates", len(text))
	return nil
}

func (l *Loop) handleProfilesChanged() {
	if l.opts.Store != nil {
		changed, err := l.opts.Store.Changed()
		if err != nil {
			log.Printf("eventloop: check profiles file: %v", err)
			return
		}
		if !changed {
			return
		}
	}
	if l.ctrl.Capturing() {
		log.Printf("eventloop: profiles file changed, reloading after capture")
		l.pendingReload = true
		return
	}
	l.reload()
}

func (l *Loop) reload() {
	if err := l.ctrl.Reload(); err != nil {
		log.Printf("eventloop: reload: %v", err)
	}
}

func (l *Loop) startExport(ctx context.Context, kind export.Kind, path string, target resultTarget) {
	if l.opts.Exporter == nil {
		target.OnFailure(errors.New("export is not configured"))
		return
	}
	if l.ctrl.Capturing() {
		target.OnFailure(session.ErrCapturing)
		return
	}
	task := l.opts.Exporter.Job(kind, path, l.opts.Canvas.Displays(), l.ctrl.ActiveProfile())
	jobCtx, cancel := context.WithTimeout(ctx, exportDeadline)
	submitted := l.pool.Submit(jobCtx, string(kind)+" export", task, func(path string, err error) {
		l.results <- result{path: path, err: err, target: target, cancel: cancel}
	})
	if !submitted {
		cancel()
		target.OnFailure(errors.New("Busy, please retry"))
	}
}

func (l *Loop) handleResult(res result) {
	defer res.cancel()
	if res.err != nil {
		log.Printf("handleResult: export failed: %v", res.err)
		res.target.OnFailure(res.err)
		return
	}
	log.Printf("handleResult: export written to %s", res.path)
	res.target.OnSuccess(res.path)
}
