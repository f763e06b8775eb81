package eventloop

import (
	"context"
	"errors"
	"image"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/export"
	"screen-label-overlay/src/messages"
	"screen-label-overlay/src/numbering"
	"screen-label-overlay/src/overlay"
	"screen-label-overlay/src/profile"
	"screen-label-overlay/src/session"
	"screen-label-overlay/src/singleinstance"
)

type memStore struct {
	mu      sync.Mutex
	doc     *profile.Document
	loads   int
	saves   int
	changed bool
}

func (m *memStore) Load() (*profile.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	m.changed = false
	if m.doc == nil {
		return profile.NewDocument(), nil
	}
	return m.doc.Clone(), nil
}

func (m *memStore) Save(doc *profile.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc.Clone()
	m.saves++
	return nil
}

func (m *memStore) Changed() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed, nil
}

type fakeConn struct {
	req     singleinstance.Request
	mu      sync.Mutex
	replies []singleinstance.Reply
	closed  chan struct{}
}

func newConn(req singleinstance.Request) *fakeConn {
	return &fakeConn{req: req, closed: make(chan struct{})}
}

func (c *fakeConn) Request() singleinstance.Request { return c.req }

func (c *fakeConn) Respond(r singleinstance.Reply) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, r)
	return nil
}

func (c *fakeConn) Close() error {
	close(c.closed)
	return nil
}

func (c *fakeConn) reply(t *testing.T) singleinstance.Reply {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.replies, 1)
	return c.replies[0]
}

type fakeServer struct {
	conns chan singleinstance.Conn
}

func (s *fakeServer) Start(context.Context) error { return nil }

func (s *fakeServer) Port() int { return 0 }

func (s *fakeServer) Close() error { return nil }

func (s *fakeServer) Next(ctx context.Context) (singleinstance.Conn, error) {
	select {
	case c := <-s.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, title+": "+message)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fakeSwitch struct{ values []bool }

func (s *fakeSwitch) SetCapturing(on bool) { s.values = append(s.values, on) }

type harness struct {
	loop     *Loop
	ctrl     *session.Controller
	canvas   *canvas.Canvas
	store    *memStore
	server   *fakeServer
	notifier *fakeNotifier
	hotkeys  *fakeSwitch
	copied   []string
}

// Primary display on the right, a second one left of it.
var (
	primary = canvas.Display{ID: 0, Bounds: image.Rect(0, 0, 200, 100)}
	left    = canvas.Display{ID: 1, Bounds: image.Rect(-200, 0, 0, 100)}
)

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	fonts, err := overlay.NewFonts()
	require.NoError(t, err)
	renderer := overlay.NewRenderer(fonts)

	h := &harness{
		canvas:   canvas.New(primary, left),
		store:    &memStore{},
		server:   &fakeServer{conns: make(chan singleinstance.Conn, 4)},
		notifier: &fakeNotifier{},
		hotkeys:  &fakeSwitch{},
	}
	presenter := &overlay.LogPresenter{}
	h.ctrl, err = session.New(session.Options{
		Store:    h.store,
		Canvas:   h.canvas,
		Renderer: renderer,
		NewSurface: func(name string, paint overlay.PaintFunc) session.Surface {
			return overlay.NewLayer(name, presenter, h.canvas.Displays, paint)
		},
		Notifier: h.notifier,
	})
	require.NoError(t, err)

	opts.Controller = h.ctrl
	opts.Canvas = h.canvas
	opts.Store = h.store
	opts.Server = h.server
	opts.Hotkeys = h.hotkeys
	opts.Notifier = h.notifier
	if opts.Clipboard == nil {
		opts.Clipboard = func(text string) error {
			h.copied = append(h.copied, text)
			return nil
		}
	}
	if opts.Exporter == nil {
		opts.Exporter = &export.Exporter{Renderer: renderer, Dir: t.TempDir()}
	}
	h.loop, err = New(opts)
	require.NoError(t, err)
	return h
}

// run processes msgs through Run and returns once DIENOW is handled.
func (h *harness) run(t *testing.T, msgs ...messages.Message) {
	t.Helper()
	for _, m := range msgs {
		h.loop.Post(m)
	}
	h.loop.Post(messages.DIENOW{})
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func click(p canvas.Point) messages.Message { return messages.PrimaryClick{Global: p} }

func TestNewRequiresController(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestCaptureRecordsSharedCoordinates(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	h.loop.handle(ctx, messages.HotkeyPressed{Combo: "Ctrl+Alt+N", Action: messages.ActionCapture})
	require.True(t, h.ctrl.Capturing())
	assert.Equal(t, []bool{true}, h.hotkeys.values)

	h.loop.handle(ctx, click(canvas.Pt(-50, 40)))
	h.loop.handle(ctx, click(canvas.Pt(120, 60)))
	// Outside every display: ignored.
	h.loop.handle(ctx, click(canvas.Pt(500, 500)))
	assert.Equal(t, 2, h.ctrl.State().Recorded)

	for i := 2; i < numbering.MaxPoints; i++ {
		h.loop.handle(ctx, click(canvas.Pt(10+i, 10)))
	}
	require.False(t, h.ctrl.Capturing())
	assert.Equal(t, false, h.hotkeys.values[len(h.hotkeys.values)-1])

	p := h.ctrl.ActiveProfile()
	require.Len(t, p.Coordinates, numbering.MaxPoints)
	assert.Equal(t, canvas.Pt(-50, 40), p.Coordinates[0])
	assert.Equal(t, canvas.Pt(120, 60), p.Coordinates[1])
	assert.Equal(t, 1, h.store.saves)
	assert.True(t, h.ctrl.OverlayVisible())
}

func TestPointerEventsIgnoredWhenIdle(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.loop.handle(ctx, click(canvas.Pt(10, 10)))
	h.loop.handle(ctx, messages.PointerMoved{Global: canvas.Pt(10, 10)})
	h.loop.handle(ctx, messages.SecondaryClick{})
	h.loop.handle(ctx, messages.Scroll{Delta: 1})
	assert.Empty(t, h.ctrl.ActiveProfile().Coordinates)
	assert.Equal(t, profile.DefaultStyle(), h.ctrl.ActiveProfile().Style)
	assert.Equal(t, 0, h.store.saves)
}

func TestCancelKeyDiscardsCapture(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.loop.handle(ctx, messages.TrayMenuClicked{Action: messages.TrayCapture})
	h.loop.handle(ctx, click(canvas.Pt(10, 10)))
	h.loop.handle(ctx, messages.CancelKey{})

	assert.False(t, h.ctrl.Capturing())
	assert.Empty(t, h.ctrl.ActiveProfile().Coordinates)
	assert.Equal(t, 0, h.store.saves)
}

func TestToggleWithoutCoordinatesNotifies(t *testing.T) {
	h := newHarness(t, Options{})
	h.loop.handle(context.Background(), messages.HotkeyPressed{Action: messages.ActionToggle})
	assert.False(t, h.ctrl.OverlayVisible())
	assert.Equal(t, 1, h.notifier.count())
}

func TestCopyCoordinates(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	h.loop.handle(ctx, messages.TrayMenuClicked{Action: messages.TrayCopy})
	assert.Empty(t, h.copied)
	assert.Equal(t, 1, h.notifier.count())

	h.store.doc = profile.NewDocument()
	h.store.doc.Profiles.Active().SetCoordinates([]canvas.Point{canvas.Pt(-5, 7)})
	h.store.changed = true
	h.loop.handle(ctx, messages.ProfilesChanged{})
	h.loop.handle(ctx, messages.TrayMenuClicked{Action: messages.TrayCopy})
	assert.Equal(t, []string{"1: -5, 7\n"}, h.copied)
}

func TestProfilesChangedSkipsOwnWrites(t *testing.T) {
	h := newHarness(t, Options{})
	loads := h.store.loads
	h.loop.handle(context.Background(), messages.ProfilesChanged{})
	assert.Equal(t, loads, h.store.loads)
}

func TestReloadDeferredUntilCaptureEnds(t *testing.T) {
	h := newHarness(t, Options{})
	doc := profile.NewDocument()
	require.NoError(t, doc.Profiles.Add("External"))
	h.store.doc = doc

	h.loop.Post(messages.HotkeyPressed{Action: messages.ActionCapture})
	h.loop.Post(messages.ProfilesChanged{})
	h.store.changed = true
	h.run(t, messages.CancelKey{})

	assert.Equal(t, "External", h.ctrl.ActiveProfile().Name)
}

func TestTraySwitchAndShowOnStartup(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	require.NoError(t, h.ctrl.AddProfile("Work"))

	h.loop.handle(ctx, messages.TrayMenuClicked{Action: messages.TraySwitchProfile, Profile: profile.DefaultName})
	assert.Equal(t, profile.DefaultName, h.ctrl.ActiveProfile().Name)

	h.loop.handle(ctx, messages.TrayMenuClicked{Action: messages.TrayShowOnStartup, Checked: false})
	assert.False(t, h.ctrl.State().ShowOnStartup)
	assert.False(t, h.store.doc.ShowOverlayOnStartup)
}

func TestDisplaysPollRefreshesCanvas(t *testing.T) {
	right := canvas.Display{ID: 2, Bounds: image.Rect(200, 0, 400, 100)}
	src := canvas.SourceFunc(func() ([]canvas.Display, error) {
		return []canvas.Display{primary, right}, nil
	})
	h := newHarness(t, Options{Displays: src})
	h.loop.handle(context.Background(), messages.DisplaysPoll{})
	assert.Equal(t, image.Rect(0, 0, 400, 100), h.canvas.BoundingRect())
}

func TestDisplaysPollKeepsCanvasOnFailure(t *testing.T) {
	src := canvas.SourceFunc(func() ([]canvas.Display, error) { return nil, errors.New("gone") })
	h := newHarness(t, Options{Displays: src})
	h.loop.handle(context.Background(), messages.DisplaysPoll{})
	assert.Equal(t, image.Rect(-200, 0, 200, 100), h.canvas.BoundingRect())
}

func TestRemoteCommands(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	c := newConn(singleinstance.Request{Command: singleinstance.CmdAdd, Name: "Work"})
	h.loop.handleConn(ctx, c)
	r := c.reply(t)
	assert.True(t, r.OK)
	require.NotNil(t, r.Status)
	assert.Equal(t, "Work", r.Status.Active)
	assert.Equal(t, []string{profile.DefaultName, "Work"}, r.Status.Profiles)

	c = newConn(singleinstance.Request{Command: singleinstance.CmdAdd, Name: "Work"})
	h.loop.handleConn(ctx, c)
	r = c.reply(t)
	assert.False(t, r.OK)
	assert.Contains(t, r.Error, profile.ErrDuplicateName.Error())

	style := profile.DefaultStyle()
	style.Size = 500
	c = newConn(singleinstance.Request{Command: singleinstance.CmdStyle, Style: &style})
	h.loop.handleConn(ctx, c)
	r = c.reply(t)
	assert.True(t, r.OK)
	assert.Equal(t, profile.MaxFontSize, r.Status.Style.Size)

	c = newConn(singleinstance.Request{Command: singleinstance.CmdStyle})
	h.loop.handleConn(ctx, c)
	assert.False(t, c.reply(t).OK)

	c = newConn(singleinstance.Request{Command: "launch"})
	h.loop.handleConn(ctx, c)
	assert.Contains(t, c.reply(t).Error, "unknown command")
}

func TestRemoteCaptureRejectsMutations(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	c := newConn(singleinstance.Request{Command: singleinstance.CmdStartCapture})
	h.loop.handleConn(ctx, c)
	r := c.reply(t)
	assert.True(t, r.OK)
	assert.True(t, r.Status.Capturing)

	c = newConn(singleinstance.Request{Command: singleinstance.CmdClear})
	h.loop.handleConn(ctx, c)
	assert.Equal(t, session.ErrCapturing.Error(), c.reply(t).Error)

	c = newConn(singleinstance.Request{Command: singleinstance.CmdCancelCapture})
	h.loop.handleConn(ctx, c)
	r = c.reply(t)
	assert.True(t, r.OK)
	assert.False(t, r.Status.Capturing)
}

func TestRemoteExportRepliesWithPath(t *testing.T) {
	h := newHarness(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()

	c := newConn(singleinstance.Request{Command: singleinstance.CmdExportPDF})
	h.server.conns <- c
	r := c.reply(t)
	require.True(t, r.OK, r.Error)
	_, err := os.Stat(r.Path)
	assert.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestTrayQuitStopsLoop(t *testing.T) {
	quit := false
	h := newHarness(t, Options{OnQuit: func() { quit = true }})
	h.loop.Post(messages.TrayMenuClicked{Action: messages.TrayQuit})
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.True(t, quit)
}
