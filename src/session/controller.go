// Package session owns the profile document and mediates between display
// mode and capture mode.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/capture"
	"screen-label-overlay/src/numbering"
	"screen-label-overlay/src/overlay"
	"screen-label-overlay/src/profile"
)

var (
	ErrCapturing     = errors.New("capture in progress")
	ErrNoCoordinates = errors.New("active profile has no coordinates")
)

// Surface is a layer the controller shows and hides.
type Surface interface {
	Show() error
	Hide() error
	Visible() bool
	Invalidate() error
}

// SurfaceFactory creates a named surface painted by paint.
type SurfaceFactory func(name string, paint overlay.PaintFunc) Surface

// Notifier surfaces user-visible failures.
type Notifier interface {
	Notify(title, message string)
}

const (
	DisplayLayer = "display"
	CaptureLayer = "capture"
)

type Options struct {
	Store      profile.Store
	Canvas     *canvas.Canvas
	Renderer   *overlay.Renderer
	NewSurface SurfaceFactory
	Notifier   Notifier
}

// State is a snapshot published to subscribers after every change.
type State struct {
	Active         string
	Profiles       []string
	Points         int
	Coordinates    []canvas.Point
	Style          profile.Style
	Capturing      bool
	Recorded       int
	OverlayVisible bool
	ShowOnStartup  bool
}

// Controller is driven exclusively by the event loop goroutine.
type Controller struct {
	store    profile.Store
	canvas   *canvas.Canvas
	renderer *overlay.Renderer
	notifier Notifier

	doc          *profile.Document
	capture      *capture.Session
	displayLayer Surface
	captureLayer Surface

	restoreVisible bool
	subscribers    []func(State)
}

// New loads the document and builds both layers. A corrupt document is
// reported and replaced by the default one; it is not an error.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("Store is required")
	}
	if opts.Canvas == nil {
		return nil, errors.New("Canvas is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("Renderer is required")
	}
	if opts.NewSurface == nil {
		return nil, errors.New("NewSurface is required")
	}
	c := &Controller{
		store:    opts.Store,
		canvas:   opts.Canvas,
		renderer: opts.Renderer,
		notifier: opts.Notifier,
		capture:  capture.New(opts.Canvas),
	}
	doc, err := c.store.Load()
	switch {
	case err == nil:
	case errors.Is(err, profile.ErrConfigCorrupt):
		log.Printf("session: load profiles: %v", err)
		c.notify("Profiles", fmt.Sprintf("Could not read saved profiles, using defaults: %v", err))
	default:
		log.Printf("session: profiles loaded but not saved: %v", err)
		c.notify("Profiles", fmt.Sprintf("Profiles loaded, but saving them failed: %v", err))
	}
	c.doc = doc
	c.displayLayer = opts.NewSurface(DisplayLayer, c.paintDisplay)
	c.captureLayer = opts.NewSurface(CaptureLayer, c.paintCapture)
	return c, nil
}

// Start applies the startup visibility preference.
func (c *Controller) Start() error {
	defer c.publish()
	if c.doc.ShowOverlayOnStartup && len(c.active().Coordinates) > 0 {
		return c.displayLayer.Show()
	}
	return nil
}

func (c *Controller) active() *profile.Profile { return c.doc.Profiles.Active() }

func (c *Controller) notify(title, message string) {
	if c.notifier != nil {
		c.notifier.Notify(title, message)
	}
}

func (c *Controller) paintDisplay(t overlay.Target) error {
	p := c.active()
	return c.renderer.Render(t, p.Coordinates, p.Style, nil)
}

func (c *Controller) paintCapture(t overlay.Target) error {
	recorded := c.capture.Recorded()
	if err := c.renderer.RenderBanner(t, len(recorded)+1, c.capture.Quota()); err != nil {
		return err
	}
	var preview *overlay.Preview
	if p, idx, ok := c.capture.Preview(); ok {
		preview = &overlay.Preview{Point: p, Index: idx}
	}
	return c.renderer.Render(t, recorded, c.active().Style, preview)
}

// Subscribe registers fn to receive a State after every change.
func (c *Controller) Subscribe(fn func(State)) {
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) publish() {
	if len(c.subscribers) == 0 {
		return
	}
	s := c.State()
	for _, fn := range c.subscribers {
		fn(s)
	}
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	p := c.active()
	return State{
		Active:         p.Name,
		Profiles:       c.doc.Profiles.Names(),
		Points:         len(p.Coordinates),
		Coordinates:    append([]canvas.Point(nil), p.Coordinates...),
		Style:          p.Style,
		Capturing:      c.Capturing(),
		Recorded:       len(c.capture.Recorded()),
		OverlayVisible: c.displayLayer.Visible(),
		ShowOnStartup:  c.doc.ShowOverlayOnStartup,
	}
}

// ActiveProfile returns a copy of the active profile.
func (c *Controller) ActiveProfile() profile.Profile { return c.active().Clone() }

// Profiles returns profile names in order.
func (c *Controller) Profiles() []string { return c.doc.Profiles.Names() }

// Document returns a copy of the whole document.
func (c *Controller) Document() *profile.Document { return c.doc.Clone() }

// Capturing reports whether a capture session is open.
func (c *Controller) Capturing() bool { return c.capture.Recording() }

// OverlayVisible reports whether the display layer is shown.
func (c *Controller) OverlayVisible() bool { return c.displayLayer.Visible() }

// CaptureVisible reports whether the capture layer is shown.
func (c *Controller) CaptureVisible() bool { return c.captureLayer.Visible() }

// save persists the document. Failures are logged and notified; the in-memory
// document stays authoritative and the next save writes it in full.
func (c *Controller) save() error {
	if err := c.store.Save(c.doc); err != nil {
		log.Printf("session: %v", err)
		c.notify("Profiles", fmt.Sprintf("Could not save profiles: %v", err))
		return err
	}
	return nil
}

// refreshDisplay repaints the display layer for the active profile, hiding
// it when there is nothing to draw.
func (c *Controller) refreshDisplay() error {
	if !c.displayLayer.Visible() {
		return nil
	}
	if len(c.active().Coordinates) == 0 {
		return c.displayLayer.Hide()
	}
	return c.displayLayer.Invalidate()
}

// StartCapture hides the display layer and opens a capture session.
func (c *Controller) StartCapture() error {
	if c.Capturing() {
		return ErrCapturing
	}
	defer c.publish()
	c.restoreVisible = c.displayLayer.Visible()
	if err := c.displayLayer.Hide(); err != nil {
		log.Printf("session: hide display layer: %v", err)
	}
	c.capture.Start(c.active())
	log.Printf("session: capture started for profile %q", c.active().Name)
	return c.captureLayer.Show()
}

// CancelCapture discards the session. The profile is left untouched and the
// display layer returns to its previous visibility.
func (c *Controller) CancelCapture() error {
	if !c.Capturing() {
		return nil
	}
	return c.finish(c.capture.Cancel())
}

// PointerMove updates the capture preview.
func (c *Controller) PointerMove(displayID int, local canvas.Point) {
	if !c.Capturing() {
		return
	}
	c.capture.PointerMove(displayID, local)
	c.invalidateCapture()
}

// PrimaryClick records a point; the last allowed point commits the capture.
func (c *Controller) PrimaryClick(displayID int, local canvas.Point) error {
	if !c.Capturing() {
		return nil
	}
	out := c.capture.PrimaryClick(displayID, local)
	if out.Kind != capture.None {
		return c.finish(out)
	}
	c.invalidateCapture()
	c.publish()
	return nil
}

// SecondaryClick undoes the last recorded point.
func (c *Controller) SecondaryClick() {
	if c.capture.SecondaryClick() {
		c.invalidateCapture()
		c.publish()
	}
}

// Scroll resizes the active style while capturing.
func (c *Controller) Scroll(delta int) {
	if _, changed := c.capture.Scroll(delta); changed {
		c.invalidateCapture()
		c.publish()
	}
}

func (c *Controller) invalidateCapture() {
	if err := c.captureLayer.Invalidate(); err != nil {
		log.Printf("session: repaint capture layer: %v", err)
	}
}

func (c *Controller) finish(out capture.Outcome) error {
	defer c.publish()
	defer c.capture.Reset()

	if err := c.captureLayer.Hide(); err != nil {
		log.Printf("session: hide capture layer: %v", err)
	}
	switch out.Kind {
	case capture.Commit:
		p := c.active()
		p.SetCoordinates(out.Points)
		log.Printf("session: profile %q now has %d point(s)", p.Name, len(p.Coordinates))
		err := c.save()
		if c.doc.ShowOverlayOnStartup && len(p.Coordinates) > 0 {
			if showErr := c.displayLayer.Show(); showErr != nil {
				return errors.Join(err, showErr)
			}
		}
		return err
	case capture.Cancel:
		log.Printf("session: capture cancelled")
		if c.restoreVisible && len(c.active().Coordinates) > 0 {
			return c.displayLayer.Show()
		}
	}
	return nil
}

// ToggleOverlayVisibility flips the display layer and returns the new
// visibility.
func (c *Controller) ToggleOverlayVisibility() (bool, error) {
	if c.Capturing() {
		return false, ErrCapturing
	}
	if c.displayLayer.Visible() {
		defer c.publish()
		return false, c.displayLayer.Hide()
	}
	if len(c.active().Coordinates) == 0 {
		return false, ErrNoCoordinates
	}
	defer c.publish()
	if err := c.displayLayer.Show(); err != nil {
		return c.displayLayer.Visible(), err
	}
	return true, nil
}

// SwitchProfile activates name. Unknown or already active names are ignored
// and reported as false.
func (c *Controller) SwitchProfile(name string) (bool, error) {
	if c.Capturing() {
		return false, ErrCapturing
	}
	if name == c.doc.Profiles.ActiveName() || !c.doc.Profiles.SetActive(name) {
		return false, nil
	}
	defer c.publish()
	log.Printf("session: active profile %q", name)
	if err := c.displayLayer.Hide(); err != nil {
		log.Printf("session: hide display layer: %v", err)
	}
	err := c.save()
	if c.doc.ShowOverlayOnStartup && len(c.active().Coordinates) > 0 {
		if showErr := c.displayLayer.Show(); showErr != nil {
			return true, errors.Join(err, showErr)
		}
	}
	return true, err
}

// AddProfile creates and activates an empty profile.
func (c *Controller) AddProfile(name string) error {
	if c.Capturing() {
		return ErrCapturing
	}
	if err := c.doc.Profiles.Add(name); err != nil {
		return err
	}
	defer c.publish()
	log.Printf("session: added profile %q", c.doc.Profiles.ActiveName())
	if err := c.refreshDisplay(); err != nil {
		log.Printf("session: refresh display layer: %v", err)
	}
	return c.save()
}

// RenameProfile renames a profile keeping its content.
func (c *Controller) RenameProfile(oldName, newName string) error {
	if c.Capturing() {
		return ErrCapturing
	}
	newName = strings.TrimSpace(newName)
	if oldName == newName {
		if _, ok := c.doc.Profiles.Get(oldName); ok {
			return nil
		}
	}
	if err := c.doc.Profiles.Rename(oldName, newName); err != nil {
		return err
	}
	defer c.publish()
	log.Printf("session: renamed profile %q to %q", oldName, newName)
	return c.save()
}

// RemoveProfile deletes a profile. Removing the active one activates the
// first remaining profile and hides the display layer.
func (c *Controller) RemoveProfile(name string) error {
	if c.Capturing() {
		return ErrCapturing
	}
	wasActive := name == c.doc.Profiles.ActiveName()
	if err := c.doc.Profiles.Remove(name); err != nil {
		return err
	}
	defer c.publish()
	log.Printf("session: removed profile %q, active %q", name, c.doc.Profiles.ActiveName())
	if wasActive {
		if err := c.displayLayer.Hide(); err != nil {
			log.Printf("session: hide display layer: %v", err)
		}
	}
	return c.save()
}

// UpdateStyle replaces the active profile's style after clamping it.
func (c *Controller) UpdateStyle(style profile.Style) error {
	if c.Capturing() {
		return ErrCapturing
	}
	defer c.publish()
	c.active().Style = style.Clamp()
	if err := c.refreshDisplay(); err != nil {
		log.Printf("session: refresh display layer: %v", err)
	}
	return c.save()
}

// ClearCoordinates empties the active profile and hides the display layer.
func (c *Controller) ClearCoordinates() error {
	if c.Capturing() {
		return ErrCapturing
	}
	defer c.publish()
	c.active().SetCoordinates(nil)
	log.Printf("session: cleared coordinates of %q", c.active().Name)
	if err := c.displayLayer.Hide(); err != nil {
		log.Printf("session: hide display layer: %v", err)
	}
	return c.save()
}

// SetShowOnStartup stores the startup visibility preference.
func (c *Controller) SetShowOnStartup(show bool) error {
	if c.doc.ShowOverlayOnStartup == show {
		return nil
	}
	defer c.publish()
	c.doc.ShowOverlayOnStartup = show
	return c.save()
}

// SetWindowGeometry stores the opaque window geometry blob.
func (c *Controller) SetWindowGeometry(raw json.RawMessage) error {
	if !json.Valid(raw) {
		return errors.New("window geometry is not valid JSON")
	}
	c.doc.MainWindowGeometry = append(json.RawMessage(nil), raw...)
	return c.save()
}

// Reload replaces the document with the persisted one, typically after the
// file was edited by another program. A corrupt file is reported and the
// current document kept.
func (c *Controller) Reload() error {
	if c.Capturing() {
		return ErrCapturing
	}
	doc, err := c.store.Load()
	if err != nil {
		log.Printf("session: reload ignored: %v", err)
		c.notify("Profiles", fmt.Sprintf("Ignoring edited profiles file: %v", err))
		return err
	}
	defer c.publish()
	c.doc = doc
	log.Printf("session: reloaded %d profile(s), active %q", doc.Profiles.Len(), doc.Profiles.ActiveName())
	return c.refreshDisplay()
}

// DisplaysChanged re-reads the display topology and repaints the visible
// layer when it changed. On failure the last known canvas is kept.
func (c *Controller) DisplaysChanged(src canvas.Source) (bool, error) {
	displays, err := src.Displays()
	if err != nil {
		log.Printf("session: display query failed, keeping last layout: %v", err)
		return false, err
	}
	if len(displays) == 0 {
		log.Printf("session: no displays reported, keeping last layout")
		return false, canvas.ErrNoDisplays
	}
	if !c.canvas.Changed(displays) {
		return false, nil
	}
	if err := c.canvas.Refresh(canvas.SourceFunc(func() ([]canvas.Display, error) { return displays, nil })); err != nil {
		return false, err
	}
	var errs []error
	if c.Capturing() {
		errs = append(errs, c.captureLayer.Invalidate())
	} else {
		errs = append(errs, c.displayLayer.Invalidate())
	}
	return true, errors.Join(errs...)
}

// CoordinatesText formats the active profile's points one per line as
// "label: x, y".
func (c *Controller) CoordinatesText() string {
	var b strings.Builder
	for i, p := range c.active().Coordinates {
		label, _ := numbering.Label(i + 1)
		fmt.Fprintf(&b, "%s: %d, %d\n", label, p.X, p.Y)
	}
	return b.String()
}
