// Package tray puts the overlay's menu in the system tray. Menu clicks are
// posted to the event loop; state flows back through Update.
package tray

import (
	"fmt"
	"log"
	"sync"

	"github.com/getlantern/systray"

	"screen-label-overlay/src/messages"
	"screen-label-overlay/src/session"
)

// MaxProfileSlots bounds the profiles submenu; systray items cannot be
// removed, so a fixed set of slots is shown or hidden.
const MaxProfileSlots = 16

type Config struct {
	Title   string
	Tooltip string
	Icon    []byte
	Post    func(messages.Message)
	OnExit  func()
}

type Tray struct {
	cfg Config

	mu    sync.Mutex
	ready bool
	last  *session.State
	items menuItems
	slots [MaxProfileSlots]*systray.MenuItem
	names [MaxProfileSlots]string
	extra string
}

type menuItems struct {
	toggle, capture, clear, copy  *systray.MenuItem
	snapshot, exportPDF, profiles *systray.MenuItem
	showOnStartup, quit           *systray.MenuItem
}

func New(cfg Config) *Tray {
	return &Tray{cfg: cfg}
}

// Run blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// SetAboutExtra adds a line to the tooltip, e.g. the resident port.
func (t *Tray) SetAboutExtra(extra string) {
	t.mu.Lock()
	t.extra = extra
	t.mu.Unlock()
	t.refresh()
}

func (t *Tray) onReady() {
	if len(t.cfg.Icon) > 0 {
		systray.SetIcon(t.cfg.Icon)
	}
	systray.SetTitle(t.cfg.Title)
	systray.SetTooltip(t.cfg.Tooltip)

	t.mu.Lock()
	t.items = menuItems{
		toggle:  systray.AddMenuItem("Show overlay", "Show or hide the numbered labels"),
		capture: systray.AddMenuItem("Configure coordinates...", "Click up to 24 points on any display"),
		clear:   systray.AddMenuItem("Clear coordinates", "Remove all points of the active profile"),
		copy:    systray.AddMenuItem("Copy coordinates", "Copy the point list to the clipboard"),
	}
	systray.AddSeparator()
	t.items.profiles = systray.AddMenuItem("Profiles", "Switch the active profile")
	for i := range t.slots {
		t.slots[i] = t.items.profiles.AddSubMenuItemCheckbox("", "Switch to this profile", false)
		t.slots[i].Hide()
	}
	t.items.showOnStartup = systray.AddMenuItemCheckbox("Show overlay on startup", "Show labels when the application starts", true)
	systray.AddSeparator()
	t.items.snapshot = systray.AddMenuItem("Save snapshot", "Write a PNG of the labels over the desktop")
	t.items.exportPDF = systray.AddMenuItem("Export layout sheet", "Write a PDF of the label layout")
	systray.AddSeparator()
	t.items.quit = systray.AddMenuItem("Quit", "Quit the application")
	t.ready = true
	t.mu.Unlock()

	t.refresh()
	go t.listen()
	for i := range t.slots {
		go t.listenSlot(i)
	}
}

func (t *Tray) onExit() {
	if t.cfg.OnExit != nil {
		t.cfg.OnExit()
	}
}

func (t *Tray) post(m messages.Message) {
	if t.cfg.Post != nil {
		t.cfg.Post(m)
	}
}

func (t *Tray) listen() {
	it := t.items
	for {
		select {
		case <-it.toggle.ClickedCh:
			t.post(messages.TrayMenuClicked{Action: messages.TrayToggle})
		case <-it.capture.ClickedCh:
			t.post(messages.TrayMenuClicked{Action: messages.TrayCapture})
		case <-it.clear.ClickedCh:
			t.post(messages.TrayMenuClicked{Action: messages.TrayClear})
		case <-it.copy.ClickedCh:
			t.post(messages.TrayMenuClicked{Action: messages.TrayCopy})
		case <-it.snapshot.ClickedCh:
			t.post(messages.TrayMenuClicked{Action: messages.TraySnapshot})
		case <-it.exportPDF.ClickedCh:
			t.post(messages.TrayMenuClicked{Action: messages.TrayExportPDF})
		case <-it.showOnStartup.ClickedCh:
			// The checkbox state is owned by the loop; request the flip.
			t.post(messages.TrayMenuClicked{Action: messages.TrayShowOnStartup, Checked: !it.showOnStartup.Checked()})
		case <-it.quit.ClickedCh:
			t.post(messages.TrayMenuClicked{Action: messages.TrayQuit})
			return
		}
	}
}

func (t *Tray) listenSlot(i int) {
	for range t.slots[i].ClickedCh {
		t.mu.Lock()
		name := t.names[i]
		t.mu.Unlock()
		if name != "" {
			t.post(messages.TrayMenuClicked{Action: messages.TraySwitchProfile, Profile: name})
		}
	}
}

// Update reflects s in the menu. It may be called from any goroutine and
// before the tray is ready.
func (t *Tray) Update(s session.State) {
	t.mu.Lock()
	t.last = &s
	t.mu.Unlock()
	t.refresh()
}

func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready || t.last == nil {
		return
	}
	m := buildMenu(*t.last, MaxProfileSlots)
	it := t.items

	it.toggle.SetTitle(m.toggleTitle)
	setEnabled(it.toggle, m.toggleEnabled)
	setEnabled(it.capture, m.captureEnabled)
	setEnabled(it.clear, m.clearEnabled)
	setEnabled(it.copy, m.copyEnabled)
	setEnabled(it.snapshot, m.exportEnabled)
	setEnabled(it.exportPDF, m.exportEnabled)
	setEnabled(it.profiles, !t.last.Capturing)
	if m.showOnStartup {
		it.showOnStartup.Check()
	} else {
		it.showOnStartup.Uncheck()
	}

	for i, slot := range t.slots {
		if i >= len(m.slots) {
			t.names[i] = ""
			slot.Hide()
			continue
		}
		t.names[i] = m.slots[i].name
		slot.SetTitle(m.slots[i].name)
		if m.slots[i].active {
			slot.Check()
		} else {
			slot.Uncheck()
		}
		slot.Show()
	}

	tooltip := m.tooltip(t.cfg.Tooltip)
	if t.extra != "" {
		tooltip += "\n" + t.extra
	}
	systray.SetTooltip(tooltip)
}

func setEnabled(item *systray.MenuItem, on bool) {
	if on {
		item.Enable()
	} else {
		item.Disable()
	}
}

type slotModel struct {
	name   string
	active bool
}

type menuModel struct {
	toggleTitle    string
	toggleEnabled  bool
	captureEnabled bool
	clearEnabled   bool
	copyEnabled    bool
	exportEnabled  bool
	showOnStartup  bool
	slots          []slotModel
	status         string
}

func buildMenu(s session.State, maxSlots int) menuModel {
	idle := !s.Capturing
	m := menuModel{
		toggleTitle:    "Show overlay",
		toggleEnabled:  idle && s.Points > 0,
		captureEnabled: idle,
		clearEnabled:   idle && s.Points > 0,
		copyEnabled:    s.Points > 0,
		exportEnabled:  idle,
		showOnStartup:  s.ShowOnStartup,
	}
	if s.OverlayVisible {
		m.toggleTitle = "Hide overlay"
	}
	for i, name := range s.Profiles {
		if i >= maxSlots {
			log.Printf("tray: %d profiles, showing the first %d", len(s.Profiles), maxSlots)
			break
		}
		m.slots = append(m.slots, slotModel{name: name, active: name == s.Active})
	}
	switch {
	case s.Capturing:
		m.status = fmt.Sprintf("%s: capturing point %d", s.Active, s.Recorded+1)
	default:
		m.status = fmt.Sprintf("%s: %d point(s)", s.Active, s.Points)
	}
	return m
}

func (m menuModel) tooltip(base string) string {
	if base == "" {
		return m.status
	}
	return base + "\n" + m.status
}
