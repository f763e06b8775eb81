package messages

import (
	"screen-label-overlay/src/canvas"
)

// Message is the base interface for everything posted into the event loop.
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeHotkeyPressed   = "HotkeyPressed"
	TypePointerMoved    = "PointerMoved"
	TypePrimaryClick    = "PrimaryClick"
	TypeSecondaryClick  = "SecondaryClick"
	TypeScroll          = "Scroll"
	TypeCancelKey       = "CancelKey"
	TypeTrayMenuClicked = "TrayMenuClicked"
	TypeProfilesChanged = "ProfilesChanged"
	TypeDisplaysPoll    = "DisplaysPoll"
	TypeDieNow          = "DIENOW"
)

// Hotkey actions.
const (
	ActionCapture = "capture"
	ActionToggle  = "toggle"
)

// HotkeyPressed is sent by the hotkey listener when a bound combination fires.
type HotkeyPressed struct {
	Combo  string // e.g., "Ctrl+Alt+N"
	Action string // ActionCapture or ActionToggle
}

func (m HotkeyPressed) Type() string { return TypeHotkeyPressed }

// PointerMoved carries a pointer position in shared canvas coordinates. The
// loop resolves the owning display.
type PointerMoved struct {
	Global canvas.Point
}

func (m PointerMoved) Type() string { return TypePointerMoved }

// PrimaryClick is a left click in shared canvas coordinates.
type PrimaryClick struct {
	Global canvas.Point
}

func (m PrimaryClick) Type() string { return TypePrimaryClick }

// SecondaryClick is a right click; it undoes the last point.
type SecondaryClick struct{}

func (m SecondaryClick) Type() string { return TypeSecondaryClick }

// Scroll is one wheel event. Positive Delta grows the labels.
type Scroll struct {
	Delta int
}

func (m Scroll) Type() string { return TypeScroll }

// CancelKey is sent when Esc is pressed.
type CancelKey struct{}

func (m CancelKey) Type() string { return TypeCancelKey }

// Tray actions.
const (
	TrayToggle        = "toggle"
	TrayCapture       = "capture"
	TrayClear         = "clear"
	TrayCopy          = "copy"
	TraySwitchProfile = "switch"
	TrayShowOnStartup = "show-on-startup"
	TraySnapshot      = "snapshot"
	TrayExportPDF     = "export-pdf"
	TrayQuit          = "quit"
)

// TrayMenuClicked is sent by the tray when the user picks a menu item.
type TrayMenuClicked struct {
	Action  string
	Profile string // set for TraySwitchProfile
	Checked bool   // set for TrayShowOnStartup
}

func (m TrayMenuClicked) Type() string { return TypeTrayMenuClicked }

// ProfilesChanged is sent by the file watcher after the profile file was
// edited on disk.
type ProfilesChanged struct{}

func (m ProfilesChanged) Type() string { return TypeProfilesChanged }

// DisplaysPoll asks the loop to re-read the display topology.
type DisplaysPoll struct{}

func (m DisplaysPoll) Type() string { return TypeDisplaysPoll }

// DIENOW - emergency shutdown
type DIENOW struct{}

func (m DIENOW) Type() string { return TypeDieNow }
