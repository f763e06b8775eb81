package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	gohook "github.com/robotn/gohook"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/messages"
)

const (
	leftButton  = 1
	rightButton = 2
)

// Binding ties a key combination such as "Ctrl+Alt+N" to a loop action.
type Binding struct {
	Combo  string
	Action string
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

type combo struct {
	binding Binding
	keys    []keyState
}

// Listener turns global hook events into loop messages. Hotkeys are always
// active; pointer, wheel and Esc events are only forwarded while capturing.
type Listener struct {
	mu        sync.Mutex
	combos    []*combo
	capturing atomic.Bool
	post      func(messages.Message)
	escape    []uint16
}

// NewListener validates bindings. Bindings with an empty combo are skipped.
func NewListener(bindings []Binding, post func(messages.Message)) (*Listener, error) {
	l := &Listener{post: post, escape: keyNameToRawcodes("esc")}
	for _, b := range bindings {
		if strings.TrimSpace(b.Combo) == "" {
			continue
		}
		c := &combo{binding: b}
		for _, name := range parseHotkey(b.Combo) {
			rawcodes := keyNameToRawcodes(name)
			if len(rawcodes) == 0 {
				return nil, fmt.Errorf("hotkey %q: cannot map key %q", b.Combo, name)
			}
			c.keys = append(c.keys, keyState{name: name, rawcodes: rawcodes})
		}
		if len(c.keys) == 0 {
			return nil, fmt.Errorf("hotkey %q: no keys", b.Combo)
		}
		log.Printf("hotkey: %s -> %s", b.Combo, b.Action)
		l.combos = append(l.combos, c)
	}
	return l, nil
}

// SetCapturing switches pointer forwarding on or off. It is called from the
// event loop.
func (l *Listener) SetCapturing(on bool) { l.capturing.Store(on) }

// Start runs the hook in a background goroutine.
func (l *Listener) Start() {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		log.Printf("hotkey: listening")
		for ev := range evChan {
			for _, m := range l.translate(ev) {
				l.post(m)
			}
		}
		log.Printf("hotkey: event channel closed")
	}()
}

// Stop ends the hook.
func (l *Listener) Stop() { gohook.End() }

func matches(rawcodes []uint16, code uint16) bool {
	for _, rc := range rawcodes {
		if rc == code {
			return true
		}
	}
	return false
}

// translate maps one hook event to zero or more loop messages.
func (l *Listener) translate(ev gohook.Event) []messages.Message {
	var out []messages.Message
	capturing := l.capturing.Load()

	switch ev.Kind {
	case gohook.KeyDown:
		out = append(out, l.keyDown(ev.Rawcode)...)
		if capturing && matches(l.escape, ev.Rawcode) {
			out = append(out, messages.CancelKey{})
		}
	case gohook.KeyUp:
		l.keyUp(ev.Rawcode)
	case gohook.MouseMove, gohook.MouseDrag:
		if capturing {
			out = append(out, messages.PointerMoved{Global: canvas.Pt(int(ev.X), int(ev.Y))})
		}
	case gohook.MouseHold:
		if !capturing {
			break
		}
		switch ev.Button {
		case leftButton:
			out = append(out, messages.PrimaryClick{Global: canvas.Pt(int(ev.X), int(ev.Y))})
		case rightButton:
			out = append(out, messages.SecondaryClick{})
		}
	case gohook.MouseWheel:
		if capturing && ev.Rotation != 0 {
			// Negative rotation is the wheel moving away from the user.
			delta := 1
			if ev.Rotation > 0 {
				delta = -1
			}
			out = append(out, messages.Scroll{Delta: delta})
		}
	}
	return out
}

func (l *Listener) keyDown(code uint16) []messages.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []messages.Message
	for _, c := range l.combos {
		for i := range c.keys {
			if matches(c.keys[i].rawcodes, code) {
				c.keys[i].pressed = true
			}
		}
		allPressed := true
		for i := range c.keys {
			if !c.keys[i].pressed {
				allPressed = false
				break
			}
		}
		if allPressed {
			log.Printf("hotkey: %s detected", c.binding.Combo)
			for i := range c.keys {
				c.keys[i].pressed = false
			}
			out = append(out, messages.HotkeyPressed{Combo: c.binding.Combo, Action: c.binding.Action})
		}
	}
	return out
}

func (l *Listener) keyUp(code uint16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.combos {
		for i := range c.keys {
			if matches(c.keys[i].rawcodes, code) {
				c.keys[i].pressed = false
			}
		}
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+n" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// namedKeys holds Windows virtual key codes for keys that are not letters,
// digits or function keys. Modifiers map to both left and right variants.
var namedKeys = map[string][]uint16{
	"ctrl":      {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":       {164, 165}, // VK_LMENU, VK_RMENU
	"shift":     {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":       {91, 92},   // VK_LWIN, VK_RWIN
	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if keyName == "win" || keyName == "super" {
		keyName = "cmd"
	}
	if codes, ok := namedKeys[keyName]; ok {
		return append([]uint16(nil), codes...)
	}
	if len(keyName) == 1 {
		switch ch := keyName[0]; {
		case ch >= 'a' && ch <= 'z':
			return []uint16{uint16('A' + ch - 'a')} // VK 0x41-0x5A
		case ch >= '0' && ch <= '9':
			return []uint16{uint16(ch)} // VK 0x30-0x39
		}
	}
	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 = 112
	}
	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
