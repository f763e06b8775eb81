package hotkey

import (
	"testing"

	gohook "github.com/robotn/gohook"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/messages"
)

func newTestListener(t *testing.T) *Listener {
	t.Helper()
	l, err := NewListener([]Binding{
		{Combo: "Ctrl+Alt+N", Action: messages.ActionCapture},
		{Combo: "Ctrl+Alt+H", Action: messages.ActionToggle},
		{Combo: "", Action: "ignored"},
	}, func(messages.Message) {})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	return l
}

func TestNewListenerRejectsUnknownKey(t *testing.T) {
	if _, err := NewListener([]Binding{{Combo: "Ctrl+Bogus"}}, nil); err == nil {
		t.Fatal("Expected error for unknown key")
	}
}

func TestComboFiresOnce(t *testing.T) {
	l := newTestListener(t)
	var got []messages.Message
	for _, code := range []uint16{162, 164, 78} {
		got = append(got, l.translate(gohook.Event{Kind: gohook.KeyDown, Rawcode: code})...)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 message, got %d: %v", len(got), got)
	}
	hk, ok := got[0].(messages.HotkeyPressed)
	if !ok || hk.Action != messages.ActionCapture {
		t.Errorf("Expected capture hotkey, got %#v", got[0])
	}

	// States reset after firing; N alone does nothing.
	if out := l.translate(gohook.Event{Kind: gohook.KeyDown, Rawcode: 78}); len(out) != 0 {
		t.Errorf("Expected no message, got %v", out)
	}
}

func TestReleasedModifierBreaksCombo(t *testing.T) {
	l := newTestListener(t)
	l.translate(gohook.Event{Kind: gohook.KeyDown, Rawcode: 163})
	l.translate(gohook.Event{Kind: gohook.KeyUp, Rawcode: 163})
	l.translate(gohook.Event{Kind: gohook.KeyDown, Rawcode: 165})
	if out := l.translate(gohook.Event{Kind: gohook.KeyDown, Rawcode: 72}); len(out) != 0 {
		t.Errorf("Expected no hotkey after ctrl release, got %v", out)
	}
}

func TestPointerEventsOnlyWhileCapturing(t *testing.T) {
	l := newTestListener(t)
	events := []gohook.Event{
		{Kind: gohook.MouseMove, X: 10, Y: 20},
		{Kind: gohook.MouseHold, Button: leftButton, X: 10, Y: 20},
		{Kind: gohook.MouseWheel, Rotation: -1},
		{Kind: gohook.KeyDown, Rawcode: 27},
	}
	for _, ev := range events {
		if out := l.translate(ev); len(out) != 0 {
			t.Errorf("Expected no message outside capture for %+v, got %v", ev, out)
		}
	}

	l.SetCapturing(true)
	want := []messages.Message{
		messages.PointerMoved{Global: canvas.Pt(10, 20)},
		messages.PrimaryClick{Global: canvas.Pt(10, 20)},
		messages.Scroll{Delta: 1},
		messages.CancelKey{},
	}
	for i, ev := range events {
		out := l.translate(ev)
		if len(out) != 1 || out[0] != want[i] {
			t.Errorf("translate(%+v) = %v, want %v", ev, out, want[i])
		}
	}
}

func TestRightClickAndWheelDown(t *testing.T) {
	l := newTestListener(t)
	l.SetCapturing(true)

	out := l.translate(gohook.Event{Kind: gohook.MouseHold, Button: rightButton, X: -100, Y: 5})
	if len(out) != 1 || out[0] != (messages.SecondaryClick{}) {
		t.Errorf("Expected SecondaryClick, got %v", out)
	}
	out = l.translate(gohook.Event{Kind: gohook.MouseWheel, Rotation: 3})
	if len(out) != 1 || out[0] != (messages.Scroll{Delta: -1}) {
		t.Errorf("Expected Scroll{-1}, got %v", out)
	}
	out = l.translate(gohook.Event{Kind: gohook.MouseDrag, X: -100, Y: 5})
	if len(out) != 1 || out[0] != (messages.PointerMoved{Global: canvas.Pt(-100, 5)}) {
		t.Errorf("Expected PointerMoved, got %v", out)
	}
}
