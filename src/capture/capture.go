// Package capture implements the modal point-recording session used to
// place labels on the virtual canvas.
package capture

import (
	"log"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/numbering"
)

// State of a capture session.
type State int

const (
	Idle State = iota
	Recording
	Committed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// OutcomeKind tells the controller what an event produced.
type OutcomeKind int

const (
	// None means the event was absorbed by the session.
	None OutcomeKind = iota
	Commit
	Cancel
)

// Outcome is emitted when a session reaches a terminal state. Points is only
// set for Commit and is owned by the receiver.
type Outcome struct {
	Kind   OutcomeKind
	Points []canvas.Point
}

// Translator maps display-local points into the shared canvas space.
type Translator interface {
	ToGlobal(displayID int, p canvas.Point) canvas.Point
}

// FontSizer adjusts the size of the style being previewed.
type FontSizer interface {
	AdjustFontSize(delta int) (int, bool)
}

// Session records clicks until the quota is reached or the user cancels.
// It is not safe for concurrent use; the event loop owns it.
type Session struct {
	tr    Translator
	sizer FontSizer

	state      State
	quota      int
	recorded   []canvas.Point
	preview    canvas.Point
	hasPreview bool
}

func New(tr Translator) *Session {
	return &Session{tr: tr, quota: numbering.MaxPoints}
}

// Start enters Recording with an empty list. sizer receives wheel events;
// it may be nil.
func (s *Session) Start(sizer FontSizer) {
	s.state = Recording
	s.quota = numbering.MaxPoints
	s.recorded = s.recorded[:0]
	s.hasPreview = false
	s.sizer = sizer
	log.Printf("capture: started, quota %d", s.quota)
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Recording reports whether the session is accepting input.
func (s *Session) Recording() bool { return s.state == Recording }

// Quota returns the number of points a session collects before committing.
func (s *Session) Quota() int { return s.quota }

// Recorded returns a copy of the points collected so far.
func (s *Session) Recorded() []canvas.Point {
	return append([]canvas.Point(nil), s.recorded...)
}

// PointerMove updates the live preview position.
func (s *Session) PointerMove(displayID int, local canvas.Point) {
	if s.state != Recording {
		return
	}
	s.preview = s.tr.ToGlobal(displayID, local)
	s.hasPreview = true
}

// PrimaryClick appends the clicked point. Reaching the quota commits.
func (s *Session) PrimaryClick(displayID int, local canvas.Point) Outcome {
	if s.state != Recording || len(s.recorded) >= s.quota {
		return Outcome{}
	}
	p := s.tr.ToGlobal(displayID, local)
	s.recorded = append(s.recorded, p)
	s.preview = p
	s.hasPreview = true

	index := len(s.recorded)
	label, _ := numbering.Label(index)
	log.Printf("capture: point %d (label %s) at %s", index, label, p)

	if index < s.quota {
		return Outcome{}
	}
	s.state = Committed
	log.Printf("capture: quota reached, committing %d points", index)
	return Outcome{Kind: Commit, Points: s.Recorded()}
}

// SecondaryClick removes the most recent point. It reports whether anything
// was undone.
func (s *Session) SecondaryClick() bool {
	if s.state != Recording || len(s.recorded) == 0 {
		return false
	}
	last := s.recorded[len(s.recorded)-1]
	s.recorded = s.recorded[:len(s.recorded)-1]
	log.Printf("capture: undo point %d at %s", len(s.recorded)+1, last)
	return true
}

// Scroll changes the font size by one step per wheel event in the direction
// of delta. It returns the resulting size and whether it changed.
func (s *Session) Scroll(delta int) (int, bool) {
	if s.state != Recording || s.sizer == nil || delta == 0 {
		return 0, false
	}
	step := 1
	if delta < 0 {
		step = -1
	}
	size, changed := s.sizer.AdjustFontSize(step)
	if changed {
		log.Printf("capture: font size %d", size)
	}
	return size, changed
}

// Cancel discards the recorded points.
func (s *Session) Cancel() Outcome {
	if s.state != Recording {
		return Outcome{}
	}
	s.state = Cancelled
	n := len(s.recorded)
	s.recorded = s.recorded[:0]
	s.hasPreview = false
	log.Printf("capture: cancelled, %d point(s) discarded", n)
	return Outcome{Kind: Cancel}
}

// Reset returns a terminal session to Idle.
func (s *Session) Reset() {
	s.state = Idle
	s.recorded = s.recorded[:0]
	s.hasPreview = false
	s.sizer = nil
}

// Preview returns the hint position and the index of the label the next
// click would place. ok is false outside Recording, before the pointer has
// moved, or once the quota is full.
func (s *Session) Preview() (p canvas.Point, index int, ok bool) {
	if s.state != Recording || !s.hasPreview || len(s.recorded) >= s.quota {
		return canvas.Point{}, 0, false
	}
	return s.preview, len(s.recorded) + 1, true
}
