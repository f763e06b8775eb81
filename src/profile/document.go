package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"screen-label-overlay/src/canvas"
)

// ErrConfigCorrupt marks a persisted document that could not be decoded.
var ErrConfigCorrupt = errors.New("profile document is corrupt")

// Document is the full persisted state.
type Document struct {
	Profiles *Set
	// MainWindowGeometry is owned by the window chrome and kept verbatim.
	MainWindowGeometry   json.RawMessage
	ShowOverlayOnStartup bool
}

// NewDocument returns the default document: one empty "Default" profile,
// overlay shown on startup.
func NewDocument() *Document {
	return &Document{
		Profiles:             NewSet(),
		MainWindowGeometry:   json.RawMessage("[]"),
		ShowOverlayOnStartup: true,
	}
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	return &Document{
		Profiles:             d.Profiles.Clone(),
		MainWindowGeometry:   append(json.RawMessage(nil), d.MainWindowGeometry...),
		ShowOverlayOnStartup: d.ShowOverlayOnStartup,
	}
}

type wireProfile struct {
	Style       Style    `json:"style"`
	Coordinates [][2]int `json:"coordinates"`
}

type wireDocument struct {
	Profiles             orderedProfiles `json:"profiles"`
	ActiveProfileName    string          `json:"activeProfileName"`
	MainWindowGeometry   json.RawMessage `json:"mainWindowGeometry"`
	ShowOverlayOnStartup *bool           `json:"showOverlayOnStartup"`
}

// orderedProfiles is a JSON object whose key order is preserved.
type orderedProfiles struct {
	names  []string
	byName map[string]wireProfile
}

func (o orderedProfiles) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range o.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.byName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedProfiles) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("profiles: expected object, got %v", tok)
	}
	o.names = nil
	o.byName = make(map[string]wireProfile)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("profiles: unexpected key %v", tok)
		}
		wp := wireProfile{Style: DefaultStyle()}
		if err := dec.Decode(&wp); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		if _, dup := o.byName[name]; !dup {
			o.names = append(o.names, name)
		}
		o.byName[name] = wp
	}
	_, err = dec.Token()
	return err
}

func toWirePoints(points []canvas.Point) [][2]int {
	out := make([][2]int, 0, len(points))
	for _, p := range points {
		out = append(out, [2]int{p.X, p.Y})
	}
	return out
}

func fromWirePoints(points [][2]int) []canvas.Point {
	out := make([]canvas.Point, 0, len(points))
	for _, p := range points {
		out = append(out, canvas.Pt(p[0], p[1]))
	}
	return out
}

// Encode renders doc as indented JSON.
func Encode(doc *Document) ([]byte, error) {
	w := wireDocument{
		Profiles:             orderedProfiles{byName: make(map[string]wireProfile)},
		ActiveProfileName:    doc.Profiles.ActiveName(),
		MainWindowGeometry:   doc.MainWindowGeometry,
		ShowOverlayOnStartup: &doc.ShowOverlayOnStartup,
	}
	if len(w.MainWindowGeometry) == 0 {
		w.MainWindowGeometry = json.RawMessage("[]")
	}
	for _, name := range doc.Profiles.Names() {
		p, _ := doc.Profiles.Get(name)
		w.Profiles.names = append(w.Profiles.names, name)
		w.Profiles.byName[name] = wireProfile{Style: p.Style, Coordinates: toWirePoints(p.Coordinates)}
	}
	data, err := json.MarshalIndent(w, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode parses a persisted document. Documents without a "profiles" key
// are treated as the legacy single-profile layout and migrated; migrated
// reports that case. Any decode failure wraps ErrConfigCorrupt.
func Decode(data []byte) (doc *Document, migrated bool, err error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrConfigCorrupt, err)
	}
	if top == nil {
		return nil, false, fmt.Errorf("%w: document is not an object", ErrConfigCorrupt)
	}
	if _, ok := top["profiles"]; !ok {
		doc, err := migrateLegacy(data)
		if err != nil {
			return nil, false, fmt.Errorf("%w: legacy layout: %w", ErrConfigCorrupt, err)
		}
		return doc, true, nil
	}
	if err := validateDocument(data); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrConfigCorrupt, err)
	}

	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrConfigCorrupt, err)
	}
	if len(w.Profiles.names) == 0 {
		return nil, false, fmt.Errorf("%w: no profiles", ErrConfigCorrupt)
	}

	set := &Set{profiles: make(map[string]*Profile)}
	for _, name := range w.Profiles.names {
		wp := w.Profiles.byName[name]
		p := &Profile{Name: name, Style: wp.Style}
		p.SetCoordinates(fromWirePoints(wp.Coordinates))
		set.insert(p)
	}
	set.active = w.ActiveProfileName

	doc = &Document{
		Profiles:             set,
		MainWindowGeometry:   w.MainWindowGeometry,
		ShowOverlayOnStartup: true,
	}
	if w.ShowOverlayOnStartup != nil {
		doc.ShowOverlayOnStartup = *w.ShowOverlayOnStartup
	}
	normalize(doc)
	return doc, false, nil
}

// normalize enforces the in-memory invariants on a freshly decoded document.
func normalize(doc *Document) {
	for _, name := range doc.Profiles.order {
		p := doc.Profiles.profiles[name]
		p.Style = p.Style.Clamp()
		p.SetCoordinates(p.Coordinates)
	}
	if _, ok := doc.Profiles.profiles[doc.Profiles.active]; !ok {
		first := doc.Profiles.order[0]
		if doc.Profiles.active != "" {
			log.Printf("profile: active profile %q not found, using %q", doc.Profiles.active, first)
		}
		doc.Profiles.active = first
	}
	if len(doc.MainWindowGeometry) == 0 || string(doc.MainWindowGeometry) == "null" {
		doc.MainWindowGeometry = json.RawMessage("[]")
	}
}
