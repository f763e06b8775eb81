package profile

import (
	"encoding/json"
	"log"
)

// legacyFontSettings is the style block written by the first releases.
type legacyFontSettings struct {
	Family          string `json:"family"`
	Size            int    `json:"size"`
	ColorRGB        RGB    `json:"color_rgb"`
	OutlineColorRGB RGB    `json:"outline_color_rgb"`
	OutlineWidth    int    `json:"outline_width"`
}

func (f legacyFontSettings) style() Style {
	return Style{
		Family:       f.Family,
		Size:         f.Size,
		Color:        f.ColorRGB,
		OutlineColor: f.OutlineColorRGB,
		OutlineWidth: f.OutlineWidth,
	}
}

// legacyDocument is the single-profile layout: one style, one coordinate
// list, no "profiles" key. Both the camelCase and the original snake_case
// spellings are accepted.
type legacyDocument struct {
	Style                json.RawMessage     `json:"style"`
	FontSettings         *legacyFontSettings `json:"font_settings"`
	Coordinates          [][2]int            `json:"coordinates"`
	MainWindowGeometry   json.RawMessage     `json:"mainWindowGeometry"`
	LegacyGeometry       json.RawMessage     `json:"main_window_geometry"`
	ShowOverlayOnStartup *bool               `json:"showOverlayOnStartup"`
	LegacyShowOverlay    *bool               `json:"show_overlay_on_startup"`
}

// migrateLegacy wraps a legacy layout into a document holding one profile
// named DefaultName. The result always carries a "profiles" key, so a
// migrated document is never migrated again.
func migrateLegacy(data []byte) (*Document, error) {
	def := DefaultStyle()
	legacy := legacyDocument{FontSettings: &legacyFontSettings{
		Family:          def.Family,
		Size:            def.Size,
		ColorRGB:        def.Color,
		OutlineColorRGB: def.OutlineColor,
		OutlineWidth:    def.OutlineWidth,
	}}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}

	style := def
	switch {
	case len(legacy.Style) > 0:
		if err := json.Unmarshal(legacy.Style, &style); err != nil {
			return nil, err
		}
	case legacy.FontSettings != nil:
		style = legacy.FontSettings.style()
	}

	doc := NewDocument()
	p := doc.Profiles.Active()
	p.Style = style
	p.SetCoordinates(fromWirePoints(legacy.Coordinates))

	switch {
	case len(legacy.MainWindowGeometry) > 0:
		doc.MainWindowGeometry = legacy.MainWindowGeometry
	case len(legacy.LegacyGeometry) > 0:
		doc.MainWindowGeometry = legacy.LegacyGeometry
	}
	switch {
	case legacy.ShowOverlayOnStartup != nil:
		doc.ShowOverlayOnStartup = *legacy.ShowOverlayOnStartup
	case legacy.LegacyShowOverlay != nil:
		doc.ShowOverlayOnStartup = *legacy.LegacyShowOverlay
	}

	normalize(doc)
	log.Printf("profile: migrated legacy layout into profile %q (%d points)", DefaultName, len(p.Coordinates))
	return doc, nil
}
