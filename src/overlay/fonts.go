package overlay

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// DPI used to turn point sizes into pixels.
const DPI = 96

const (
	fallbackFamily = "go bold"
	bannerFamily   = "go regular"
)

// builtinAliases maps common desktop family names onto the bundled Go fonts.
var builtinAliases = map[string]string{
	"arial":       fallbackFamily,
	"helvetica":   fallbackFamily,
	"segoe ui":    fallbackFamily,
	"verdana":     fallbackFamily,
	"tahoma":      fallbackFamily,
	"sans":        fallbackFamily,
	"sans-serif":  fallbackFamily,
	"consolas":    "go mono bold",
	"courier new": "go mono bold",
	"monospace":   "go mono bold",
}

type faceKey struct {
	family string
	size   int
}

type registered struct {
	font *opentype.Font
	bold bool
}

// Fonts resolves style families to font faces. Faces are cached per family
// and size. Cached faces share glyph buffers and must only be used between
// lockDrawing and its release.
type Fonts struct {
	mu       sync.Mutex
	drawMu   sync.Mutex
	families map[string]registered
	faces    map[faceKey]font.Face
}

// lockDrawing serializes every use of the registry's faces.
func (f *Fonts) lockDrawing() func() {
	f.drawMu.Lock()
	return f.drawMu.Unlock
}

// NewFonts returns a registry holding the bundled Go fonts.
func NewFonts() (*Fonts, error) {
	f := &Fonts{
		families: make(map[string]registered),
		faces:    make(map[faceKey]font.Face),
	}
	for name, data := range map[string][]byte{
		fallbackFamily: gobold.TTF,
		"go mono bold": gomonobold.TTF,
		bannerFamily:   goregular.TTF,
	} {
		parsed, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse bundled font %s: %w", name, err)
		}
		f.families[name] = registered{font: parsed, bold: name != bannerFamily}
	}
	return f, nil
}

// LoadDir registers every .ttf/.otf file in dir under its family name. When
// a family has several files the bold one wins. It returns the number of
// families added or replaced.
func (f *Fonts) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read font directory: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	var buf sfnt.Buffer
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("overlay: skip font %s: %v", path, err)
			continue
		}
		parsed, err := opentype.Parse(data)
		if err != nil {
			log.Printf("overlay: skip font %s: %v", path, err)
			continue
		}
		family, err := parsed.Name(&buf, sfnt.NameIDFamily)
		if err != nil || family == "" {
			log.Printf("overlay: skip font %s: no family name", path)
			continue
		}
		sub, _ := parsed.Name(&buf, sfnt.NameIDSubfamily)
		bold := strings.Contains(strings.ToLower(sub), "bold")

		key := normalizeFamily(family)
		if prev, ok := f.families[key]; ok && prev.bold && !bold {
			continue
		}
		f.families[key] = registered{font: parsed, bold: bold}
		f.dropFaces(key)
		n++
	}
	log.Printf("overlay: registered %d font famil(ies) from %s", n, dir)
	return n, nil
}

func (f *Fonts) dropFaces(family string) {
	for k, face := range f.faces {
		if k.family == family {
			_ = face.Close()
			delete(f.faces, k)
		}
	}
}

func normalizeFamily(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}

// resolve returns the registry key used for family.
func (f *Fonts) resolve(family string) string {
	key := normalizeFamily(family)
	if _, ok := f.families[key]; ok {
		return key
	}
	if alias, ok := builtinAliases[key]; ok {
		return alias
	}
	return fallbackFamily
}

// Face returns a face for family at size points. Unknown families fall back
// to Go Bold.
func (f *Fonts) Face(family string, size int) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := faceKey{family: f.resolve(family), size: size}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.families[key.family].font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     DPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face %s/%d: %w", key.family, size, err)
	}
	f.faces[key] = face
	return face, nil
}
