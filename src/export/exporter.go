package export

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/overlay"
	"screen-label-overlay/src/profile"
)

type Kind string

const (
	KindSnapshot Kind = "png"
	KindPDF      Kind = "pdf"
)

// Exporter builds export jobs that run off the event loop. Each job works on
// copies taken when it is created.
type Exporter struct {
	Renderer *overlay.Renderer
	// Background captures the given shared-space rectangle. Nil leaves
	// snapshots on a flat backdrop.
	Background func(rect image.Rectangle) (*image.RGBA, error)
	Dir        string

	now func() time.Time

	mu     sync.Mutex
	issued map[string]bool
}

// DefaultPath names an export of profileName inside Dir. Names are stamped to
// the millisecond and never repeat a file on disk or a name handed out before.
func (e *Exporter) DefaultPath(kind Kind, profileName string) string {
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	t := now()
	base := fmt.Sprintf("%s-%s-%03d", safeName(profileName), t.Format("20060102-150405"), t.Nanosecond()/int(time.Millisecond))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.issued == nil {
		e.issued = make(map[string]bool)
	}
	path := filepath.Join(e.Dir, fmt.Sprintf("%s.%s", base, kind))
	for n := 2; e.taken(path); n++ {
		path = filepath.Join(e.Dir, fmt.Sprintf("%s-%d.%s", base, n, kind))
	}
	e.issued[path] = true
	return path
}

func (e *Exporter) taken(path string) bool {
	if e.issued[path] {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

// Job returns a task writing p over displays to path, or to DefaultPath when
// path is empty.
func (e *Exporter) Job(kind Kind, path string, displays []canvas.Display, p profile.Profile) func(ctx context.Context) (string, error) {
	if path == "" {
		path = e.DefaultPath(kind, p.Name)
	}
	c := canvas.New(displays...)
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		switch kind {
		case KindPDF:
			return path, WritePDF(path, c, p)
		case KindSnapshot:
			var bg image.Image
			if e.Background != nil {
				shot, err := e.Background(c.BoundingRect())
				if err != nil {
					return "", fmt.Errorf("capture background: %w", err)
				}
				bg = shot
			}
			img, err := Snapshot(e.Renderer, c, bg, p)
			if err != nil {
				return "", err
			}
			return path, WritePNG(path, img)
		}
		return "", fmt.Errorf("unknown export kind %q", kind)
	}
}

func safeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.TrimSpace(name))
	if name == "" {
		return "profile"
	}
	return name
}
