package profile

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// ErrPersistence marks a failed write of the persisted document.
var ErrPersistence = errors.New("failed to persist profiles")

// Store loads and saves the persisted document.
type Store interface {
	// Load never returns a nil document. On missing data it returns the
	// default document and no error; on corrupt data it returns the default
	// document and an error wrapping ErrConfigCorrupt.
	Load() (*Document, error)
	// Save writes doc atomically; errors wrap ErrPersistence.
	Save(doc *Document) error
}

// FileStore keeps the document in a single JSON file.
type FileStore struct {
	path      string
	digest    [sha256.Size]byte
	hasDigest bool

	rename func(oldpath, newpath string) error
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, rename: os.Rename}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("profile: %s not found, using defaults", s.path)
		s.hasDigest = false
		return NewDocument(), nil
	}
	if err != nil {
		return NewDocument(), fmt.Errorf("%w: read %s: %w", ErrConfigCorrupt, s.path, err)
	}
	s.remember(data)

	doc, migrated, err := Decode(data)
	if err != nil {
		log.Printf("profile: %s is unreadable, using defaults: %v", s.path, err)
		return NewDocument(), err
	}
	if migrated {
		if err := s.Save(doc); err != nil {
			return doc, err
		}
		log.Printf("profile: migrated document saved to %s", s.path)
	}
	return doc, nil
}

func (s *FileStore) Save(doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}
	if err := s.writeAtomic(data); err != nil {
		log.Printf("profile: save to %s failed: %v", s.path, err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.remember(data)
	log.Printf("profile: saved %d profile(s) to %s", doc.Profiles.Len(), s.path)
	return nil
}

// writeAtomic writes data to a temp file next to the target and renames it
// into place, so a failed write leaves the previous file untouched.
func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.rename(tmpPath, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) remember(data []byte) {
	s.digest = sha256.Sum256(data)
	s.hasDigest = true
}

// Changed reports whether the file on disk differs from what this store last
// loaded or saved. Our own writes therefore never count as changes.
func (s *FileStore) Changed() (bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.hasDigest, nil
	}
	if err != nil {
		return false, err
	}
	if !s.hasDigest {
		return true, nil
	}
	sum := sha256.Sum256(data)
	return !bytes.Equal(sum[:], s.digest[:]), nil
}
