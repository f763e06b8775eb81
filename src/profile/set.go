package profile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateName  = errors.New("a profile with this name already exists")
	ErrLastProfile    = errors.New("cannot remove the last profile")
	ErrUnknownProfile = errors.New("unknown profile")
	ErrEmptyName      = errors.New("profile name must not be empty")
)

// Set is an ordered, never-empty collection of profiles with one active
// entry. The zero value is not usable; use NewSet.
type Set struct {
	order    []string
	profiles map[string]*Profile
	active   string
}

// NewSet returns a set holding a single default profile.
func NewSet() *Set {
	s := &Set{profiles: make(map[string]*Profile)}
	s.insert(newProfile(DefaultName))
	s.active = DefaultName
	return s
}

func (s *Set) insert(p *Profile) {
	if _, exists := s.profiles[p.Name]; !exists {
		s.order = append(s.order, p.Name)
	}
	s.profiles[p.Name] = p
}

// Names returns profile names in mapping order.
func (s *Set) Names() []string { return append([]string(nil), s.order...) }

// Len returns the number of profiles.
func (s *Set) Len() int { return len(s.order) }

// Get returns the named profile.
func (s *Set) Get(name string) (*Profile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

// ActiveName returns the name of the active profile.
func (s *Set) ActiveName() string { return s.active }

// Active returns the active profile. It is never nil.
func (s *Set) Active() *Profile { return s.profiles[s.active] }

// SetActive makes name active. It reports false when name is unknown.
func (s *Set) SetActive(name string) bool {
	if _, ok := s.profiles[name]; !ok {
		return false
	}
	s.active = name
	return true
}

// Add inserts a default profile called name and activates it.
func (s *Set) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if _, exists := s.profiles[name]; exists {
		return fmt.Errorf("add %q: %w", name, ErrDuplicateName)
	}
	s.insert(newProfile(name))
	s.active = name
	return nil
}

// Rename moves oldName to newName keeping its content and position.
// Renaming a profile to its own name is a no-op.
func (s *Set) Rename(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}
	p, ok := s.profiles[oldName]
	if !ok {
		return fmt.Errorf("rename %q: %w", oldName, ErrUnknownProfile)
	}
	if newName == oldName {
		return nil
	}
	if _, exists := s.profiles[newName]; exists {
		return fmt.Errorf("rename %q to %q: %w", oldName, newName, ErrDuplicateName)
	}
	delete(s.profiles, oldName)
	p.Name = newName
	s.profiles[newName] = p
	for i, n := range s.order {
		if n == oldName {
			s.order[i] = newName
			break
		}
	}
	if s.active == oldName {
		s.active = newName
	}
	return nil
}

// Remove deletes name. The last remaining profile cannot be removed. When
// the active profile is removed the first remaining one becomes active.
func (s *Set) Remove(name string) error {
	if _, ok := s.profiles[name]; !ok {
		return fmt.Errorf("remove %q: %w", name, ErrUnknownProfile)
	}
	if len(s.order) <= 1 {
		return ErrLastProfile
	}
	delete(s.profiles, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == name {
		s.active = s.order[0]
	}
	return nil
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	c := &Set{profiles: make(map[string]*Profile, len(s.profiles)), active: s.active}
	for _, name := range s.order {
		p := s.profiles[name].Clone()
		c.insert(&p)
	}
	return c
}
