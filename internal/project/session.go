package project

import "fmt"

// Session is a long-lived view of a project for trackers. Every read
// reloads the descriptor. Writes are recorded as deltas and replayed onto a
// freshly loaded descriptor under the lock by Save, so selection edits made
// by other commands while a session is open are never overwritten.
type Session struct {
	root     string
	snapshot *Project

	added    []string
	removed  map[string]bool
	deselect map[string]bool
	seeded   bool
}

// OpenSession loads root and starts a session on it.
func OpenSession(root string) (*Session, error) {
	p, err := Open(root)
	if err != nil {
		return nil, err
	}
	return &Session{
		root:     p.root,
		snapshot: p,
		removed:  make(map[string]bool),
		deselect: make(map[string]bool),
	}, nil
}

// Root returns the absolute project root.
func (s *Session) Root() string {
	return s.root
}

// reload refreshes the snapshot. A failed read keeps the previous one.
func (s *Session) reload() *Project {
	if p, err := Open(s.root); err == nil {
		s.snapshot = p
	}
	return s.snapshot
}

// KnownFiles returns the persisted known set with unsaved changes applied.
func (s *Session) KnownFiles() ([]string, bool) {
	known, seeded := s.reload().KnownFiles()
	return s.overlay(known), seeded || s.seeded
}

func (s *Session) overlay(known []string) []string {
	if len(s.added) == 0 && len(s.removed) == 0 {
		return known
	}
	out := make([]string, 0, len(known)+len(s.added))
	present := make(map[string]bool, len(known))
	for _, p := range known {
		if !s.removed[p] && !present[p] {
			out = append(out, p)
			present[p] = true
		}
	}
	for _, p := range s.added {
		if !present[p] {
			out = append(out, p)
			present[p] = true
		}
	}
	return out
}

// ReplaceKnownFiles records the difference between the current known set
// and files. Save applies it.
func (s *Session) ReplaceKnownFiles(files []string) {
	current, _ := s.KnownFiles()
	inCurrent := toSet(current)
	inFiles := toSet(files)

	for _, p := range files {
		if !inCurrent[p] {
			delete(s.removed, p)
			s.added = append(s.added, p)
			inCurrent[p] = true
		}
	}
	for _, p := range current {
		if !inFiles[p] {
			s.removed[p] = true
			s.added = without(s.added, p)
		}
	}
	s.seeded = true
}

// Deselect records paths to drop from the selection and reports whether
// any of them is currently selected.
func (s *Session) Deselect(paths ...string) bool {
	selected := toSet(s.Selected())
	changed := false
	for _, p := range paths {
		p = NormalizePath(p)
		if selected[p] {
			s.deselect[p] = true
			changed = true
		}
	}
	return changed
}

// Selected returns the persisted selection minus unsaved deselections.
func (s *Session) Selected() []string {
	selected := s.reload().Selected()
	if len(s.deselect) == 0 {
		return selected
	}
	out := selected[:0]
	for _, p := range selected {
		if !s.deselect[p] {
			out = append(out, p)
		}
	}
	return out
}

// Save replays the recorded changes onto the current descriptor under the
// descriptor lock. Recorded changes are kept when the save fails.
func (s *Session) Save() error {
	p, err := Update(s.root, func(p *Project) error {
		known, seeded := p.KnownFiles()
		if seeded || s.seeded {
			p.ReplaceKnownFiles(s.overlay(known))
		}
		if len(s.deselect) > 0 {
			paths := make([]string, 0, len(s.deselect))
			for path := range s.deselect {
				paths = append(paths, path)
			}
			p.Deselect(paths...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save project session: %w", err)
	}

	s.snapshot = p
	s.added = nil
	s.removed = make(map[string]bool)
	s.deselect = make(map[string]bool)
	s.seeded = false
	return nil
}

func toSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

func without(paths []string, drop string) []string {
	out := paths[:0]
	for _, p := range paths {
		if p != drop {
			out = append(out, p)
		}
	}
	return out
}
