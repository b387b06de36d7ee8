// Package project owns the per-project descriptor stored at
// <root>/.promptsync/project.json: the known-file set used to detect new and
// deleted files, the user's file selection with cached metadata, and the
// cached token total.
//
// Saves are full-file atomic overwrites taken under an advisory lock. One-shot
// commands modify the descriptor through Update. Long-running trackers use a
// Session, which replays its changes onto the current descriptor under the
// same lock instead of writing back a stale copy.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/promptsync/internal/filelock"
)

const (
	// StateDirName is the per-project state directory.
	StateDirName = ".promptsync"
	// DescriptorFileName is the descriptor file inside StateDirName.
	DescriptorFileName = "project.json"
)

// DescriptorPath returns the descriptor location for a project root.
func DescriptorPath(root string) string {
	return filepath.Join(root, StateDirName, DescriptorFileName)
}

// Project is an in-memory descriptor bound to its root directory.
type Project struct {
	root string
	desc *Descriptor
}

// Open loads the descriptor for root, migrating older schemas. A project
// without a descriptor starts unseeded.
func Open(root string) (*Project, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	raw, err := os.ReadFile(DescriptorPath(absRoot))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read project descriptor: %w", err)
	}

	desc, err := LoadAndMigrate(raw)
	if err != nil {
		return nil, err
	}
	return &Project{root: absRoot, desc: desc}, nil
}

// Update loads the descriptor under its lock, applies fn, and saves the
// result before releasing the lock. fn errors abort without writing.
func Update(root string, fn func(*Project) error) (*Project, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	p := &Project{root: absRoot}
	err = filelock.LockAndUpdate(DescriptorPath(absRoot), func(current []byte) ([]byte, error) {
		desc, err := LoadAndMigrate(current)
		if err != nil {
			return nil, err
		}
		p.desc = desc
		if err := fn(p); err != nil {
			return nil, err
		}
		return desc.Marshal()
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Root returns the absolute project root.
func (p *Project) Root() string {
	return p.root
}

// Descriptor returns the underlying descriptor.
func (p *Project) Descriptor() *Descriptor {
	return p.desc
}

// Save writes the descriptor atomically under the descriptor lock.
func (p *Project) Save() error {
	data, err := p.desc.Marshal()
	if err != nil {
		return err
	}
	if err := filelock.LockAndWrite(DescriptorPath(p.root), data); err != nil {
		return fmt.Errorf("failed to save project descriptor: %w", err)
	}
	return nil
}

// KnownFiles returns a copy of the known-file set and whether the project
// has been seeded.
func (p *Project) KnownFiles() ([]string, bool) {
	if p.desc.KnownFiles == nil {
		return nil, false
	}
	return append([]string{}, p.desc.KnownFiles...), true
}

// ReplaceKnownFiles replaces the known-file set, seeding the project if
// needed.
func (p *Project) ReplaceKnownFiles(files []string) {
	p.desc.KnownFiles = append(make([]string, 0, len(files)), files...)
}

// Select adds root-relative paths to the selection. Every path must name an
// existing regular file inside the root. Metadata is computed for new
// entries and the cached total is invalidated when the selection changes.
func (p *Project) Select(paths ...string) error {
	changed := false
	for _, raw := range paths {
		rel, err := p.relative(raw)
		if err != nil {
			return err
		}
		if _, ok := p.desc.Selection[rel]; ok {
			continue
		}
		meta, err := ComputeMetadata(p.root, rel)
		if err != nil {
			return err
		}
		p.desc.Selection[rel] = meta
		changed = true
	}
	if changed {
		p.InvalidateTotals()
	}
	return nil
}

// Deselect removes paths from the selection and reports whether anything
// was removed. A change invalidates the cached total.
func (p *Project) Deselect(paths ...string) bool {
	changed := false
	for _, raw := range paths {
		rel := NormalizePath(raw)
		if _, ok := p.desc.Selection[rel]; ok {
			delete(p.desc.Selection, rel)
			changed = true
		}
	}
	if changed {
		p.InvalidateTotals()
	}
	return changed
}

// Selected returns the sorted selection.
func (p *Project) Selected() []string {
	paths := make([]string, 0, len(p.desc.Selection))
	for rel := range p.desc.Selection {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths
}

// Metadata returns the cached metadata for a selected path.
func (p *Project) Metadata(rel string) (FileMetadata, bool) {
	meta, ok := p.desc.Selection[NormalizePath(rel)]
	return meta, ok
}

// RefreshMetadata recomputes the metadata of a selected file. When the
// content changed, its token count and the cached total are reset. It
// reports whether the entry changed.
func (p *Project) RefreshMetadata(rel string) (bool, error) {
	rel = NormalizePath(rel)
	old, ok := p.desc.Selection[rel]
	if !ok {
		return false, fmt.Errorf("%s is not selected", rel)
	}

	meta, err := ComputeMetadata(p.root, rel)
	if err != nil {
		return false, err
	}
	if meta.ContentHash == old.ContentHash {
		meta.TokenCount = old.TokenCount
	}
	if meta == old {
		return false, nil
	}

	p.desc.Selection[rel] = meta
	if meta.ContentHash != old.ContentHash {
		p.InvalidateTotals()
	}
	return true, nil
}

// TotalTokens returns the cached token total, or TotalsUnknown.
func (p *Project) TotalTokens() int {
	return p.desc.TotalTokens
}

// InvalidateTotals resets the cached aggregate so it is recomputed rather
// than patched.
func (p *Project) InvalidateTotals() {
	p.desc.TotalTokens = TotalsUnknown
}

func (p *Project) relative(raw string) (string, error) {
	target := raw
	if !filepath.IsAbs(target) {
		target = filepath.Join(p.root, filepath.FromSlash(NormalizePath(raw)))
	}
	rel, err := filepath.Rel(p.root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the project root", raw)
	}
	return filepath.ToSlash(rel), nil
}

// ComputeMetadata reads a file under root and returns its metadata with an
// unknown token count.
func ComputeMetadata(root, rel string) (FileMetadata, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return FileMetadata{}, fmt.Errorf("%s is not a regular file", rel)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	sum := sha256.Sum256(data)

	lines := strings.Count(string(data), "\n")
	if len(data) > 0 && data[len(data)-1] != '\n' {
		lines++
	}

	return FileMetadata{
		MTime:       float64(info.ModTime().UnixNano()) / 1e9,
		ContentHash: hex.EncodeToString(sum[:]),
		TokenCount:  TotalsUnknown,
		LineCount:   lines,
	}, nil
}
