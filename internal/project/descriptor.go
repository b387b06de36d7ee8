package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// CurrentVersion is the descriptor schema written by this package.
	CurrentVersion = 3

	// TotalsUnknown marks a cached aggregate that must be recomputed.
	TotalsUnknown = -1
)

// ErrUnsupportedVersion is returned for descriptors newer than CurrentVersion
// or carrying a version that never existed.
var ErrUnsupportedVersion = errors.New("unsupported project descriptor version")

// FileMetadata is cached per selected file.
type FileMetadata struct {
	MTime       float64 `json:"mtime"`        // Modification time, Unix seconds
	ContentHash string  `json:"content_hash"` // Hex sha256 of the content
	TokenCount  int     `json:"token_count"`  // TotalsUnknown until counted
	LineCount   int     `json:"line_count"`
}

// Descriptor is the current (v3) on-disk project state.
//
// KnownFiles is nil until the project has been seeded from its first scan;
// an empty, non-nil slice is a seeded project with no files.
type Descriptor struct {
	Version     int                     `json:"version"`
	KnownFiles  []string                `json:"known_files"`
	Selection   map[string]FileMetadata `json:"selection"`
	TotalTokens int                     `json:"total_tokens"`
}

// NewDescriptor returns an unseeded descriptor with an empty selection.
func NewDescriptor() *Descriptor {
	return &Descriptor{
		Version:     CurrentVersion,
		Selection:   make(map[string]FileMetadata),
		TotalTokens: TotalsUnknown,
	}
}

// LoadAndMigrate decodes raw descriptor JSON of any supported version and
// returns it upgraded to CurrentVersion. Empty input yields NewDescriptor.
// A descriptor without a version field is treated as version 1.
func LoadAndMigrate(raw []byte) (*Descriptor, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return NewDescriptor(), nil
	}

	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode project descriptor: %w", err)
	}
	version := 1
	if probe.Version != nil {
		version = *probe.Version
	}
	if version < 1 || version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	data := json.RawMessage(raw)
	for _, m := range migrations {
		if m.From < version {
			continue
		}
		next, err := m.Apply(data)
		if err != nil {
			return nil, fmt.Errorf("migration from v%d (%s) failed: %w", m.From, m.Description, err)
		}
		data = next
	}

	desc := NewDescriptor()
	if err := json.Unmarshal(data, desc); err != nil {
		return nil, fmt.Errorf("failed to decode project descriptor: %w", err)
	}
	if desc.Selection == nil {
		desc.Selection = make(map[string]FileMetadata)
	}
	return desc, nil
}

// Marshal encodes the descriptor as indented JSON.
func (d *Descriptor) Marshal() ([]byte, error) {
	out := *d
	out.Version = CurrentVersion
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode project descriptor: %w", err)
	}
	return append(data, '\n'), nil
}

// NormalizePath converts a stored path to the clean, slash-separated form
// used since v3.
func NormalizePath(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}
