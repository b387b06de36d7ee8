package project

import "encoding/json"

// Migration upgrades a descriptor from one schema version to the next.
// Apply is pure: it decodes the From shape and encodes the From+1 shape.
type Migration struct {
	From        int
	Description string
	Apply       func(raw json.RawMessage) (json.RawMessage, error)
}

// migrations is the ordered chain applied by LoadAndMigrate.
var migrations = []Migration{
	{
		From:        1,
		Description: "merge selected_files and file_metadata into selection",
		Apply:       migrateV1ToV2,
	},
	{
		From:        2,
		Description: "normalize paths to forward slashes and reset total_tokens",
		Apply:       migrateV2ToV3,
	},
}

// legacyMetadata is the per-file metadata shape used by v1 and v2.
type legacyMetadata struct {
	MTime       float64 `json:"mtime"`
	ContentHash string  `json:"contentHash"`
	TokenCount  *int    `json:"tokenCount"`
	LineCount   *int    `json:"lineCount"`
}

type descriptorV1 struct {
	SelectedFiles []string                  `json:"selected_files"`
	FileMetadata  map[string]legacyMetadata `json:"file_metadata"`
	KnownFiles    []string                  `json:"known_files"`
}

type descriptorV2 struct {
	Version    int                       `json:"version"`
	Selection  map[string]legacyMetadata `json:"selection"`
	KnownFiles []string                  `json:"known_files"`
}

func migrateV1ToV2(raw json.RawMessage) (json.RawMessage, error) {
	var v1 descriptorV1
	if err := json.Unmarshal(raw, &v1); err != nil {
		return nil, err
	}

	v2 := descriptorV2{
		Version:    2,
		Selection:  make(map[string]legacyMetadata, len(v1.SelectedFiles)),
		KnownFiles: v1.KnownFiles,
	}
	for _, p := range v1.SelectedFiles {
		// Selected files without cached metadata get an empty entry.
		v2.Selection[p] = v1.FileMetadata[p]
	}

	return json.Marshal(v2)
}

func migrateV2ToV3(raw json.RawMessage) (json.RawMessage, error) {
	var v2 descriptorV2
	if err := json.Unmarshal(raw, &v2); err != nil {
		return nil, err
	}

	v3 := Descriptor{
		Version:     3,
		Selection:   make(map[string]FileMetadata, len(v2.Selection)),
		TotalTokens: TotalsUnknown,
	}

	for p, meta := range v2.Selection {
		converted := FileMetadata{
			MTime:       meta.MTime,
			ContentHash: meta.ContentHash,
			TokenCount:  TotalsUnknown,
		}
		if meta.TokenCount != nil {
			converted.TokenCount = *meta.TokenCount
		}
		if meta.LineCount != nil {
			converted.LineCount = *meta.LineCount
		}
		v3.Selection[NormalizePath(p)] = converted
	}

	if v2.KnownFiles != nil {
		seen := make(map[string]bool, len(v2.KnownFiles))
		v3.KnownFiles = make([]string, 0, len(v2.KnownFiles))
		for _, p := range v2.KnownFiles {
			p = NormalizePath(p)
			if !seen[p] {
				seen[p] = true
				v3.KnownFiles = append(v3.KnownFiles, p)
			}
		}
	}

	return json.Marshal(v3)
}
