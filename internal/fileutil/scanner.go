package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/harrison/promptsync/internal/ignore"
)

// ErrRootMissing is returned when the scan root no longer exists.
var ErrRootMissing = errors.New("scan root does not exist")

// DefaultSpecialNames are editor and OS metadata entries that are never part of
// a project, plus promptsync's own state directory.
var DefaultSpecialNames = []string{
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	".idea",
	".vscode",
	".promptsync",
}

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Extensions is the allow-set. An entry starting with "." matches a
	// lowercase file extension; any other entry matches an exact lowercase
	// file name (for extensionless files such as "makefile"). Empty accepts
	// every file.
	Extensions []string
	// RuleSets are the ignore rules discovered for the root.
	RuleSets []ignore.RuleSet
	// AlwaysInclude lists relative paths appended after the walk when they
	// exist as regular files, bypassing ignore rules and the allow-set.
	AlwaysInclude []string
	// SpecialNames are entry names skipped wherever they appear.
	// Nil means DefaultSpecialNames.
	SpecialNames []string
	// Logger receives per-entry diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains relative, forward-slash paths in walk order.
	Files []string
	// Errors contains the non-fatal errors encountered during scanning.
	Errors []error
}

// ScanDirectory walks root and returns every accepted file.
//
// Only an inaccessible root is fatal. Errors on individual entries are
// recorded in ScanResult.Errors and the walk continues with their siblings.
func ScanDirectory(root string, opts ScanOptions) (*ScanResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootMissing, root)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	allowed := make(map[string]bool)
	for _, entry := range opts.Extensions {
		allowed[strings.ToLower(strings.TrimSpace(entry))] = true
	}

	specialNames := opts.SpecialNames
	if specialNames == nil {
		specialNames = DefaultSpecialNames
	}
	special := make(map[string]bool)
	for _, name := range specialNames {
		special[name] = true
	}

	seen := make(map[string]bool)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", p, err))
			logger.Warn("Skipping unreadable path", zap.String("path", p), zap.Error(err))
			return nil // Continue walking
		}

		// Skip the root directory itself
		if p == root {
			return nil
		}

		if special[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", p, err))
			return nil
		}
		rel = filepath.ToSlash(rel)

		if ignore.IsIgnored(rel, d.IsDir(), opts.RuleSets) {
			if d.IsDir() {
				logger.Debug("Skipping ignored directory", zap.String("dir", rel))
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(p)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if len(allowed) > 0 && !isAllowed(d.Name(), allowed) {
			return nil
		}

		result.Files = append(result.Files, rel)
		seen[rel] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	for _, include := range opts.AlwaysInclude {
		rel := path.Clean(filepath.ToSlash(include))
		if seen[rel] || rel == "." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
			continue
		}
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		result.Files = append(result.Files, rel)
		seen[rel] = true
	}

	logger.Debug("Scan complete",
		zap.String("root", root),
		zap.Int("files", len(result.Files)),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

func isAllowed(name string, allowed map[string]bool) bool {
	lower := strings.ToLower(name)
	if ext := filepath.Ext(lower); ext != "" && allowed[ext] {
		return true
	}
	return allowed[lower]
}
