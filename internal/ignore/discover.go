package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DefaultFileNames are the ignore files looked for in every directory.
var DefaultFileNames = []string{".gitignore", ".promptignore"}

// Discover walks root top-down and loads every ignore file named in names,
// returning one RuleSet per file in discovery order (root to leaf, lexical
// within a level, names order within a directory).
//
// A directory ignored by the rules discovered so far is pruned and never
// searched for further ignore files. Read errors are collected and returned
// alongside the rule sets; they never abort the walk.
func Discover(root string, names []string, logger *zap.Logger) ([]RuleSet, []error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(names) == 0 {
		names = DefaultFileNames
	}

	var sets []RuleSet
	var errs []error

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, fmt.Errorf("error accessing %s: %w", path, err))
			logger.Warn("Skipping unreadable path during ignore discovery",
				zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to relativize %s: %w", path, err))
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}

		if rel != "" && IsIgnored(rel, true, sets) {
			logger.Debug("Pruning ignored directory", zap.String("dir", rel))
			return filepath.SkipDir
		}

		for _, name := range names {
			content, err := os.ReadFile(filepath.Join(path, name))
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					errs = append(errs, fmt.Errorf("failed to read ignore file %s: %w", filepath.Join(path, name), err))
					logger.Warn("Failed to read ignore file",
						zap.String("dir", rel), zap.String("file", name), zap.Error(err))
				}
				continue
			}

			patterns := ParseLines(string(content))
			sets = append(sets, RuleSet{Origin: rel, Patterns: patterns})
			logger.Debug("Loaded ignore file",
				zap.String("dir", rel),
				zap.String("file", name),
				zap.Int("patterns", len(patterns)))
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, fmt.Errorf("failed to walk %s: %w", root, walkErr))
	}

	return sets, errs
}
