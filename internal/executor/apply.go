// Package executor writes a confirmed change plan to disk.
//
// Execute never re-parses the change document; it only consumes the plan the
// planner produced. Writes happen one file at a time in path order, each via
// an atomic temp-file rename. The first failure stops the run, and the
// result states how many files were written before it.
package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/harrison/promptsync/internal/filelock"
	"github.com/harrison/promptsync/internal/models"
)

// WriteFunc persists data at an absolute path.
type WriteFunc func(path string, data []byte) error

type options struct {
	markdown map[string]bool
	write    WriteFunc
	logger   *zap.Logger
}

// Option configures behaviour of Execute.
type Option func(*options)

// WithMarkdownExtensions replaces the set of extensions written verbatim.
func WithMarkdownExtensions(exts []string) Option {
	return func(o *options) {
		o.markdown = make(map[string]bool, len(exts))
		for _, ext := range exts {
			o.markdown[strings.ToLower(ext)] = true
		}
	}
}

// WithWriteFunc replaces the file writer. Defaults to filelock.AtomicWrite.
func WithWriteFunc(fn WriteFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.write = fn
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Execute applies plan. Error plans and plans whose creations were not
// confirmed are refused without touching the filesystem.
func Execute(plan models.ChangePlan, opts ...Option) models.ExecutionResult {
	config := options{
		write:  filelock.AtomicWrite,
		logger: zap.NewNop(),
	}
	WithMarkdownExtensions(DefaultMarkdownExtensions)(&config)
	for _, opt := range opts {
		if opt != nil {
			opt(&config)
		}
	}

	switch {
	case plan.Status == models.PlanError:
		return models.ExecutionResult{Message: "plan has errors, nothing written: " + plan.Message}
	case !plan.Ready():
		return models.ExecutionResult{Message: fmt.Sprintf("creation of %d file(s) was not confirmed, nothing written", len(plan.Creations))}
	}

	entries := make(map[string]string, plan.FileCount())
	for path, content := range plan.Updates {
		entries[path] = content
	}
	for path, content := range plan.Creations {
		entries[path] = content
	}
	paths := make([]string, 0, len(entries))
	for path := range entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	result := models.ExecutionResult{Written: make([]string, 0, len(paths))}

	for _, dir := range plan.NewDirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			result.Failed = relative(plan.Root, dir)
			result.Message = fmt.Sprintf("failed to create directory %s: %v; 0 of %d file(s) written", result.Failed, err, len(paths))
			config.logger.Warn("Directory creation failed", zap.String("dir", dir), zap.Error(err))
			return result
		}
	}

	for _, path := range paths {
		rel := relative(plan.Root, path)
		content := entries[path]
		if !isMarkdown(path, config.markdown) {
			content = NormalizeContent(content)
		}

		if err := config.write(path, []byte(content)); err != nil {
			result.Failed = rel
			result.Message = fmt.Sprintf("failed to write %s: %v; %d of %d file(s) written before the failure", rel, err, len(result.Written), len(paths))
			config.logger.Warn("Write failed",
				zap.String("path", rel),
				zap.Int("written", len(result.Written)),
				zap.Error(err))
			return result
		}
		config.logger.Debug("Wrote file", zap.String("path", rel), zap.Int("bytes", len(content)))
		result.Written = append(result.Written, rel)
	}

	result.Success = true
	result.Message = fmt.Sprintf("wrote %d file(s)", len(result.Written))
	return result
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
