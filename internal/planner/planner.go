// Package planner resolves parsed change blocks against a project root and
// decides which files would be updated, which would be created, and whether
// the user has to confirm the result before anything is written.
package planner

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/promptsync/internal/models"
	"github.com/harrison/promptsync/internal/parser"
)

// PlanDocument parses raw and plans the resulting blocks. A parse failure
// yields an Error plan carrying the parse error message, and the
// *parser.ParseError is returned alongside it.
func PlanDocument(root, raw string) (models.ChangePlan, error) {
	blocks, err := parser.ParseChanges(raw)
	if err != nil {
		return errorPlan(root, err.Error(), nil), err
	}
	return Plan(root, blocks), nil
}

// Plan classifies every block as an update or a creation under root. Only
// existence checks touch the filesystem.
func Plan(root string, blocks []models.ChangeBlock) models.ChangePlan {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errorPlan(root, fmt.Sprintf("invalid project root: %v", err), nil)
	}
	if len(blocks) == 0 {
		return errorPlan(absRoot, "no change blocks to apply", nil)
	}

	updates := make(map[string]string)
	creations := make(map[string]string)
	var skipped []string

	for i, block := range blocks {
		if !block.HasPath {
			skipped = append(skipped, fmt.Sprintf("block %d", i+1))
			continue
		}
		rel, ok := Normalize(block.Path)
		if !ok {
			skipped = append(skipped, block.Path)
			continue
		}

		abs := filepath.Join(absRoot, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		switch {
		case err == nil && info.Mode().IsRegular():
			delete(creations, abs)
			updates[abs] = block.Content
		case err == nil:
			// Directories and devices cannot be replaced by file content.
			skipped = append(skipped, rel)
		case os.IsNotExist(err):
			delete(updates, abs)
			creations[abs] = block.Content
		default:
			skipped = append(skipped, rel)
		}
	}

	if len(updates)+len(creations) == 0 {
		return errorPlan(absRoot, fmt.Sprintf("no resolvable file paths (skipped: %s)", strings.Join(skipped, ", ")), skipped)
	}

	plan := models.ChangePlan{
		Status:    models.PlanSuccess,
		Root:      absRoot,
		Updates:   updates,
		Creations: creations,
		NewDirs:   missingDirs(absRoot, creations),
		Skipped:   skipped,
	}
	if len(creations) > 0 {
		plan.Status = models.PlanConfirmationRequired
	}
	plan.Message = summarize(plan)
	return plan
}

// Normalize converts a block path to a clean, root-relative slash path. It
// rejects absolute paths and paths that escape the root.
func Normalize(p string) (string, bool) {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" || path.IsAbs(p) || filepath.IsAbs(p) || hasVolume(p) {
		return "", false
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

func hasVolume(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

// missingDirs lists every directory between root and a creation that does
// not exist yet, parents first.
func missingDirs(root string, creations map[string]string) []string {
	seen := make(map[string]bool)
	for abs := range creations {
		for dir := filepath.Dir(abs); dir != root && !seen[dir]; dir = filepath.Dir(dir) {
			if _, err := os.Stat(dir); err == nil {
				break
			}
			seen[dir] = true
		}
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

func summarize(plan models.ChangePlan) string {
	msg := fmt.Sprintf("%d file(s) to update, %d file(s) to create", len(plan.Updates), len(plan.Creations))
	if len(plan.NewDirs) > 0 {
		msg += fmt.Sprintf(", %d new directories", len(plan.NewDirs))
	}
	if len(plan.Skipped) > 0 {
		msg += fmt.Sprintf("; skipped: %s", strings.Join(plan.Skipped, ", "))
	}
	return msg
}

func errorPlan(root, message string, skipped []string) models.ChangePlan {
	return models.ChangePlan{
		Status:    models.PlanError,
		Root:      root,
		Updates:   map[string]string{},
		Creations: map[string]string{},
		Skipped:   skipped,
		Message:   message,
	}
}
