package models

import (
	"path/filepath"
	"sort"
)

// PlanStatus is the outcome of planning a change document
type PlanStatus string

// Plan status constants
const (
	PlanSuccess              PlanStatus = "success"               // Only updates, ready to execute
	PlanConfirmationRequired PlanStatus = "confirmation_required" // Contains creations, needs consent
	PlanError                PlanStatus = "error"                 // Nothing resolvable, must not execute
)

// ChangePlan maps absolute target paths to the content that will be written.
// Updates always reference files that existed at planning time and Creations
// never do; the two key sets are disjoint.
type ChangePlan struct {
	Status    PlanStatus        // Planning outcome
	Root      string            // Absolute project root
	Updates   map[string]string // Absolute path -> content for existing files
	Creations map[string]string // Absolute path -> content for new files
	NewDirs   []string          // Absolute directories that must be created
	Skipped   []string          // Block paths that failed resolution
	Message   string            // Human-readable summary
	Confirmed bool              // Set by Confirm once the user consents
}

// Confirm records user consent to the creations in the plan.
func (p *ChangePlan) Confirm() {
	p.Confirmed = true
}

// Ready reports whether the plan may be handed to the executor.
func (p ChangePlan) Ready() bool {
	switch p.Status {
	case PlanSuccess:
		return true
	case PlanConfirmationRequired:
		return p.Confirmed
	default:
		return false
	}
}

// FileCount returns the number of files the plan would write.
func (p ChangePlan) FileCount() int {
	return len(p.Updates) + len(p.Creations)
}

// CreationPaths returns the sorted, root-relative paths of the planned creations.
func (p ChangePlan) CreationPaths() []string {
	return p.relative(p.Creations)
}

// UpdatePaths returns the sorted, root-relative paths of the planned updates.
func (p ChangePlan) UpdatePaths() []string {
	return p.relative(p.Updates)
}

func (p ChangePlan) relative(entries map[string]string) []string {
	paths := make([]string, 0, len(entries))
	for abs := range entries {
		rel, err := filepath.Rel(p.Root, abs)
		if err != nil {
			rel = abs
		}
		paths = append(paths, filepath.ToSlash(rel))
	}
	sort.Strings(paths)
	return paths
}
