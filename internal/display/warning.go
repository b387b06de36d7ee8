package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/promptsync/internal/models"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// maxWarningFiles caps the affected-file list of a single warning.
const maxWarningFiles = 20

const (
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

// String renders the warning without color codes.
// Format:
//
//	⚠️  Warning: <title>
//	    <message>
//	    Affected files:
//	      1. <file>
//	    Suggestion:
//	    <suggestion>
func (w Warning) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️  Warning: %s\n", w.Title)

	if w.Message != "" {
		fmt.Fprintf(&b, "    %s\n", w.Message)
	}

	if len(w.Files) > 0 {
		label := "Affected files:"
		if len(w.Files) == 1 {
			label = "Affected file:"
		}
		fmt.Fprintf(&b, "    %s\n", label)

		for i, file := range w.Files {
			if i == maxWarningFiles {
				fmt.Fprintf(&b, "      ... and %d more\n", len(w.Files)-maxWarningFiles)
				break
			}
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		fmt.Fprintf(&b, "    Suggestion:\n    %s\n", w.Suggestion)
	}
	return b.String()
}

// Display writes the warning to out in yellow
func (w Warning) Display(out io.Writer) {
	fmt.Fprint(out, ansiYellow+w.String()+ansiReset)
}

// WarnCreations creates a warning listing the files a plan would create
func WarnCreations(plan models.ChangePlan) Warning {
	w := Warning{
		Title: fmt.Sprintf("%d new file(s) will be created", len(plan.Creations)),
		Files: plan.CreationPaths(),
	}
	if len(plan.NewDirs) > 0 {
		w.Message = fmt.Sprintf("%d new directories will be created as well", len(plan.NewDirs))
	}
	return w
}

// WarnSkipped creates a warning for block paths the planner rejected
func WarnSkipped(paths []string) Warning {
	return Warning{
		Title:      "Some change blocks were skipped",
		Message:    "These paths are absolute, escape the project root, or name a directory",
		Files:      paths,
		Suggestion: "Use paths relative to the project root",
	}
}
