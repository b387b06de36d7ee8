// Package display provides terminal UI utilities for warnings and
// confirmation prompts.
//
// # Warning Messages
//
// Display warnings with optional components:
//
//	warning := display.Warning{
//	    Title:      "New files will be created",
//	    Message:    "The change document names files that do not exist yet",
//	    Files:      []string{"pkg/new.go"},
//	    Suggestion: "Re-run with --yes to create them without asking",
//	}
//	warning.Display(os.Stderr)
//
// Or use the factories for common cases:
//
//	display.WarnCreations(plan).Display(os.Stderr)
//	display.WarnSkipped(plan.Skipped).Display(os.Stderr)
//
// # Confirmation
//
// Ask a yes/no question on an interactive terminal:
//
//	if display.Interactive(os.Stdin) {
//	    ok, err := display.Confirm(os.Stdin, os.Stderr, "Create 2 files?")
//	}
//
// Only "y" and "yes" (any case) confirm. Everything else, including end of
// input, declines.
//
// All functions accept io.Writer and io.Reader interfaces for testability.
package display
