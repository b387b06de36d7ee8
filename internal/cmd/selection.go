package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrison/promptsync/internal/project"
)

// NewSelectCommand creates the 'promptsync select' command group
func NewSelectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Manage the files selected for the prompt document",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <path>...",
		Short: "Add files to the selection (paths relative to the project root)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateSelection(cmd, func(p *project.Project) (string, error) {
				before := len(p.Selected())
				if err := p.Select(args...); err != nil {
					return "", err
				}
				return fmt.Sprintf("Selected %d file(s), %d in total", len(p.Selected())-before, len(p.Selected())), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <path>...",
		Aliases: []string{"rm"},
		Short:   "Remove files from the selection",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateSelection(cmd, func(p *project.Project) (string, error) {
				before := len(p.Selected())
				normalized := make([]string, len(args))
				for i, arg := range args {
					normalized[i] = project.NormalizePath(arg)
				}
				if !p.Deselect(normalized...) {
					return "Selection unchanged", nil
				}
				return fmt.Sprintf("Removed %d file(s), %d remaining", before-len(p.Selected()), len(p.Selected())), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the selected files with their cached metadata",
		Args:    cobra.NoArgs,
		RunE:    runSelectList,
	})

	return cmd
}

// updateSelection applies fn to the descriptor under the project lock and
// prints the message it returns.
func updateSelection(cmd *cobra.Command, fn func(p *project.Project) (string, error)) error {
	s, err := newSession(cmd, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	var message string
	if _, err := project.Update(s.root, func(p *project.Project) error {
		msg, err := fn(p)
		message = msg
		return err
	}); err != nil {
		return err
	}

	s.console.LogInfo(message)
	return nil
}

func runSelectList(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	proj, err := project.Open(s.root)
	if err != nil {
		return err
	}

	selected := proj.Selected()
	if len(selected) == 0 {
		s.console.LogInfo("No files selected")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tLINES\tTOKENS")
	for _, rel := range selected {
		meta, _ := proj.Metadata(rel)
		fmt.Fprintf(w, "%s\t%d\t%s\n", rel, meta.LineCount, tokens(meta.TokenCount))
	}
	fmt.Fprintf(w, "total\t\t%s\n", tokens(proj.TotalTokens()))
	return w.Flush()
}

func tokens(n int) string {
	if n == project.TotalsUnknown {
		return "?"
	}
	return fmt.Sprintf("%d", n)
}
