package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/promptsync/internal/compose"
	"github.com/harrison/promptsync/internal/display"
	"github.com/harrison/promptsync/internal/filelock"
	"github.com/harrison/promptsync/internal/project"
	"github.com/harrison/promptsync/internal/source"
)

// NewComposeCommand creates the 'promptsync compose' command
func NewComposeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose [dir]",
		Short: "Render the selected files into one prompt document",
		Long: `Compose writes every selected file into a single markdown document, each
file introduced by its path and wrapped in a fenced code block.

The document goes to stdout unless --out or --clipboard is given. Cached
metadata of the selected files is refreshed while composing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompose,
	}
	cmd.Flags().StringP("out", "o", "", "Write the document to this file")
	cmd.Flags().Bool("clipboard", false, "Copy the document to the system clipboard")
	cmd.Flags().String("header", compose.DefaultHeader, "Document heading")
	return cmd
}

func runCompose(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	defer s.Close()

	header, _ := cmd.Flags().GetString("header")
	outPath, _ := cmd.Flags().GetString("out")
	toClipboard, _ := cmd.Flags().GetBool("clipboard")

	var doc *compose.Document
	if _, err := project.Update(s.root, func(p *project.Project) error {
		if len(p.Selected()) == 0 {
			return fmt.Errorf("no files selected; run 'promptsync select add <path>' first")
		}
		doc, err = compose.Build(p, compose.Options{Header: header, Logger: s.log})
		return err
	}); err != nil {
		return err
	}

	if len(doc.Missing) > 0 {
		display.Warning{
			Title:      "Some selected files could not be read",
			Message:    "They were left out of the document",
			Files:      doc.Missing,
			Suggestion: "Run 'promptsync status' to drop deleted files from the selection",
		}.Display(cmd.ErrOrStderr())
	}

	switch {
	case outPath != "":
		if err := filelock.AtomicWrite(outPath, []byte(doc.Content)); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		s.console.LogInfo(fmt.Sprintf("Wrote %d file(s), %d lines to %s", len(doc.Files), doc.Lines, outPath))
	case toClipboard:
		if err := source.New().Copy(doc.Content); err != nil {
			return err
		}
		s.console.LogInfo(fmt.Sprintf("Copied %d file(s), %d lines to the clipboard", len(doc.Files), doc.Lines))
	default:
		fmt.Fprint(cmd.OutOrStdout(), doc.Content)
	}
	return nil
}
