package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrison/promptsync/internal/project"
)

// NewScanCommand creates the 'promptsync scan' command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "List the files promptsync sees in a project",
		Long: `Discover ignore rules, walk the project and print every accepted file,
one per line, in walk order. Entries that could not be read are reported as
warnings and skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}
	cmd.Flags().Bool("quiet", false, "Print only file paths")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	defer s.Close()

	proj, err := project.Open(s.root)
	if err != nil {
		return err
	}

	result, err := s.scan(proj.Selected())
	if err != nil {
		return fmt.Errorf("scan %s: %w", s.root, err)
	}
	s.log.Info("Scan complete", zap.Int("files", len(result.Files)), zap.Int("errors", len(result.Errors)))

	out := cmd.OutOrStdout()
	for _, file := range result.Files {
		fmt.Fprintln(out, file)
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		s.console.LogScan(s.root, len(result.Files), result.Errors)
	}
	return nil
}
