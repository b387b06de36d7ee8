package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for promptsync
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promptsync",
		Short: "Keep a project and an LLM conversation in sync",
		Long: `promptsync tracks the files of a project directory, composes the files you
select into a single prompt document, and applies the code blocks of a
model's answer back onto the project.

New and deleted files are detected against the project's known-file set,
honouring .gitignore and .promptignore files at every level.

Configuration is loaded from .promptsync/config.yaml in the project root if
present. CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringP("dir", "C", ".", "Project root directory")
	flags.String("config", "", "Path to config file (default: <dir>/.promptsync/config.yaml)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for diagnostic run logs")

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewAckCommand())
	cmd.AddCommand(NewWatchCommand())
	cmd.AddCommand(NewSelectCommand())
	cmd.AddCommand(NewComposeCommand())
	cmd.AddCommand(NewApplyCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
