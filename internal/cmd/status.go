package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/promptsync/internal/logger"
	"github.com/harrison/promptsync/internal/project"
	"github.com/harrison/promptsync/internal/tracker"
)

// NewStatusCommand creates the 'promptsync status' command
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [dir]",
		Short: "Show files added or deleted since the last acknowledgement",
		Long: `Scan the project once and compare it with the known-file set.

Deleted files are dropped from the known set and from the selection right
away. New files are only reported; run 'promptsync ack' to accept them.
The first run on a project records the current files as known.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runCheck(cmd, args, false)
			return err
		},
	}
}

// NewAckCommand creates the 'promptsync ack' command
func NewAckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ack [dir]",
		Short: "Acknowledge new files so they are no longer reported",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runCheck(cmd, args, true)
			return err
		},
	}
}

// consoleListener forwards tracker notifications to the console logger.
type consoleListener struct {
	console *logger.ConsoleLogger
}

func (l consoleListener) NewFiles(paths []string)      { l.console.LogNewFiles(paths) }
func (l consoleListener) DeletedFiles(paths []string)  { l.console.LogDeletedFiles(paths) }
func (l consoleListener) DirectoryMissing(root string) { l.console.LogDirectoryMissing(root) }

func runCheck(cmd *cobra.Command, args []string, acknowledge bool) (tracker.Report, error) {
	s, err := newSession(cmd, args)
	if err != nil {
		return tracker.Report{}, err
	}
	defer s.Close()

	proj, err := project.OpenSession(s.root)
	if err != nil {
		return tracker.Report{}, err
	}

	tr := tracker.New(s.root, proj, s.scanFunc(proj), tracker.Options{
		Listener: consoleListener{console: s.console},
		Logger:   s.log,
	})

	report, err := tr.Check()
	if err != nil {
		return report, fmt.Errorf("check %s: %w", s.root, err)
	}

	switch {
	case report.Seeded:
		known, _ := proj.KnownFiles()
		s.console.LogInfo(fmt.Sprintf("Recorded %d known files", len(known)))
	case len(report.NewFiles) == 0 && len(report.Deleted) == 0:
		s.console.LogInfo("No changes since the last acknowledgement")
	}

	if acknowledge {
		acked, err := tr.Acknowledge()
		if err != nil {
			return report, err
		}
		s.console.LogInfo(fmt.Sprintf("Acknowledged %d new file(s)", len(acked)))
	}
	return report, nil
}
