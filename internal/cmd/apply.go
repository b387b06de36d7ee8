package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrison/promptsync/internal/display"
	"github.com/harrison/promptsync/internal/executor"
	"github.com/harrison/promptsync/internal/history"
	"github.com/harrison/promptsync/internal/models"
	"github.com/harrison/promptsync/internal/planner"
	"github.com/harrison/promptsync/internal/project"
	"github.com/harrison/promptsync/internal/source"
)

// NewApplyCommand creates the 'promptsync apply' command
func NewApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Apply the code blocks of a model answer to the project",
		Long: `Apply reads a markdown document, pairs every fenced code block with the
file path that introduces it, and writes the blocks into the project.

The document is read from [file] ("-" for stdin), otherwise from piped
stdin, otherwise from the system clipboard.

Existing files are overwritten without asking. Creating new files requires
confirmation, either interactively or with --yes. Nothing is written when
the document contains no usable block.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runApply,
	}
	cmd.Flags().BoolP("yes", "y", false, "Create new files without asking")
	cmd.Flags().Bool("dry-run", false, "Show the change plan without writing anything")
	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	yes, _ := cmd.Flags().GetBool("yes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	provider := source.New()
	in := cmd.InOrStdin()
	if _, isFile := in.(*os.File); !isFile {
		provider.Stdin = in
		provider.StdinPiped = func() bool { return true }
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	content, kind, err := provider.Read(path)
	if err != nil {
		return err
	}
	s.log.Info("Read change document", zap.String("source", string(kind)), zap.Int("bytes", len(content)))

	plan, err := planner.PlanDocument(s.root, content)
	if err != nil {
		return fmt.Errorf("plan changes: %w", err)
	}
	s.console.LogPlan(plan)
	if len(plan.Skipped) > 0 {
		display.WarnSkipped(plan.Skipped).Display(cmd.ErrOrStderr())
	}
	if plan.Status == models.PlanError {
		return fmt.Errorf("nothing to apply: %s", plan.Message)
	}
	if dryRun {
		s.console.LogInfo("Dry run, nothing written")
		return nil
	}

	if plan.Status == models.PlanConfirmationRequired {
		display.WarnCreations(plan).Display(cmd.ErrOrStderr())
		confirmed, err := confirmCreations(cmd, plan, yes, kind)
		if err != nil {
			return err
		}
		if !confirmed {
			s.console.LogWarn("Creation not confirmed, nothing written")
			return nil
		}
		plan.Confirm()
	}

	result := executor.Execute(plan,
		executor.WithMarkdownExtensions(s.cfg.MarkdownExtensions),
		executor.WithLogger(s.log))
	s.console.LogExecution(result)

	s.refreshSelection(result.Written)
	s.record(cmd.Context(), plan, result)

	if !result.Success {
		return fmt.Errorf("apply failed: %s", result.Message)
	}
	return nil
}

// confirmCreations asks before new files are created. It declines when no
// one can answer: the document itself came from stdin, or stdin is not a
// terminal.
func confirmCreations(cmd *cobra.Command, plan models.ChangePlan, yes bool, kind source.Kind) (bool, error) {
	if yes {
		return true, nil
	}
	in := cmd.InOrStdin()
	if kind == source.KindStdin {
		return false, nil
	}
	if f, ok := in.(*os.File); ok && !display.Interactive(f) {
		return false, nil
	}
	return display.Confirm(in, cmd.ErrOrStderr(), fmt.Sprintf("Create %d new file(s)?", len(plan.Creations)))
}

// refreshSelection updates cached metadata of selected files that were
// just overwritten.
func (s *session) refreshSelection(written []string) {
	if len(written) == 0 {
		return
	}
	_, err := project.Update(s.root, func(p *project.Project) error {
		for _, rel := range written {
			if _, ok := p.Metadata(rel); !ok {
				continue
			}
			if _, err := p.RefreshMetadata(rel); err != nil {
				s.log.Warn("Failed to refresh metadata", zap.String("path", rel), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("Failed to update project after apply", zap.Error(err))
	}
}

// record stores the application in the history database. History is
// best-effort; a failure is reported but does not fail the command.
func (s *session) record(ctx context.Context, plan models.ChangePlan, result models.ExecutionResult) {
	dbPath, err := s.cfg.ResolveHistoryDB()
	if err != nil {
		s.console.LogWarn(fmt.Sprintf("History not recorded: %v", err))
		return
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		s.console.LogWarn(fmt.Sprintf("History not recorded: %v", err))
		return
	}
	defer store.Close()

	app := history.NewApplication(plan, result)
	if err := store.Record(ctx, app); err != nil {
		s.console.LogWarn(fmt.Sprintf("History not recorded: %v", err))
		return
	}
	s.log.Debug("Recorded application", zap.String("id", app.ID))
}

