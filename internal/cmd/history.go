package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/promptsync/internal/history"
)

// NewHistoryCommand creates the 'promptsync history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "List change plans applied to the project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().IntP("limit", "n", 10, "Number of entries to show (0 for all)")
	cmd.Flags().Bool("all", false, "Show applications of every project")
	cmd.Flags().BoolP("verbose", "v", false, "List the files of each application")
	cmd.Flags().Duration("prune", 0, "Delete entries older than this duration before listing")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	all, _ := cmd.Flags().GetBool("all")
	verbose, _ := cmd.Flags().GetBool("verbose")
	prune, _ := cmd.Flags().GetDuration("prune")

	dbPath, err := s.cfg.ResolveHistoryDB()
	if err != nil {
		return err
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if prune > 0 {
		removed, err := store.Prune(cmd.Context(), time.Now().Add(-prune))
		if err != nil {
			return err
		}
		s.console.LogInfo(fmt.Sprintf("Pruned %d entries older than %s", removed, prune))
	}

	root := s.root
	if all {
		root = ""
	}
	apps, err := store.Recent(cmd.Context(), root, limit)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		s.console.LogInfo("No applications recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if all {
		fmt.Fprintln(w, "APPLIED\tRESULT\tFILES\tROOT\tMESSAGE")
	} else {
		fmt.Fprintln(w, "APPLIED\tRESULT\tFILES\tMESSAGE")
	}
	for _, app := range apps {
		result := "ok"
		if !app.Success {
			result = "failed"
		}
		applied := app.AppliedAt.Local().Format("2006-01-02 15:04:05")
		files := fmt.Sprintf("%d/%d", app.Written(), len(app.Files))
		if all {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", applied, result, files, app.Root, app.Message)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", applied, result, files, app.Message)
		}
		if verbose {
			for _, f := range app.Files {
				marker := "~"
				if f.Action == history.ActionCreate {
					marker = "+"
				}
				if !f.Written {
					marker = "!"
				}
				fmt.Fprintf(w, "\t%s %s\n", marker, f.Path)
			}
		}
	}
	return w.Flush()
}
