package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrison/promptsync/internal/display"
	"github.com/harrison/promptsync/internal/fileutil"
	"github.com/harrison/promptsync/internal/ignore"
	"github.com/harrison/promptsync/internal/project"
	"github.com/harrison/promptsync/internal/tracker"
)

// NewWatchCommand creates the 'promptsync watch' command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Keep checking a project for new and deleted files",
		Long: `Check the project immediately and then every --interval until interrupted.

With --fs-events, filesystem notifications trigger an extra check as soon as
files are created, removed or renamed. On an interactive terminal, typing
"a" and Enter acknowledges the pending new files.

Watching stops when the project directory disappears.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
	cmd.Flags().Duration("interval", 0, "Check interval (default from config, 0 in config disables periodic checks)")
	cmd.Flags().Bool("fs-events", false, "Rescan on filesystem events in addition to the interval")
	return cmd
}

// watchListener stops the session when the project directory vanishes.
type watchListener struct {
	consoleListener
	cancel context.CancelFunc
}

func (l watchListener) DirectoryMissing(root string) {
	l.consoleListener.DirectoryMissing(root)
	l.cancel()
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	defer s.Close()

	proj, err := project.OpenSession(s.root)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := tracker.NewLoopScheduler()
	tr := tracker.New(s.root, proj, s.scanFunc(proj), tracker.Options{
		Interval:  s.cfg.CheckInterval,
		Scheduler: sched,
		Listener:  watchListener{consoleListener: consoleListener{console: s.console}, cancel: cancel},
		Logger:    s.log,
	})

	if fsEvents, _ := cmd.Flags().GetBool("fs-events"); fsEvents {
		watcher, err := tracker.NewWatcher(s.root, s.skipFunc(), s.log)
		if err != nil {
			return fmt.Errorf("start filesystem watcher: %w", err)
		}
		defer watcher.Close()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-watcher.Changes():
					sched.Nudge(tr.Rescan)
				case err := <-watcher.Errors():
					s.log.Warn("Filesystem watcher error", zap.Error(err))
				}
			}
		}()
	}

	if display.Interactive(os.Stdin) {
		go readAcknowledgements(ctx, sched, func() {
			acked, err := tr.Acknowledge()
			if err != nil {
				s.console.LogError(err.Error())
				return
			}
			s.console.LogInfo(fmt.Sprintf("Acknowledged %d new file(s)", len(acked)))
		})
	}

	s.console.LogInfo(fmt.Sprintf("Watching %s every %s (Ctrl+C to stop)", s.root, s.cfg.CheckInterval))
	sched.Post(tr.Activate)

	err = sched.Run(ctx)
	tr.Deactivate()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.console.LogInfo("Stopped watching")
		return nil
	}
	return err
}

// readAcknowledgements posts ack onto the loop for every "a" line on stdin.
func readAcknowledgements(ctx context.Context, sched *tracker.LoopScheduler, ack func()) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if strings.EqualFold(strings.TrimSpace(scanner.Text()), "a") {
			sched.Post(ack)
		}
	}
}

// skipFunc excludes special names and ignored paths from filesystem watching.
// Rules are discovered once when the watch starts.
func (s *session) skipFunc() tracker.SkipFunc {
	sets, _ := ignore.Discover(s.root, s.cfg.IgnoreFiles, s.log)

	special := s.cfg.SpecialNames
	if special == nil {
		special = fileutil.DefaultSpecialNames
	}
	names := make(map[string]bool, len(special))
	for _, name := range special {
		names[name] = true
	}

	return func(rel string, isDir bool) bool {
		if names[path.Base(rel)] {
			return true
		}
		return ignore.IsIgnored(rel, isDir, sets)
	}
}
