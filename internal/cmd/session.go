package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrison/promptsync/internal/config"
	"github.com/harrison/promptsync/internal/fileutil"
	"github.com/harrison/promptsync/internal/ignore"
	"github.com/harrison/promptsync/internal/logger"
	"github.com/harrison/promptsync/internal/project"
)

// session bundles what every command needs: the resolved project root, the
// merged configuration, and both loggers.
type session struct {
	root    string
	cfg     *config.Config
	console *logger.ConsoleLogger
	log     *zap.Logger
	fileLog *logger.FileLogger
}

// newSession resolves the project root from args (first positional wins
// over --dir), loads configuration and opens the run log.
func newSession(cmd *cobra.Command, args []string) (*session, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return nil, err
	}

	s := &session{
		root:    root,
		cfg:     cfg,
		console: logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel),
		log:     zap.NewNop(),
	}

	if logDir := cfg.ResolveLogDir(root); logDir != "" {
		fileLog, err := logger.NewFileLogger(logDir, cfg.LogLevel)
		if err != nil {
			// Diagnostics are optional; the command still runs.
			s.console.LogWarn(fmt.Sprintf("Run log disabled: %v", err))
		} else {
			s.fileLog = fileLog
			s.log = fileLog.Logger().With(zap.String("command", cmd.Name()), zap.String("root", root))
		}
	}

	return s, nil
}

func loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(root)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var logLevel, logDir *string
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevel = &v
	}
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		logDir = &v
	}
	var interval *time.Duration
	if cmd.Flags().Lookup("interval") != nil && cmd.Flags().Changed("interval") {
		v, _ := cmd.Flags().GetDuration("interval")
		interval = &v
	}
	cfg.MergeWithFlags(interval, logLevel, logDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Close flushes the run log.
func (s *session) Close() {
	if s.fileLog != nil {
		s.fileLog.Close()
	}
}

// scan discovers ignore rules and scans the project. Selected files are
// always included so an ignore rule never reports them as deleted.
func (s *session) scan(selected []string) (*fileutil.ScanResult, error) {
	sets, discoverErrs := ignore.Discover(s.root, s.cfg.IgnoreFiles, s.log)

	result, err := fileutil.ScanDirectory(s.root, fileutil.ScanOptions{
		Extensions:    s.cfg.Extensions,
		RuleSets:      sets,
		AlwaysInclude: selected,
		SpecialNames:  s.cfg.SpecialNames,
		Logger:        s.log,
	})
	if err != nil {
		return nil, err
	}
	result.Errors = append(discoverErrs, result.Errors...)
	return result, nil
}

// scanFunc adapts scan for the tracker. The selection is re-read from the
// descriptor on every scan.
func (s *session) scanFunc(proj *project.Session) func() ([]string, error) {
	return func() ([]string, error) {
		result, err := s.scan(proj.Selected())
		if err != nil {
			return nil, err
		}
		for _, scanErr := range result.Errors {
			s.log.Warn("Scan entry error", zap.Error(scanErr))
		}
		return result.Files, nil
	}
}
