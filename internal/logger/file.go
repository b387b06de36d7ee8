package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LatestLinkName is the symlink pointing at the most recent run log.
const LatestLinkName = "latest.log"

// FileLogger writes structured JSON diagnostics to a timestamped run log
// file in a log directory and keeps a latest.log symlink pointing at it.
type FileLogger struct {
	logger  *zap.Logger
	runLog  *os.File
	runFile string
}

// NewFileLogger creates the log directory if needed, opens
// run-YYYYMMDD-HHMMSS.log inside it and repoints latest.log.
// Records below level (debug, info, warn, error) are dropped; an invalid
// level falls back to info.
func NewFileLogger(logDir string, level string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, LatestLinkName)
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(file),
		ParseLevel(level),
	)

	return &FileLogger{
		logger:  zap.New(core).With(zap.Int("pid", os.Getpid())),
		runLog:  file,
		runFile: runFile,
	}, nil
}

// ParseLevel maps a config log level to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch normalizeLogLevel(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger returns the zap logger writing to the run log.
func (fl *FileLogger) Logger() *zap.Logger {
	return fl.logger
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// Close flushes buffered records and closes the run log.
func (fl *FileLogger) Close() error {
	if fl.runLog == nil {
		return nil
	}
	// Sync on a closed or special file can fail spuriously; Close reports
	// the error that matters.
	_ = fl.logger.Sync()
	err := fl.runLog.Close()
	fl.runLog = nil
	return err
}
