// Package logger provides the user-facing console logger and the per-run
// diagnostic log file.
//
// ConsoleLogger prints timestamped, level-filtered progress lines for scans,
// tracker notifications, change plans and their application. FileLogger
// writes structured zap records to a timestamped run log.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/promptsync/internal/models"
)

// Log level constants for filtering
const (
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// maxListed caps the number of paths printed per notification.
const maxListed = 20

// ConsoleLogger logs progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// color.NoColor is true when NO_COLOR is set or the fd is not a TTY
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func logLevelToInt(level string) int {
	switch level {
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	label := level
	if cl.colorOutput {
		label = levelColor(level).Sprint(level)
	}
	cl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), label, message))
}

func levelColor(level string) *color.Color {
	switch level {
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

func (cl *ConsoleLogger) write(output string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.writer.Write([]byte(output))
}

func (cl *ConsoleLogger) paint(attr color.Attribute, s string) string {
	if !cl.colorOutput {
		return s
	}
	return color.New(attr).Sprint(s)
}

// LogScan logs the outcome of a directory scan at INFO level, with each
// recovered entry error at WARN level.
// Format: "[HH:MM:SS] Scanned <root>: <n> files"
func (cl *ConsoleLogger) LogScan(root string, files int, errs []error) {
	if cl.writer == nil {
		return
	}
	if cl.shouldLog("info") {
		suffix := ""
		if len(errs) > 0 {
			suffix = fmt.Sprintf(" (%s)", cl.paint(color.FgYellow, fmt.Sprintf("%d skipped", len(errs))))
		}
		cl.write(fmt.Sprintf("[%s] Scanned %s: %d files%s\n", timestamp(), cl.paint(color.Bold, root), files, suffix))
	}
	for _, err := range errs {
		cl.LogWarn(err.Error())
	}
}

// LogNewFiles logs files that appeared since the last acknowledgement.
// Format: "[HH:MM:SS] <n> new file(s) awaiting acknowledgement"
func (cl *ConsoleLogger) LogNewFiles(paths []string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}
	if len(paths) == 0 {
		cl.write(fmt.Sprintf("[%s] No new files\n", timestamp()))
		return
	}
	header := fmt.Sprintf("%d new file(s) awaiting acknowledgement", len(paths))
	cl.write(fmt.Sprintf("[%s] %s\n%s", timestamp(), cl.paint(color.FgGreen, header), cl.list("+", paths)))
}

// LogDeletedFiles logs files that were dropped from the known set.
// Format: "[HH:MM:SS] <n> file(s) deleted"
func (cl *ConsoleLogger) LogDeletedFiles(paths []string) {
	if cl.writer == nil || !cl.shouldLog("info") || len(paths) == 0 {
		return
	}
	header := fmt.Sprintf("%d file(s) deleted", len(paths))
	cl.write(fmt.Sprintf("[%s] %s\n%s", timestamp(), cl.paint(color.FgRed, header), cl.list("-", paths)))
}

// LogDirectoryMissing logs that the project root vanished at ERROR level.
func (cl *ConsoleLogger) LogDirectoryMissing(root string) {
	cl.LogError(fmt.Sprintf("Project directory %s no longer exists; tracking stopped", root))
}

// LogPlan logs a change plan summary and the affected paths at INFO level.
// Error plans are logged at ERROR level.
func (cl *ConsoleLogger) LogPlan(plan models.ChangePlan) {
	if cl.writer == nil {
		return
	}
	if plan.Status == models.PlanError {
		cl.LogError("Change plan rejected: " + plan.Message)
		return
	}
	if !cl.shouldLog("info") {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", timestamp(), cl.paint(color.Bold, "Change plan: "+plan.Message))
	b.WriteString(cl.list("~", plan.UpdatePaths()))
	b.WriteString(cl.list("+", plan.CreationPaths()))
	for _, skipped := range plan.Skipped {
		fmt.Fprintf(&b, "    %s %s\n", cl.paint(color.FgYellow, "!"), skipped)
	}
	cl.write(b.String())
}

// LogExecution logs the result of applying a plan.
// Success is logged at INFO level, failure at ERROR level.
func (cl *ConsoleLogger) LogExecution(result models.ExecutionResult) {
	if cl.writer == nil {
		return
	}
	if !result.Success {
		cl.LogError("Apply failed: " + result.Message)
		return
	}
	if !cl.shouldLog("info") {
		return
	}
	cl.write(fmt.Sprintf("[%s] %s\n", timestamp(), cl.paint(color.FgGreen, "Applied: "+result.Message)))
}

func (cl *ConsoleLogger) list(marker string, paths []string) string {
	var b strings.Builder
	for i, p := range paths {
		if i == maxListed {
			fmt.Fprintf(&b, "    ... and %d more\n", len(paths)-maxListed)
			break
		}
		fmt.Fprintf(&b, "    %s %s\n", marker, p)
	}
	return b.String()
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}
