package models

// ExecutionResult represents the outcome of writing a change plan to disk
type ExecutionResult struct {
	Success bool     // True when every file was written
	Message string   // Human-readable outcome, names the failed file on error
	Written []string // Root-relative paths written, in write order
	Failed  string   // Root-relative path of the write that failed, if any
}
