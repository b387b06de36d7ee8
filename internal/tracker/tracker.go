// Package tracker detects files that appeared in or vanished from a project
// since they were last acknowledged.
//
// A Tracker compares each scan against the project's persisted known-file
// set. Deleted files are dropped from the known set and the selection in one
// save. New files are held in a pending list until the caller acknowledges
// them. Rescans are driven by an injected Scheduler so tests can fire ticks
// by hand.
package tracker

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harrison/promptsync/internal/fileutil"
)

// State is the tracker's scheduling state.
type State int

const (
	// Idle means no rescan is pending.
	Idle State = iota
	// Scheduled means a rescan will run after the interval.
	Scheduled
	// Scanning means a scan is in flight.
	Scanning
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Scanning:
		return "scanning"
	default:
		return "unknown"
	}
}

// ScanFunc returns the project's current files. An error wrapping
// fileutil.ErrRootMissing means the project directory is gone.
type ScanFunc func() ([]string, error)

// ProjectState is the persisted state the tracker reads and mutates.
type ProjectState interface {
	// KnownFiles returns the known set and whether it was ever seeded.
	KnownFiles() ([]string, bool)
	ReplaceKnownFiles(files []string)
	// Deselect drops paths from the selection, invalidating cached
	// aggregates, and reports whether the selection changed.
	Deselect(paths ...string) bool
	Save() error
}

// Listener receives tracker notifications on the scheduler's goroutine.
type Listener interface {
	// NewFiles is called when the pending list changes.
	NewFiles(paths []string)
	// DeletedFiles is called after deleted files were dropped and saved.
	DeletedFiles(paths []string)
	// DirectoryMissing is called when the project root disappeared. The
	// tracker is Idle afterwards.
	DirectoryMissing(root string)
}

// Report is the outcome of one check.
type Report struct {
	NewFiles []string // Pending files, not yet acknowledged
	Deleted  []string // Files removed from the known set by this check
	Seeded   bool     // The known set was seeded by this check
}

// Options configures a Tracker
type Options struct {
	Interval  time.Duration // Rescan interval; <= 0 disables periodic checks
	Scheduler Scheduler
	Listener  Listener
	Logger    *zap.Logger
}

// Tracker owns the pending new-file list and the rescan timer for one
// project. Its methods must be called from the scheduler's goroutine.
type Tracker struct {
	root    string
	project ProjectState
	scan    ScanFunc
	opts    Options
	logger  *zap.Logger

	state   State
	active  bool
	timer   Timer
	pending []string

	// generation is bumped whenever the timer is replaced or stopped. A
	// callback carrying an older value was already queued and is dropped.
	generation uint64
}

// New creates an idle tracker.
func New(root string, project ProjectState, scan ScanFunc, opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		root:    root,
		project: project,
		scan:    scan,
		opts:    opts,
		logger:  logger,
	}
}

// State returns the current scheduling state.
func (t *Tracker) State() State {
	return t.state
}

// Pending returns a copy of the unacknowledged new files.
func (t *Tracker) Pending() []string {
	return append([]string(nil), t.pending...)
}

// Activate runs one scan immediately and schedules the next one.
func (t *Tracker) Activate() {
	t.active = true
	t.tick()
}

// Deactivate cancels the pending rescan. A scan already in flight finishes,
// but nothing is scheduled after it.
func (t *Tracker) Deactivate() {
	t.active = false
	t.stopTimer()
	t.state = Idle
	t.pending = nil
}

// Rescan checks immediately and restarts the interval. It is a no-op while
// the tracker is not active.
func (t *Tracker) Rescan() {
	if !t.active {
		return
	}
	t.stopTimer()
	t.tick()
}

// Acknowledge merges the pending files into the known set, saves, and
// clears the pending list. It returns the acknowledged files.
func (t *Tracker) Acknowledge() ([]string, error) {
	if len(t.pending) == 0 {
		return nil, nil
	}

	known, _ := t.project.KnownFiles()
	t.project.ReplaceKnownFiles(union(known, t.pending))
	if err := t.project.Save(); err != nil {
		return nil, fmt.Errorf("failed to save acknowledged files: %w", err)
	}

	acked := t.pending
	t.pending = nil
	t.logger.Info("Acknowledged new files", zap.Int("count", len(acked)))
	return acked, nil
}

func (t *Tracker) tick() {
	t.state = Scanning
	report, err := t.Check()

	if errors.Is(err, fileutil.ErrRootMissing) {
		t.active = false
		t.state = Idle
		t.pending = nil
		t.logger.Warn("Project directory missing", zap.String("root", t.root))
		if t.opts.Listener != nil {
			t.opts.Listener.DirectoryMissing(t.root)
		}
		return
	}
	if err != nil {
		t.logger.Warn("Check failed", zap.String("root", t.root), zap.Error(err))
	} else {
		t.logger.Debug("Check complete",
			zap.Int("pending", len(report.NewFiles)),
			zap.Int("deleted", len(report.Deleted)))
	}

	t.schedule()
}

func (t *Tracker) schedule() {
	if !t.active || t.opts.Interval <= 0 || t.opts.Scheduler == nil {
		t.state = Idle
		return
	}
	t.stopTimer()
	gen := t.generation
	t.timer = t.opts.Scheduler.AfterFunc(t.opts.Interval, func() {
		if t.active && gen == t.generation {
			t.tick()
		}
	})
	t.state = Scheduled
}

func (t *Tracker) stopTimer() {
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Check scans once and applies the diff without touching the schedule. An
// unseeded project is seeded from this scan and reports nothing.
func (t *Tracker) Check() (Report, error) {
	files, err := t.scan()
	if err != nil {
		return Report{}, err
	}

	known, seeded := t.project.KnownFiles()
	if !seeded {
		t.project.ReplaceKnownFiles(files)
		if err := t.project.Save(); err != nil {
			return Report{}, fmt.Errorf("failed to seed known files: %w", err)
		}
		t.pending = nil
		t.logger.Info("Seeded known files", zap.Int("count", len(files)))
		return Report{Seeded: true}, nil
	}

	newFiles, deleted := Diff(known, files)

	if len(deleted) > 0 {
		t.project.ReplaceKnownFiles(subtract(known, deleted))
		t.project.Deselect(deleted...)
		if err := t.project.Save(); err != nil {
			return Report{}, fmt.Errorf("failed to save deleted files: %w", err)
		}
		if t.opts.Listener != nil {
			t.opts.Listener.DeletedFiles(deleted)
		}
	}

	if !sameSet(t.pending, newFiles) {
		t.pending = newFiles
		if t.opts.Listener != nil {
			t.opts.Listener.NewFiles(t.Pending())
		}
	}

	return Report{NewFiles: t.Pending(), Deleted: deleted}, nil
}

// Diff returns the scanned paths missing from known, in scan order, and the
// known paths missing from scanned, in known order.
func Diff(known, scanned []string) (newFiles, deleted []string) {
	knownSet := toSet(known)
	scannedSet := toSet(scanned)

	for _, p := range scanned {
		if !knownSet[p] {
			newFiles = append(newFiles, p)
			knownSet[p] = true
		}
	}
	for _, p := range known {
		if !scannedSet[p] {
			deleted = append(deleted, p)
			scannedSet[p] = true
		}
	}
	return newFiles, deleted
}

func toSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := toSet(a)
	for _, p := range b {
		if !set[p] {
			return false
		}
	}
	return true
}

func subtract(known, removed []string) []string {
	drop := toSet(removed)
	out := make([]string, 0, len(known))
	for _, p := range known {
		if !drop[p] {
			out = append(out, p)
		}
	}
	return out
}

func union(known, added []string) []string {
	out := append([]string{}, known...)
	set := toSet(known)
	for _, p := range added {
		if !set[p] {
			out = append(out, p)
			set[p] = true
		}
	}
	return out
}
