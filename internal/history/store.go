// Package history records every change plan applied to a project in a
// SQLite database, so past applications can be listed per project root.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/promptsync/internal/models"
)

// Action describes what an application did to one file
type Action string

// Action constants
const (
	ActionUpdate Action = "update"
	ActionCreate Action = "create"
)

// FileAction is the outcome of one file of an application
type FileAction struct {
	Path    string // Root-relative, forward-slash path
	Action  Action
	Written bool
}

// Application is one recorded execution of a change plan
type Application struct {
	ID        string
	Root      string
	AppliedAt time.Time
	Status    models.PlanStatus
	Success   bool
	Message   string
	Files     []FileAction
}

// Written returns the number of files written by the application
func (a *Application) Written() int {
	n := 0
	for _, f := range a.Files {
		if f.Written {
			n++
		}
	}
	return n
}

// NewApplication builds a record from a plan and its execution result.
// Files are listed in path order, updates and creations interleaved.
func NewApplication(plan models.ChangePlan, result models.ExecutionResult) *Application {
	written := make(map[string]bool, len(result.Written))
	for _, p := range result.Written {
		written[p] = true
	}

	var files []FileAction
	for _, p := range plan.UpdatePaths() {
		files = append(files, FileAction{Path: p, Action: ActionUpdate, Written: written[p]})
	}
	for _, p := range plan.CreationPaths() {
		files = append(files, FileAction{Path: p, Action: ActionCreate, Written: written[p]})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return &Application{
		ID:        uuid.NewString(),
		Root:      plan.Root,
		AppliedAt: time.Now().UTC(),
		Status:    plan.Status,
		Success:   result.Success,
		Message:   result.Message,
		Files:     files,
	}
}

// Store manages the SQLite application history
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens or creates the database at dbPath and applies migrations
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts an application and its file actions. An empty ID is
// replaced with a new UUID and a zero AppliedAt with the current time.
func (s *Store) Record(ctx context.Context, app *Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO applications (id, root, applied_at, status, success, message) VALUES (?, ?, ?, ?, ?, ?)`,
		app.ID, app.Root, app.AppliedAt.UTC(), string(app.Status), app.Success, app.Message)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}

	for _, f := range app.Files {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO application_files (application_id, path, action, written) VALUES (?, ?, ?, ?)`,
			app.ID, f.Path, string(f.Action), f.Written)
		if err != nil {
			return fmt.Errorf("insert application file %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit application: %w", err)
	}
	return nil
}

// Recent returns up to limit applications, newest first. An empty root
// lists every project; limit <= 0 means no limit.
func (s *Store) Recent(ctx context.Context, root string, limit int) ([]*Application, error) {
	query := `SELECT id, root, applied_at, status, success, message FROM applications`
	var args []interface{}
	if root != "" {
		query += ` WHERE root = ?`
		args = append(args, root)
	}
	query += ` ORDER BY applied_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}

	var apps []*Application
	for rows.Next() {
		app := &Application{}
		var status string
		var message sql.NullString
		if err := rows.Scan(&app.ID, &app.Root, &app.AppliedAt, &status, &app.Success, &message); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan application: %w", err)
		}
		app.Status = models.PlanStatus(status)
		app.Message = message.String
		apps = append(apps, app)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}

	// Files are loaded after the cursor is closed; the pool holds one connection.
	for _, app := range apps {
		files, err := s.files(ctx, app.ID)
		if err != nil {
			return nil, err
		}
		app.Files = files
	}
	return apps, nil
}

func (s *Store) files(ctx context.Context, id string) ([]FileAction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, action, written FROM application_files WHERE application_id = ? ORDER BY path ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query application files: %w", err)
	}
	defer rows.Close()

	var files []FileAction
	for rows.Next() {
		var f FileAction
		var action string
		if err := rows.Scan(&f.Path, &action, &f.Written); err != nil {
			return nil, fmt.Errorf("scan application file: %w", err)
		}
		f.Action = Action(action)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate application files: %w", err)
	}
	return files, nil
}

// Prune deletes applications recorded before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE applied_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old applications: %w", err)
	}
	return result.RowsAffected()
}
