package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/promptsync/internal/project"
)

// testProject creates a project root with files and isolates the
// promptsync home directory.
func testProject(t *testing.T, files map[string]string) string {
	t.Helper()
	t.Setenv("PROMPTSYNC_HOME", t.TempDir())

	root := t.TempDir()
	for rel, content := range files {
		writeProjectFile(t, root, rel, content)
	}
	return root
}

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readProjectFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

type invocation struct {
	stdin string
	ctx   context.Context
}

// run executes the root command against root and returns stdout and stderr.
func run(t *testing.T, root string, inv invocation, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if inv.stdin != "" {
		cmd.SetIn(strings.NewReader(inv.stdin))
	}

	full := append([]string{}, args...)
	full = append(full, "--dir", root, "--log-dir", t.TempDir())
	cmd.SetArgs(full)

	ctx := inv.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestScanCommand(t *testing.T) {
	root := testProject(t, map[string]string{
		"main.go":       "package main\n",
		"sub/notes.txt": "notes\n",
		"debug.log":     "noise\n",
		".gitignore":    "*.log\n",
	})

	out, _, err := run(t, root, invocation{}, "scan", "--quiet")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines, "main.go")
	assert.Contains(t, lines, "sub/notes.txt")
	assert.NotContains(t, lines, "debug.log")

	out, _, err = run(t, root, invocation{}, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "Scanned "+root)
}

func TestScanMissingRoot(t *testing.T) {
	t.Setenv("PROMPTSYNC_HOME", t.TempDir())
	_, _, err := run(t, filepath.Join(t.TempDir(), "missing"), invocation{}, "scan")
	assert.Error(t, err)
}

func TestStatusAndAck(t *testing.T) {
	root := testProject(t, map[string]string{"a.go": "a", "b.go": "b"})

	out, _, err := run(t, root, invocation{}, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 2 known files")

	writeProjectFile(t, root, "c.go", "c")
	out, _, err = run(t, root, invocation{}, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "1 new file(s) awaiting acknowledgement")
	assert.Contains(t, out, "+ c.go")

	// status never acknowledges
	out, _, err = run(t, root, invocation{}, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "+ c.go")

	out, _, err = run(t, root, invocation{}, "ack")
	require.NoError(t, err)
	assert.Contains(t, out, "Acknowledged 1 new file(s)")

	out, _, err = run(t, root, invocation{}, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes since the last acknowledgement")

	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))
	out, _, err = run(t, root, invocation{}, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "1 file(s) deleted")
	assert.Contains(t, out, "- a.go")

	proj, err := project.Open(root)
	require.NoError(t, err)
	known, _ := proj.KnownFiles()
	assert.ElementsMatch(t, []string{"b.go", "c.go"}, known)
}

func TestDeletedSelectedFileIsDeselected(t *testing.T) {
	root := testProject(t, map[string]string{"a.go": "a", "b.go": "b"})

	_, _, err := run(t, root, invocation{}, "select", "add", "a.go", "b.go")
	require.NoError(t, err)
	_, _, err = run(t, root, invocation{}, "status")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))
	_, _, err = run(t, root, invocation{}, "status")
	require.NoError(t, err)

	proj, err := project.Open(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go"}, proj.Selected())
}

func TestSelectCommands(t *testing.T) {
	root := testProject(t, map[string]string{"a.go": "one\ntwo\n", "lib/b.go": "b\n"})

	out, _, err := run(t, root, invocation{}, "select", "add", "a.go", "lib/b.go")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected 2 file(s), 2 in total")

	out, _, err = run(t, root, invocation{}, "select", "add", "a.go")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected 0 file(s), 2 in total")

	out, _, err = run(t, root, invocation{}, "select", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "a.go")
	assert.Contains(t, out, "lib/b.go")

	out, _, err = run(t, root, invocation{}, "select", "remove", "a.go")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 file(s), 1 remaining")

	out, _, err = run(t, root, invocation{}, "select", "remove", "a.go")
	require.NoError(t, err)
	assert.Contains(t, out, "Selection unchanged")

	_, _, err = run(t, root, invocation{}, "select", "add", "missing.go")
	assert.Error(t, err)

	proj, err := project.Open(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/b.go"}, proj.Selected())
}

func TestSelectListEmpty(t *testing.T) {
	root := testProject(t, nil)

	out, _, err := run(t, root, invocation{}, "select", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No files selected")
}

func TestComposeCommand(t *testing.T) {
	root := testProject(t, map[string]string{"a.go": "package a\n", "lib/b.py": "print(1)\n"})

	_, _, err := run(t, root, invocation{}, "compose")
	assert.Error(t, err)

	_, _, err = run(t, root, invocation{}, "select", "add", "a.go", "lib/b.py")
	require.NoError(t, err)

	out, _, err := run(t, root, invocation{}, "compose", "--header", "Context")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Context\n"))
	assert.Contains(t, out, "File: `./a.go`\n\n```go\npackage a\n```\n")
	assert.Contains(t, out, "File: `lib/b.py`\n\n```python\nprint(1)\n```\n")

	outFile := filepath.Join(t.TempDir(), "prompt.md")
	out, _, err = run(t, root, invocation{}, "compose", "--out", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 file(s), 2 lines to "+outFile)
	assert.Contains(t, readProjectFile(t, filepath.Dir(outFile), "prompt.md"), "# Project files")
}

func TestComposeWarnsAboutUnreadableFiles(t *testing.T) {
	root := testProject(t, map[string]string{"a.go": "a\n", "b.go": "b\n"})

	_, _, err := run(t, root, invocation{}, "select", "add", "a.go", "b.go")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))

	out, stderr, err := run(t, root, invocation{}, "compose")
	require.NoError(t, err)
	assert.Contains(t, out, "./a.go")
	assert.NotContains(t, out, "./b.go")
	assert.Contains(t, stderr, "could not be read")
	assert.Contains(t, stderr, "b.go")
}

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answer.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestApplyUpdatesExistingFiles(t *testing.T) {
	root := testProject(t, map[string]string{"main.go": "package old\n"})
	doc := writeDocument(t, "Here is the fix.\n\nFile: `./main.go`\n\n```go\npackage main   \n\n\n\nfunc main() {}\n```\n")

	out, _, err := run(t, root, invocation{}, "apply", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "~ main.go")
	assert.Contains(t, out, "Applied: wrote 1 file(s)")
	assert.Equal(t, "package main\n\nfunc main() {}\n", readProjectFile(t, root, "main.go"))

	out, _, err = run(t, root, invocation{}, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "1/1")
}

func TestApplyDryRun(t *testing.T) {
	root := testProject(t, map[string]string{"main.go": "old\n"})
	doc := writeDocument(t, "`./main.go`\n```go\nnew\n```\n")

	out, _, err := run(t, root, invocation{}, "apply", "--dry-run", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run")
	assert.Equal(t, "old\n", readProjectFile(t, root, "main.go"))
}

func TestApplyCreationNeedsConfirmation(t *testing.T) {
	doc := "New helper in `pkg/util.go`:\n\n```go\npackage pkg\n```\n"

	t.Run("declined", func(t *testing.T) {
		root := testProject(t, nil)
		out, stderr, err := run(t, root, invocation{stdin: "n\n"}, "apply", writeDocument(t, doc))
		require.NoError(t, err)
		assert.Contains(t, stderr, "1 new file(s) will be created")
		assert.Contains(t, stderr, "[y/N]")
		assert.Contains(t, out, "Creation not confirmed")
		assert.NoFileExists(t, filepath.Join(root, "pkg", "util.go"))
	})

	t.Run("confirmed", func(t *testing.T) {
		root := testProject(t, nil)
		_, _, err := run(t, root, invocation{stdin: "yes\n"}, "apply", writeDocument(t, doc))
		require.NoError(t, err)
		assert.Equal(t, "package pkg\n", readProjectFile(t, root, "pkg/util.go"))
	})

	t.Run("yes flag", func(t *testing.T) {
		root := testProject(t, nil)
		_, _, err := run(t, root, invocation{}, "apply", "--yes", writeDocument(t, doc))
		require.NoError(t, err)
		assert.Equal(t, "package pkg\n", readProjectFile(t, root, "pkg/util.go"))
	})

	t.Run("document from stdin cannot confirm", func(t *testing.T) {
		root := testProject(t, nil)
		out, _, err := run(t, root, invocation{stdin: doc}, "apply")
		require.NoError(t, err)
		assert.Contains(t, out, "Creation not confirmed")
		assert.NoFileExists(t, filepath.Join(root, "pkg", "util.go"))
	})
}

func TestApplyWithoutBlocksFails(t *testing.T) {
	root := testProject(t, nil)
	doc := writeDocument(t, "Nothing to change here.\n")

	_, _, err := run(t, root, invocation{}, "apply", doc)
	assert.Error(t, err)

	out, _, err := run(t, root, invocation{}, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No applications recorded")
}

func TestApplyRefreshesSelectedMetadata(t *testing.T) {
	root := testProject(t, map[string]string{"a.txt": "one\n"})
	_, _, err := run(t, root, invocation{}, "select", "add", "a.txt")
	require.NoError(t, err)

	doc := writeDocument(t, "`./a.txt`\n```\none\ntwo\nthree\n```\n")
	_, _, err = run(t, root, invocation{}, "apply", doc)
	require.NoError(t, err)

	proj, err := project.Open(root)
	require.NoError(t, err)
	meta, ok := proj.Metadata("a.txt")
	require.True(t, ok)
	assert.Equal(t, 3, meta.LineCount)
}

func TestHistoryAllProjects(t *testing.T) {
	t.Setenv("PROMPTSYNC_HOME", t.TempDir())
	first := t.TempDir()
	second := t.TempDir()
	writeProjectFile(t, first, "a.txt", "a\n")
	writeProjectFile(t, second, "b.txt", "b\n")

	_, _, err := run(t, first, invocation{}, "apply", writeDocument(t, "`./a.txt`\n```\nA\n```\n"))
	require.NoError(t, err)
	_, _, err = run(t, second, invocation{}, "apply", writeDocument(t, "`./b.txt`\n```\nB\n```\n"))
	require.NoError(t, err)

	out, _, err := run(t, first, invocation{}, "history", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "~ a.txt")
	assert.NotContains(t, out, "b.txt")

	out, _, err = run(t, first, invocation{}, "history", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "ROOT")
	assert.Contains(t, out, first)
	assert.Contains(t, out, second)
}

func TestWatchReportsPendingFiles(t *testing.T) {
	root := testProject(t, map[string]string{"a.go": "a"})

	_, _, err := run(t, root, invocation{}, "status")
	require.NoError(t, err)
	writeProjectFile(t, root, "b.go", "b")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	out, _, err := run(t, root, invocation{ctx: ctx}, "watch", "--interval", "50ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Watching "+root+" every 50ms")
	assert.Contains(t, out, "1 new file(s) awaiting acknowledgement")
	assert.Equal(t, 1, strings.Count(out, "awaiting acknowledgement"))
	assert.Contains(t, out, "Stopped watching")
}

func TestWatchStopsWhenDirectoryDisappears(t *testing.T) {
	parent := t.TempDir()
	t.Setenv("PROMPTSYNC_HOME", t.TempDir())
	root := filepath.Join(parent, "proj")
	writeProjectFile(t, root, "a.go", "a")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(150 * time.Millisecond)
		os.Rename(root, filepath.Join(parent, "moved"))
	}()

	start := time.Now()
	out, _, err := run(t, root, invocation{ctx: ctx}, "watch", "--interval", "50ms")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, out, "no longer exists")
}
