package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/promptsync/internal/models"
	"github.com/harrison/promptsync/internal/parser"
	"github.com/harrison/promptsync/internal/planner"
	"github.com/harrison/promptsync/internal/project"
)

type fakeSelection struct {
	root      string
	selected  []string
	changed   map[string]bool
	refreshed []string
}

func (s *fakeSelection) Root() string       { return s.root }
func (s *fakeSelection) Selected() []string { return s.selected }
func (s *fakeSelection) RefreshMetadata(rel string) (bool, error) {
	s.refreshed = append(s.refreshed, rel)
	if s.changed[rel] {
		return true, nil
	}
	return false, nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "pkg/util.py", "def f():\n    return 1")

	sel := &fakeSelection{
		root:     root,
		selected: []string{"main.go", "pkg/util.py"},
		changed:  map[string]bool{"pkg/util.py": true},
	}

	doc, err := Build(sel, Options{})
	require.NoError(t, err)

	want := "# Project files\n\n" +
		"- `./main.go`\n" +
		"- `pkg/util.py`\n" +
		"\nFile: `./main.go`\n\n" +
		"```go\npackage main\n```\n" +
		"\nFile: `pkg/util.py`\n\n" +
		"```python\ndef f():\n    return 1\n```\n"
	assert.Equal(t, want, doc.Content)
	assert.Equal(t, []string{"main.go", "pkg/util.py"}, doc.Files)
	assert.Equal(t, []string{"pkg/util.py"}, doc.Changed)
	assert.Equal(t, []string{"main.go", "pkg/util.py"}, sel.refreshed)
	assert.Equal(t, 3, doc.Lines)
	assert.Empty(t, doc.Missing)
}

func TestBuildReportsMissingFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a\n")

	sel := &fakeSelection{root: root, selected: []string{"a.txt", "gone.txt"}}
	doc, err := Build(sel, Options{Header: "Context"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.Content, "# Context\n"))
	assert.Equal(t, []string{"a.txt"}, doc.Files)
	assert.Equal(t, []string{"gone.txt"}, doc.Missing)
	assert.NotContains(t, doc.Content, "gone.txt")
	assert.Equal(t, []string{"a.txt"}, sel.refreshed)
}

func TestBuildEmptySelection(t *testing.T) {
	doc, err := Build(&fakeSelection{root: t.TempDir()}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "# Project files\n\n", doc.Content)
	assert.Empty(t, doc.Files)
}

func TestBuildLengthensFenceAroundBackticks(t *testing.T) {
	root := t.TempDir()
	content := "Example:\n\n```go\nfmt.Println()\n```\n"
	writeFile(t, root, "docs/guide.md", content)

	doc, err := Build(&fakeSelection{root: root, selected: []string{"docs/guide.md"}}, Options{})
	require.NoError(t, err)

	assert.Contains(t, doc.Content, "````markdown\n"+content+"````\n")
	assert.Equal(t, 1, CountFencedBlocks([]byte(doc.Content)))
}

func TestFence(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"plain", "```"},
		{"inline `code`", "```"},
		{"``double``", "```"},
		{"```", "````"},
		{"`````x", "``````"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fence(tt.content), "content %q", tt.content)
	}
}

func TestLanguage(t *testing.T) {
	tests := map[string]string{
		"main.go":            "go",
		"src/App.TSX":        "tsx",
		"Makefile":           "makefile",
		"build/Dockerfile":   "dockerfile",
		"config/app.yml":     "yaml",
		"notes.unknownext":   "",
		"LICENSE":            "",
		"scripts/deploy.sh":  "bash",
		"web/index.html":     "html",
		"pkg/native/lib.cpp": "cpp",
	}
	for input, want := range tests {
		assert.Equal(t, want, Language(input), "path %q", input)
	}
}

func TestCountFencedBlocks(t *testing.T) {
	assert.Equal(t, 0, CountFencedBlocks([]byte("# Title\n\ntext")))
	assert.Equal(t, 2, CountFencedBlocks([]byte("```\na\n```\n\n- item\n\n  ```\n  b\n  ```\n")))
}

func TestComposedDocumentParsesBack(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"README.md":       "# Readme\n",
		"cmd/app/main.go": "package main\n\nfunc main() {}\n",
		"lib/util.js":     "export const x = 1;\n",
	}
	for rel, content := range files {
		writeFile(t, root, rel, content)
	}

	proj, err := project.Open(root)
	require.NoError(t, err)
	require.NoError(t, proj.Select("README.md", "cmd/app/main.go", "lib/util.js"))

	doc, err := Build(proj, Options{})
	require.NoError(t, err)

	blocks, err := parser.ParseChanges(doc.Content)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	for _, block := range blocks {
		rel := strings.TrimPrefix(block.Path, "./")
		assert.Equal(t, files[rel], block.Content, fmt.Sprintf("block %s", block.Path))
	}
}

func TestComposedMarkdownWithFencesPlansUnchanged(t *testing.T) {
	root := t.TempDir()
	readme := "# Readme\n\nExample:\n\n```go\nfmt.Println(1)\n```\n"
	writeFile(t, root, "README.md", readme)
	writeFile(t, root, "main.go", "package main\n")

	proj, err := project.Open(root)
	require.NoError(t, err)
	require.NoError(t, proj.Select("README.md", "main.go"))

	doc, err := Build(proj, Options{})
	require.NoError(t, err)
	require.Contains(t, doc.Content, "````markdown\n")

	plan, err := planner.PlanDocument(root, doc.Content)
	require.NoError(t, err)
	assert.Equal(t, models.PlanSuccess, plan.Status)
	assert.Equal(t, []string{"README.md", "main.go"}, plan.UpdatePaths())
	assert.Equal(t, readme, plan.Updates[filepath.Join(root, "README.md")])
	assert.Equal(t, "package main\n", plan.Updates[filepath.Join(root, "main.go")])
}

func TestBuildRefreshesProjectMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "one\n")

	proj, err := project.Open(root)
	require.NoError(t, err)
	require.NoError(t, proj.Select("a.txt"))
	proj.Descriptor().TotalTokens = 5

	doc, err := Build(proj, Options{})
	require.NoError(t, err)
	assert.Empty(t, doc.Changed)
	assert.Equal(t, 5, proj.TotalTokens())

	writeFile(t, root, "a.txt", "one\ntwo\n")
	doc, err = Build(proj, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, doc.Changed)
	assert.Equal(t, project.TotalsUnknown, proj.TotalTokens())

	meta, ok := proj.Metadata("a.txt")
	require.True(t, ok)
	assert.Equal(t, 2, meta.LineCount)
}
