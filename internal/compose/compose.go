// Package compose merges a project's selected files into one markdown
// prompt document: a header, the file list, then each file under a path
// line in a fenced block tagged with its language.
package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

// DefaultHeader is the document title used when Options.Header is empty.
const DefaultHeader = "Project files"

// Selection is the project state the composer reads and refreshes.
type Selection interface {
	Root() string
	// Selected returns root-relative, forward-slash paths in sorted order.
	Selected() []string
	// RefreshMetadata recomputes a selected file's cached metadata and
	// reports whether it changed.
	RefreshMetadata(rel string) (bool, error)
}

// Options configures Build
type Options struct {
	Header string
	Logger *zap.Logger
}

// Document is a composed prompt
type Document struct {
	Content string
	Files   []string // Paths included, in document order
	Missing []string // Selected paths that could not be read and were left out
	Changed []string // Paths whose cached metadata was refreshed
	Lines   int      // Total line count of the included files
}

// Build renders every selected file of sel into a Document and refreshes
// the selection's cached metadata as a side effect. Unreadable files are
// reported in Document.Missing rather than failing the build.
func Build(sel Selection, opts Options) (*Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	header := opts.Header
	if header == "" {
		header = DefaultHeader
	}

	doc := &Document{}
	type entry struct {
		path    string
		content string
	}
	var entries []entry

	for _, rel := range sel.Selected() {
		data, err := os.ReadFile(filepath.Join(sel.Root(), filepath.FromSlash(rel)))
		if err != nil {
			logger.Warn("Leaving unreadable file out of document", zap.String("path", rel), zap.Error(err))
			doc.Missing = append(doc.Missing, rel)
			continue
		}

		changed, err := sel.RefreshMetadata(rel)
		if err != nil {
			logger.Warn("Failed to refresh metadata", zap.String("path", rel), zap.Error(err))
		} else if changed {
			doc.Changed = append(doc.Changed, rel)
		}

		entries = append(entries, entry{path: rel, content: string(data)})
		doc.Files = append(doc.Files, rel)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", header)
	for _, e := range entries {
		fmt.Fprintf(&b, "- `%s`\n", PathLine(e.path))
	}

	for _, e := range entries {
		fence := Fence(e.content)
		fmt.Fprintf(&b, "\nFile: `%s`\n\n", PathLine(e.path))
		fmt.Fprintf(&b, "%s%s\n", fence, Language(e.path))
		b.WriteString(e.content)
		if e.content != "" && !strings.HasSuffix(e.content, "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", fence)
		doc.Lines += countLines(e.content)
	}

	doc.Content = b.String()

	blocks := CountFencedBlocks([]byte(doc.Content))
	if blocks != len(entries) {
		return nil, fmt.Errorf("composed document has %d fenced blocks for %d files", blocks, len(entries))
	}

	logger.Debug("Composed document",
		zap.Int("files", len(doc.Files)),
		zap.Int("missing", len(doc.Missing)),
		zap.Int("lines", doc.Lines))
	return doc, nil
}

// PathLine renders a root-relative path so it always carries a separator,
// which lets the change parser resolve root-level files too.
func PathLine(rel string) string {
	if !strings.Contains(rel, "/") {
		return "./" + rel
	}
	return rel
}

// Fence returns a backtick fence longer than any backtick run in content,
// and at least three backticks long.
func Fence(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	n := 3
	if longest >= n {
		n = longest + 1
	}
	return strings.Repeat("`", n)
}

// CountFencedBlocks parses source as CommonMark and counts top-level and
// nested fenced code blocks.
func CountFencedBlocks(source []byte) int {
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	count := 0
	ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := node.(*ast.FencedCodeBlock); ok {
			count++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return count
}

func countLines(content string) int {
	lines := strings.Count(content, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		lines++
	}
	return lines
}
