package executor

import (
	"path/filepath"
	"strings"
	"unicode"
)

// DefaultMarkdownExtensions are written verbatim, without normalization.
var DefaultMarkdownExtensions = []string{".md", ".markdown"}

// NormalizeContent strips trailing whitespace from every line and collapses
// runs of empty lines into a single empty line. A final newline is kept.
func NormalizeContent(content string) string {
	body, hasNewline := strings.CutSuffix(content, "\n")

	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}

	result := strings.Join(out, "\n")
	if hasNewline {
		result += "\n"
	}
	return result
}

func isMarkdown(path string, extensions map[string]bool) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}
