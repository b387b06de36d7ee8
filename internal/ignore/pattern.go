// Package ignore implements the hierarchical ignore-file dialect used when
// scanning a project: nested rule files, negation, directory-only patterns and
// anchored patterns, evaluated with last-match-wins semantics.
//
// The dialect is deliberately smaller than gitignore. Globs follow path.Match
// (`*`, `?`, `[...]`), there is no `**`, and matching is case-sensitive.
package ignore

import (
	"strings"
)

// Pattern is one parsed line of an ignore file.
type Pattern struct {
	// Raw is the pattern text after stripping the negation marker, the
	// directory marker and any leading slash.
	Raw string
	// Negated is true when the line started with "!".
	Negated bool
	// DirOnly is true when the line ended with "/".
	DirOnly bool
	// Anchored is true when the pattern contains a separator and therefore
	// matches against the full path relative to the rule set origin.
	Anchored bool
}

// RuleSet is the ordered pattern list of a single ignore file together with
// the directory it was found in.
type RuleSet struct {
	// Origin is the directory containing the ignore file, relative to the
	// scan root using forward slashes. The root itself is "".
	Origin   string
	Patterns []Pattern
}

// ParsePattern parses a single ignore-file line. The second return value is
// false for blank lines and comments.
func ParsePattern(line string) (Pattern, bool) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return Pattern{}, false
	}

	var p Pattern
	if strings.HasPrefix(line, "!") {
		p.Negated = true
		line = line[1:]
	} else if strings.HasPrefix(line, `\!`) || strings.HasPrefix(line, `\#`) {
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		p.DirOnly = true
		line = strings.TrimRight(line, "/")
	}

	if strings.Contains(line, "/") {
		p.Anchored = true
		line = strings.TrimLeft(line, "/")
	}

	if line == "" {
		return Pattern{}, false
	}
	p.Raw = line
	return p, true
}

// ParseLines parses the content of an ignore file, keeping file order.
func ParseLines(content string) []Pattern {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	patterns := make([]Pattern, 0, len(lines))
	for _, line := range lines {
		if p, ok := ParsePattern(line); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// String renders the pattern back into ignore-file syntax.
func (p Pattern) String() string {
	var b strings.Builder
	if p.Negated {
		b.WriteByte('!')
	}
	if p.Anchored && !strings.Contains(p.Raw, "/") {
		b.WriteByte('/')
	}
	b.WriteString(p.Raw)
	if p.DirOnly {
		b.WriteByte('/')
	}
	return b.String()
}
