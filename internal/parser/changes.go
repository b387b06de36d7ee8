package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harrison/promptsync/internal/models"
)

// minFence is the shortest backtick run that opens a fenced block.
const minFence = 3

// ErrorKind classifies a ParseError
type ErrorKind int

const (
	// NoBlocksFound means the document contains no fenced block
	NoBlocksFound ErrorKind = iota
	// SegmentationMismatch means the text between blocks could not be aligned with the blocks
	SegmentationMismatch
	// MissingPathForBlock means no resolver produced a path for a block
	MissingPathForBlock
)

// String returns the string representation of the ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case NoBlocksFound:
		return "NoBlocksFound"
	case SegmentationMismatch:
		return "SegmentationMismatch"
	case MissingPathForBlock:
		return "MissingPathForBlock"
	default:
		return "Unknown"
	}
}

// ParseError is returned when a change document cannot be split into files.
type ParseError struct {
	Kind  ErrorKind
	Index int // Zero-based block index for MissingPathForBlock
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case NoBlocksFound:
		return "no fenced code blocks found in document"
	case SegmentationMismatch:
		return "document text does not alternate path and code block"
	case MissingPathForBlock:
		return fmt.Sprintf("no file path found for code block %d", e.Index+1)
	default:
		return "unknown parse error"
	}
}

var (
	// Path-like token: restricted character class with at least one separator.
	pathTokenRegex = regexp.MustCompile(`[\w.\-~@+/\\]*[/\\][\w.\-~@+/\\]*`)

	// A first line inside a block that holds nothing but a path, optionally
	// behind a comment marker or a "File:" label.
	inFencePathRegex = regexp.MustCompile(`^\s*(?:(?://|#|--|;|/\*|<!--)\s*)?(?:(?i:file|path):\s*)?([\w.\-~@+/\\]*[/\\][\w.\-~@+/\\]*)\s*(?:\*/|-->)?\s*$`)

	// A bare file name in backticks, e.g. `main.go`.
	backtickNameRegex = regexp.MustCompile("`([\\w.\\-~@+]+\\.[\\w]+)`")
)

// Candidate is the context a Resolver sees for one fenced block.
type Candidate struct {
	Preceding string // Text between the previous block (or document start) and this block
	Body      string // Block body without the trailing newline
}

// Resolver finds the target path for a block. It returns the path and the
// body to record, which may differ from Candidate.Body when the path was
// taken from inside the block.
type Resolver func(c Candidate) (path, body string, ok bool)

// DefaultResolvers are tried in order for every block.
var DefaultResolvers = []Resolver{
	PrecedingPath,
	InFencePath,
	PrecedingFileName,
}

// ParseChanges splits a change document into per-file blocks using
// DefaultResolvers.
func ParseChanges(raw string) ([]models.ChangeBlock, error) {
	return ParseChangesWith(raw, DefaultResolvers)
}

// ParseChangesWith splits a change document into per-file blocks, trying the
// given resolvers in order for each block. It never touches the filesystem.
func ParseChangesWith(raw string, resolvers []Resolver) ([]models.ChangeBlock, error) {
	doc := splitTrailingFences(strings.ReplaceAll(raw, "\r\n", "\n"))

	fenced := findFencedBlocks(doc)
	if len(fenced) == 0 {
		return nil, &ParseError{Kind: NoBlocksFound}
	}

	segments := make([]string, 0, len(fenced)+1)
	prev := 0
	for _, fb := range fenced {
		segments = append(segments, doc[prev:fb.start])
		prev = fb.end
	}
	segments = append(segments, doc[prev:])
	if len(segments) <= len(fenced) {
		return nil, &ParseError{Kind: SegmentationMismatch}
	}

	blocks := make([]models.ChangeBlock, 0, len(fenced))
	for i, fb := range fenced {
		lang := ""
		if fields := strings.Fields(fb.info); len(fields) > 0 {
			lang = fields[0]
		}
		body := fb.body

		block := models.ChangeBlock{Lang: lang}
		for _, resolve := range resolvers {
			if path, rest, ok := resolve(Candidate{Preceding: segments[i], Body: body}); ok {
				block.Path = path
				block.HasPath = true
				body = rest
				break
			}
		}
		if !block.HasPath {
			return nil, &ParseError{Kind: MissingPathForBlock, Index: i}
		}
		if body != "" {
			block.Content = body + "\n"
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// PrecedingPath takes the last path-like token in the text before the block.
func PrecedingPath(c Candidate) (string, string, bool) {
	tokens := pathTokenRegex.FindAllString(c.Preceding, -1)
	for i := len(tokens) - 1; i >= 0; i-- {
		if path, ok := cleanPathToken(tokens[i]); ok {
			return path, c.Body, true
		}
	}
	return "", c.Body, false
}

// InFencePath takes the path from the first line of the block when that
// line holds nothing else, and drops the line from the body.
func InFencePath(c Candidate) (string, string, bool) {
	first, rest, _ := strings.Cut(c.Body, "\n")
	m := inFencePathRegex.FindStringSubmatch(first)
	if m == nil {
		return "", c.Body, false
	}
	path, ok := cleanPathToken(m[1])
	if !ok {
		return "", c.Body, false
	}
	return path, rest, true
}

// PrecedingFileName accepts a backticked file name without a directory on
// the last non-empty line before the block, for files at the project root.
func PrecedingFileName(c Candidate) (string, string, bool) {
	lines := strings.Split(strings.TrimRight(c.Preceding, " \t\n"), "\n")
	last := lines[len(lines)-1]
	m := backtickNameRegex.FindAllStringSubmatch(last, -1)
	if len(m) == 0 {
		return "", c.Body, false
	}
	return m[len(m)-1][1], c.Body, true
}

func cleanPathToken(token string) (string, bool) {
	token = strings.TrimRight(token, ".")
	if token == "" || strings.HasSuffix(token, "/") || strings.HasSuffix(token, `\`) {
		return "", false
	}
	// Protocol-relative URLs and comment markers.
	if strings.HasPrefix(token, "//") || strings.HasPrefix(token, `\\`) {
		return "", false
	}
	if strings.Trim(token, `./\`) == "" {
		return "", false
	}
	return token, true
}

// fencedBlock is one fenced block located in a document.
type fencedBlock struct {
	start int    // Offset of the opening fence line
	end   int    // Offset just past the closing fence, before its newline
	info  string // Text after the opening backticks
	body  string // Lines between the fences, without the final newline
}

// findFencedBlocks locates fenced blocks line by line. A block opens with a
// run of at least three backticks and closes at the next line holding only
// a backtick run at least as long, so a longer outer fence can wrap a
// document that contains fences itself. An opening fence that is never
// closed is treated as text.
func findFencedBlocks(doc string) []fencedBlock {
	lines := strings.SplitAfter(doc, "\n")
	offsets := make([]int, len(lines)+1)
	for i, line := range lines {
		offsets[i+1] = offsets[i] + len(line)
	}

	var blocks []fencedBlock
	for i := 0; i < len(lines); i++ {
		n, info, ok := openingFence(strings.TrimSuffix(lines[i], "\n"))
		if !ok {
			continue
		}
		closing := -1
		for j := i + 1; j < len(lines); j++ {
			if closesFence(strings.TrimSuffix(lines[j], "\n"), n) {
				closing = j
				break
			}
		}
		if closing < 0 {
			continue
		}

		blocks = append(blocks, fencedBlock{
			start: offsets[i],
			end:   offsets[closing] + len(strings.TrimSuffix(lines[closing], "\n")),
			info:  info,
			body:  strings.TrimSuffix(strings.Join(lines[i+1:closing], ""), "\n"),
		})
		i = closing
	}
	return blocks
}

// openingFence reports the backtick count and info string of a fence line.
// Info strings may not contain backticks.
func openingFence(line string) (int, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	n := leadingBackticks(trimmed)
	if n < minFence {
		return 0, "", false
	}
	info := trimmed[n:]
	if strings.Contains(info, "`") {
		return 0, "", false
	}
	return n, info, true
}

// closesFence reports whether line is a closing fence for an opening run of n.
func closesFence(line string, n int) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= n && leadingBackticks(trimmed) == len(trimmed)
}

func leadingBackticks(s string) int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	return n
}

func trailingBackticks(s string) int {
	n := 0
	for n < len(s) && s[len(s)-1-n] == '`' {
		n++
	}
	return n
}

// splitTrailingFences moves a closing fence that trails code on the same
// line onto a line of its own. Only runs at least as long as the open fence
// count as closing.
func splitTrailingFences(doc string) string {
	lines := strings.Split(doc, "\n")
	out := make([]string, 0, len(lines))
	open := 0

	for _, line := range lines {
		if open == 0 {
			if n, _, ok := openingFence(line); ok {
				open = n
			}
			out = append(out, line)
			continue
		}
		if closesFence(line, open) {
			open = 0
			out = append(out, line)
			continue
		}

		trimmed := strings.TrimRight(line, " \t")
		if run := trailingBackticks(trimmed); run >= open {
			cut := len(trimmed) - run
			out = append(out, trimmed[:cut], trimmed[cut:])
			open = 0
			continue
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}
