package parser

import (
	"errors"
	"testing"

	"github.com/harrison/promptsync/internal/models"
)

func TestParseChanges(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []models.ChangeBlock
	}{
		{
			name: "path before block",
			doc:  "Update `src/app.js`:\n\n```js\nconsole.log(1)\n```\n",
			want: []models.ChangeBlock{
				{Path: "src/app.js", HasPath: true, Lang: "js", Content: "console.log(1)\n"},
			},
		},
		{
			name: "last candidate in segment wins",
			doc:  "I moved docs/old.md into the new layout.\n\n**pkg/new.go**\n```go\npackage pkg\n```",
			want: []models.ChangeBlock{
				{Path: "pkg/new.go", HasPath: true, Lang: "go", Content: "package pkg\n"},
			},
		},
		{
			name: "multiple blocks use their own segments",
			doc: "a/one.txt\n```\n1\n```\n" +
				"Then b/two.txt.\n```text\n2\n\n```\n",
			want: []models.ChangeBlock{
				{Path: "a/one.txt", HasPath: true, Content: "1\n"},
				{Path: "b/two.txt", HasPath: true, Lang: "text", Content: "2\n\n"},
			},
		},
		{
			name: "path inside fence is removed from content",
			doc:  "```python\n# lib/util.py\ndef f():\n    pass\n```",
			want: []models.ChangeBlock{
				{Path: "lib/util.py", HasPath: true, Lang: "python", Content: "def f():\n    pass\n"},
			},
		},
		{
			name: "backslash separators",
			doc:  `"src\win\main.c"` + "\n```c\nint main;\n```",
			want: []models.ChangeBlock{
				{Path: `src\win\main.c`, HasPath: true, Lang: "c", Content: "int main;\n"},
			},
		},
		{
			name: "closing fence trailing code",
			doc:  "src/a.go\n```go\nfunc a() {}```\n",
			want: []models.ChangeBlock{
				{Path: "src/a.go", HasPath: true, Lang: "go", Content: "func a() {}\n"},
			},
		},
		{
			name: "crlf line endings",
			doc:  "src/a.txt\r\n```\r\nline\r\n```\r\n",
			want: []models.ChangeBlock{
				{Path: "src/a.txt", HasPath: true, Content: "line\n"},
			},
		},
		{
			name: "root file name in backticks",
			doc:  "Replace `Makefile.mk` with:\n```make\nall:\n```",
			want: []models.ChangeBlock{
				{Path: "Makefile.mk", HasPath: true, Lang: "make", Content: "all:\n"},
			},
		},
		{
			name: "empty block",
			doc:  "out/empty.txt\n```\n```",
			want: []models.ChangeBlock{
				{Path: "out/empty.txt", HasPath: true},
			},
		},
		{
			name: "url is not a path",
			doc:  "See https://example.com/docs for details.\n```\n// cmd/tool/main.go\npackage main\n```",
			want: []models.ChangeBlock{
				{Path: "cmd/tool/main.go", HasPath: true, Content: "package main\n"},
			},
		},
		{
			name: "longer fence wraps nested fences",
			doc:  "docs/guide.md\n````markdown\nIntro\n\n```go\nfmt.Println(1)\n```\n````\n",
			want: []models.ChangeBlock{
				{Path: "docs/guide.md", HasPath: true, Lang: "markdown", Content: "Intro\n\n```go\nfmt.Println(1)\n```\n"},
			},
		},
		{
			name: "closing fence may be longer than opening",
			doc:  "a/b.txt\n```\nx\n`````\n",
			want: []models.ChangeBlock{
				{Path: "a/b.txt", HasPath: true, Content: "x\n"},
			},
		},
		{
			name: "short trailing run does not close a longer fence",
			doc:  "a/b.md\n````\nuse x```\ny````\n",
			want: []models.ChangeBlock{
				{Path: "a/b.md", HasPath: true, Content: "use x```\ny\n"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChanges(tt.doc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d blocks, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("block %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseChangesFallbackOnly(t *testing.T) {
	blocks, err := ParseChanges("```\nsrc/only.txt\nhello\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Path != "src/only.txt" {
		t.Errorf("path = %q, want src/only.txt", blocks[0].Path)
	}
	if blocks[0].Content != "hello\n" {
		t.Errorf("content = %q, want the body without the path line", blocks[0].Content)
	}
}

func TestParseChangesErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		kind  ErrorKind
		index int
	}{
		{name: "no blocks", doc: "Nothing to change in src/app.js.", kind: NoBlocksFound},
		{name: "empty document", doc: "", kind: NoBlocksFound},
		{name: "unterminated block", doc: "src/a.go\n```go\npackage a\n", kind: NoBlocksFound},
		{
			name:  "second block has no path",
			doc:   "a/b.txt\n```\nx\n```\nand then\n```\ny\n```",
			kind:  MissingPathForBlock,
			index: 1,
		},
		{
			name: "in-fence line with code is not a path",
			doc:  "```js\nimport x from './y'\n```",
			kind: MissingPathForBlock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChanges(tt.doc)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if perr.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", perr.Kind, tt.kind)
			}
			if perr.Index != tt.index {
				t.Errorf("index = %d, want %d", perr.Index, tt.index)
			}
			if perr.Error() == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}

func TestParseChangesWithCustomResolvers(t *testing.T) {
	fixed := func(c Candidate) (string, string, bool) {
		return "fixed/path.txt", c.Body, true
	}

	blocks, err := ParseChangesWith("src/ignored.txt\n```\nbody\n```", []Resolver{fixed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blocks[0].Path != "fixed/path.txt" {
		t.Errorf("path = %q, want fixed/path.txt", blocks[0].Path)
	}

	_, err = ParseChangesWith("src/a.txt\n```\nbody\n```", nil)
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Kind != MissingPathForBlock {
		t.Errorf("expected MissingPathForBlock without resolvers, got %v", err)
	}
}

func TestSplitTrailingFences(t *testing.T) {
	in := "text ```\n```go\nx := 1```\n```\ny\n```"
	want := "text ```\n```go\nx := 1\n```\n```\ny\n```"
	if got := splitTrailingFences(in); got != want {
		t.Errorf("splitTrailingFences() = %q, want %q", got, want)
	}
}
