package display

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/harrison/promptsync/internal/models"
)

func TestDisplayWarning(t *testing.T) {
	tests := []struct {
		name    string
		warning Warning
		want    []string
		absent  []string
	}{
		{
			name:    "title only",
			warning: Warning{Title: "Nothing selected"},
			want:    []string{"⚠️  Warning: Nothing selected\n"},
			absent:  []string{"Affected", "Suggestion"},
		},
		{
			name:    "single file",
			warning: Warning{Title: "t", Files: []string{"a.go"}},
			want:    []string{"    Affected file:\n", "      1. a.go\n"},
		},
		{
			name: "complete",
			warning: Warning{
				Title:      "t",
				Message:    "details",
				Files:      []string{"a.go", "b/c.go"},
				Suggestion: "do this",
			},
			want: []string{"    details\n", "    Affected files:\n", "      2. b/c.go\n", "    Suggestion:\n    do this\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.warning.Display(&buf)
			output := buf.String()

			if !strings.HasPrefix(output, "\x1b[33m") || !strings.HasSuffix(output, "\x1b[0m") {
				t.Errorf("warning should be wrapped in yellow, got %q", output)
			}
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q:\n%s", want, output)
				}
			}
			for _, absent := range tt.absent {
				if strings.Contains(output, absent) {
					t.Errorf("output should not contain %q:\n%s", absent, output)
				}
			}
		})
	}
}

func TestWarningStringCapsFileList(t *testing.T) {
	files := make([]string, maxWarningFiles+3)
	for i := range files {
		files[i] = fmt.Sprintf("f%02d.go", i)
	}

	output := Warning{Title: "many", Files: files}.String()

	if strings.Contains(output, "\x1b[") {
		t.Errorf("String should not contain color codes: %q", output)
	}
	if !strings.Contains(output, "      20. f19.go\n") {
		t.Errorf("expected the 20th file to be listed:\n%s", output)
	}
	if strings.Contains(output, "f20.go") {
		t.Errorf("files past the cap should be summarized:\n%s", output)
	}
	if !strings.Contains(output, "      ... and 3 more\n") {
		t.Errorf("expected overflow summary:\n%s", output)
	}
}

func TestWarnCreations(t *testing.T) {
	plan := models.ChangePlan{
		Root:      "/proj",
		Creations: map[string]string{"/proj/z.go": "", "/proj/pkg/a.go": ""},
		NewDirs:   []string{"/proj/pkg"},
	}

	w := WarnCreations(plan)

	if w.Title != "2 new file(s) will be created" {
		t.Errorf("unexpected title %q", w.Title)
	}
	if len(w.Files) != 2 || w.Files[0] != "pkg/a.go" || w.Files[1] != "z.go" {
		t.Errorf("unexpected files %v", w.Files)
	}
	if !strings.Contains(w.Message, "1 new directories") {
		t.Errorf("unexpected message %q", w.Message)
	}

	w = WarnCreations(models.ChangePlan{Root: "/proj", Creations: map[string]string{"/proj/a.go": ""}})
	if w.Message != "" {
		t.Errorf("message should be empty without new directories, got %q", w.Message)
	}
}

func TestWarnSkipped(t *testing.T) {
	w := WarnSkipped([]string{"../x.go", "/etc/passwd"})
	if len(w.Files) != 2 || w.Suggestion == "" {
		t.Errorf("unexpected warning %+v", w)
	}
}
