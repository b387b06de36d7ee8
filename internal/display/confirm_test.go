package display

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("closed") }

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"Y", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yess\n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got, err := Confirm(strings.NewReader(tt.input), &out, "Create 2 files?")
		if err != nil {
			t.Fatalf("Confirm(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Create 2 files? [y/N]: " {
			t.Errorf("unexpected prompt %q", out.String())
		}
	}
}

func TestConfirmReadError(t *testing.T) {
	ok, err := Confirm(failingReader{}, &bytes.Buffer{}, "?")
	if err == nil || ok {
		t.Errorf("Confirm() = %v, %v; want false and an error", ok, err)
	}
}

func TestInteractive(t *testing.T) {
	if Interactive(nil) {
		t.Error("nil file should not be interactive")
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "answers"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if Interactive(f) {
		t.Error("regular file should not be interactive")
	}
}
