// Package source reads change documents from a file, piped stdin or the
// system clipboard, and writes composed documents to the clipboard.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
)

// ErrEmpty is returned when the selected source holds no content.
var ErrEmpty = errors.New("source is empty")

// Kind names where content was read from
type Kind string

// Kind constants
const (
	KindFile      Kind = "file"
	KindStdin     Kind = "stdin"
	KindClipboard Kind = "clipboard"
)

// Provider determines and retrieves the source content.
type Provider struct {
	Stdin          io.Reader
	StdinPiped     func() bool
	ReadClipboard  func() (string, error)
	WriteClipboard func(string) error
}

// New creates a Provider bound to the process stdin and system clipboard.
func New() *Provider {
	return &Provider{
		Stdin:          os.Stdin,
		StdinPiped:     stdinPiped,
		ReadClipboard:  clipboard.ReadAll,
		WriteClipboard: clipboard.WriteAll,
	}
}

func stdinPiped() bool {
	fd := os.Stdin.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// Read returns the content of path when it is set ("-" means stdin),
// otherwise stdin when it is piped, otherwise the clipboard.
// Whitespace-only content yields ErrEmpty.
func (p *Provider) Read(path string) (string, Kind, error) {
	var (
		content string
		kind    Kind
		err     error
	)

	switch {
	case path == "-":
		kind = KindStdin
		content, err = p.readStdin()
	case path != "":
		kind = KindFile
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("failed to read %s: %w", path, err)
		}
		content = string(data)
	case p.StdinPiped != nil && p.StdinPiped():
		kind = KindStdin
		content, err = p.readStdin()
	default:
		kind = KindClipboard
		if p.ReadClipboard == nil {
			return "", kind, fmt.Errorf("clipboard is not available")
		}
		content, err = p.ReadClipboard()
		if err != nil {
			err = fmt.Errorf("failed to read from clipboard: %w", err)
		}
	}

	if err != nil {
		return "", kind, err
	}
	if strings.TrimSpace(content) == "" {
		return "", kind, fmt.Errorf("%s: %w", kind, ErrEmpty)
	}
	return content, kind, nil
}

func (p *Provider) readStdin() (string, error) {
	if p.Stdin == nil {
		return "", fmt.Errorf("stdin is not available")
	}
	data, err := io.ReadAll(p.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return string(data), nil
}

// Copy places content on the clipboard.
func (p *Provider) Copy(content string) error {
	if p.WriteClipboard == nil {
		return fmt.Errorf("clipboard is not available")
	}
	if err := p.WriteClipboard(content); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	return nil
}
