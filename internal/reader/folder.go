package reader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupported is returned when the host cannot offer folder selection at all.
	ErrUnsupported = errors.New("folder selection is not supported in this environment")
	// ErrNotDirectory is returned when a selected path is not a readable directory.
	ErrNotDirectory = errors.New("not a directory")
)

// Folder is a traversable handle to a folder the user agreed to share.
// Root is the host path when the folder lives on disk; it may be empty for
// virtual folders.
type Folder struct {
	Name string
	Root string
	FS   fs.FS
}

// NewFolder wraps an arbitrary file system as a folder handle.
func NewFolder(name string, fsys fs.FS) *Folder {
	return &Folder{Name: name, FS: fsys}
}

// OpenDir resolves path to an absolute directory and returns a handle backed by os.DirFS.
func OpenDir(path string) (*Folder, error) {
	absPath, err := filepath.Abs(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, absPath)
	}
	return &Folder{
		Name: filepath.Base(absPath),
		Root: absPath,
		FS:   os.DirFS(absPath),
	}, nil
}

// String returns the host path, or the name for virtual folders.
func (f *Folder) String() string {
	if f.Root != "" {
		return f.Root
	}
	return f.Name
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Picker obtains a folder handle from the user.
type Picker interface {
	// Supported reports whether this environment can offer folder selection.
	Supported() bool
	// Select asks for a folder. It returns (nil, nil) when the user cancels.
	Select(ctx context.Context) (*Folder, error)
}

// DirPicker "selects" a fixed path, such as one passed on the command line.
type DirPicker struct {
	Path string
}

// Supported is true when a path is configured.
func (p DirPicker) Supported() bool { return p.Path != "" }

// Select opens the configured path.
func (p DirPicker) Select(ctx context.Context) (*Folder, error) {
	if !p.Supported() {
		return nil, ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return OpenDir(p.Path)
}

// PromptPicker asks for a folder path on an interactive terminal.
// A blank answer or end of input cancels the selection.
type PromptPicker struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool

	br *bufio.Reader
}

// NewTerminalPicker returns a PromptPicker on stdin/stderr; it is only
// supported when stdin is a character device.
func NewTerminalPicker() *PromptPicker {
	interactive := false
	if info, err := os.Stdin.Stat(); err == nil {
		interactive = info.Mode()&os.ModeCharDevice != 0
	}
	return &PromptPicker{In: os.Stdin, Out: os.Stderr, Interactive: interactive}
}

// Supported reports whether the input is interactive.
func (p *PromptPicker) Supported() bool { return p.Interactive && p.In != nil }

// Select prompts for a path and opens it.
func (p *PromptPicker) Select(ctx context.Context) (*Folder, error) {
	if !p.Supported() {
		return nil, ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.br == nil {
		if br, ok := p.In.(*bufio.Reader); ok {
			p.br = br
		} else {
			p.br = bufio.NewReader(p.In)
		}
	}
	if p.Out != nil {
		fmt.Fprint(p.Out, "Folder to index (blank to cancel): ")
	}
	line, err := p.br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read folder path: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	return OpenDir(line)
}
