// Package reader collects eligible text files from a folder handle.
package reader

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hyperjump/shirabe/internal/extract"
	"github.com/hyperjump/shirabe/internal/models"
	"go.uber.org/zap"
)

// DefaultMaxFileSizeBytes is the largest file read by default (1 MiB).
const DefaultMaxFileSizeBytes = 1024 * 1024

// DefaultExtensions is the allow-list of plain-text and source extensions.
var DefaultExtensions = []string{
	".txt", ".md", ".markdown", ".rst", ".adoc", ".org", ".tex", ".csv", ".tsv", ".log",
	".json", ".yaml", ".yml", ".toml", ".xml", ".ini", ".cfg", ".conf", ".env",
	".html", ".htm", ".css", ".scss",
	".js", ".jsx", ".mjs", ".ts", ".tsx",
	".py", ".rb", ".go", ".rs", ".java", ".kt", ".swift", ".c", ".h", ".cpp", ".hpp", ".cs",
	".php", ".sh", ".bash", ".zsh", ".sql", ".graphql", ".proto", ".lua", ".r",
}

// DefaultExclude lists glob patterns (relative paths) that are never traversed.
var DefaultExclude = []string{"**/.git", "**/node_modules", "**/.svn", "**/__pycache__"}

// Skipped records a file or directory that could not be read.
type Skipped struct {
	Path string
	Err  error
}

// Reader walks a folder and returns the contents of eligible files.
type Reader struct {
	extensions  map[string]struct{}
	exclude     []string
	maxFileSize int64
	logger      *zap.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLogger sets the logger used for skip warnings.
func WithLogger(l *zap.Logger) ReaderOption {
	return func(r *Reader) { r.logger = l }
}

// WithExclude sets doublestar patterns matched against slash-separated relative paths.
func WithExclude(patterns []string) ReaderOption {
	return func(r *Reader) { r.exclude = patterns }
}

// WithMaxFileSize sets the size above which files are skipped (<= 0 means no limit).
func WithMaxFileSize(n int64) ReaderOption {
	return func(r *Reader) { r.maxFileSize = n }
}

// NewReader creates a reader accepting files whose lowercased extension is in
// extensions (with or without the leading dot). A nil list uses DefaultExtensions.
func NewReader(extensions []string, opts ...ReaderOption) *Reader {
	if extensions == nil {
		extensions = DefaultExtensions
	}
	r := &Reader{
		extensions:  make(map[string]struct{}, len(extensions)),
		exclude:     DefaultExclude,
		maxFileSize: DefaultMaxFileSizeBytes,
		logger:      zap.NewNop(),
	}
	for _, ext := range extensions {
		r.extensions[normalizeExt(ext)] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Eligible reports whether a file name passes the extension allow-list.
func (r *Reader) Eligible(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := r.extensions[ext]
	return ok
}

// Excluded reports whether a relative path matches an exclude pattern.
func (r *Reader) Excluded(relPath string) bool {
	for _, pattern := range r.exclude {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// ReadFiles walks folder depth first and returns every eligible file. Unreadable
// files and subdirectories are skipped with a warning and reported in the
// second return value; only failure to list the root itself is an error.
func (r *Reader) ReadFiles(ctx context.Context, folder *Folder) ([]models.FileRecord, []Skipped, error) {
	if folder == nil || folder.FS == nil {
		return nil, nil, fmt.Errorf("%w: no folder handle", ErrNotDirectory)
	}
	w := &walk{r: r, fsys: folder.FS}
	entries, err := fs.ReadDir(folder.FS, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("read folder %s: %w", folder, err)
	}
	if err := w.visit(ctx, ".", entries); err != nil {
		return nil, nil, err
	}
	return w.files, w.skipped, nil
}

type walk struct {
	r       *Reader
	fsys    fs.FS
	files   []models.FileRecord
	skipped []Skipped
}

func (w *walk) skip(p string, err error) {
	w.r.logger.Warn("skipping unreadable entry", zap.String("path", p), zap.Error(err))
	w.skipped = append(w.skipped, Skipped{Path: p, Err: err})
}

func (w *walk) visit(ctx context.Context, dir string, entries []fs.DirEntry) error {
	for _, d := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := d.Name()
		if dir != "." {
			p = dir + "/" + d.Name()
		}
		if w.r.Excluded(p) {
			continue
		}
		isDir := d.IsDir()
		if d.Type()&fs.ModeSymlink != 0 {
			// Follow links to regular files only; linked directories could loop.
			info, err := fs.Stat(w.fsys, p)
			if err != nil {
				w.skip(p, err)
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
		}
		if isDir {
			children, err := fs.ReadDir(w.fsys, p)
			if err != nil {
				w.skip(p, err)
				continue
			}
			if err := w.visit(ctx, p, children); err != nil {
				return err
			}
			continue
		}
		if !w.r.Eligible(d.Name()) {
			continue
		}
		if w.r.maxFileSize > 0 {
			if info, err := d.Info(); err == nil && info.Size() > w.r.maxFileSize {
				w.skip(p, fmt.Errorf("file too large: %d bytes", info.Size()))
				continue
			}
		}
		content, err := fs.ReadFile(w.fsys, p)
		if err != nil {
			w.skip(p, err)
			continue
		}
		w.files = append(w.files, models.FileRecord{
			Path:    p,
			Name:    d.Name(),
			Content: extract.Text(content),
		})
	}
	return nil
}
