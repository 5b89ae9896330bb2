// Package tool exposes folder indexing and semantic search as assistant
// operations: pick a folder, index it, query it, inspect and clear the index.
package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/shirabe/internal/indexer"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/reader"
	"github.com/hyperjump/shirabe/internal/search"
	"go.uber.org/zap"
)

// DefaultPreviewLength is the number of characters of chunk text shown per result.
const DefaultPreviewLength = 300

// Tool wraps the indexer and search engine behind the operations offered to an assistant.
type Tool struct {
	picker  reader.Picker
	indexer *indexer.Indexer
	engine  *search.Engine
	logger  *zap.Logger
}

// ToolOption configures a Tool.
type ToolOption func(*Tool)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) ToolOption {
	return func(t *Tool) { t.logger = l }
}

// New creates a Tool. picker may be nil when folder selection is unavailable.
func New(picker reader.Picker, idx *indexer.Indexer, engine *search.Engine, opts ...ToolOption) *Tool {
	t := &Tool{picker: picker, indexer: idx, engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Supported reports whether this host can select folders at all.
func (t *Tool) Supported() bool {
	return t.picker != nil && t.picker.Supported()
}

// SelectFolder asks the host for a folder. It returns (nil, nil) when the user cancels
// and reader.ErrUnsupported when selection is not available.
func (t *Tool) SelectFolder(ctx context.Context) (*reader.Folder, error) {
	if !t.Supported() {
		return nil, reader.ErrUnsupported
	}
	folder, err := t.picker.Select(ctx)
	if err != nil {
		return nil, fmt.Errorf("select folder: %w", err)
	}
	if folder == nil {
		t.logger.Debug("folder selection cancelled")
	}
	return folder, nil
}

// IndexFolder replaces the current index with one built from folder.
func (t *Tool) IndexFolder(ctx context.Context, folder *reader.Folder) (*models.IndexSummary, error) {
	return t.indexer.IndexFolder(ctx, folder)
}

// IndexPath opens path as a folder and indexes it.
func (t *Tool) IndexPath(ctx context.Context, path string) (*models.IndexSummary, error) {
	folder, err := reader.OpenDir(path)
	if err != nil {
		return nil, err
	}
	return t.indexer.IndexFolder(ctx, folder)
}

// Search returns the topK most similar chunks; topK <= 0 means the default.
func (t *Tool) Search(ctx context.Context, query string, topK int) (*models.SearchResponse, error) {
	return t.engine.Search(ctx, query, topK)
}

// IsIndexed reports whether a folder is indexed.
func (t *Tool) IsIndexed() bool {
	return t.indexer.Store().IsIndexed()
}

// Indexing reports whether an indexing run is active.
func (t *Tool) Indexing() bool {
	return t.indexer.Busy()
}

// IndexStats returns statistics for the current index, or nil.
func (t *Tool) IndexStats() *models.IndexStats {
	return t.indexer.Store().Stats()
}

// ClearIndex drops the current index.
func (t *Tool) ClearIndex() {
	t.indexer.Clear()
}

// FormatResults renders a search response as plain text for an assistant.
// Each hit shows its rank, file, character span, score and a text preview.
func FormatResults(resp *models.SearchResponse, previewLen int) string {
	if resp == nil || len(resp.Results) == 0 {
		return "No matching content found."
	}
	if previewLen <= 0 {
		previewLen = DefaultPreviewLength
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant passages for %q:\n", len(resp.Results), resp.Query)
	for _, r := range resp.Results {
		fmt.Fprintf(&b, "\n[%d] %s (chars %d-%d, score %.3f)\n",
			r.Rank, r.Chunk.FilePath, r.Chunk.StartChar, r.Chunk.EndChar, r.Score)
		b.WriteString(search.Highlight(r.Chunk.Text, previewLen))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatStats renders index statistics as one line.
func FormatStats(stats *models.IndexStats) string {
	if stats == nil {
		return "No folder indexed."
	}
	return fmt.Sprintf("Indexed %s: %d chunks from %d files (model %s, %d dims, at %s)",
		stats.Folder, stats.ChunkCount, stats.FileCount, stats.Model, stats.Dimensions,
		stats.IndexedAt.Format("2006-01-02 15:04:05"))
}
