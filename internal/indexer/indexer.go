package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/embedding"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/reader"
	"github.com/hyperjump/shirabe/internal/vector"
	"go.uber.org/zap"
)

var (
	// ErrNoFiles is returned when a folder contains no eligible files.
	ErrNoFiles = errors.New("no eligible text files found")
	// ErrNoChunks is returned when eligible files produced no text.
	ErrNoChunks = errors.New("no text content to index")
	// ErrIndexInProgress is returned when another indexing run is active.
	ErrIndexInProgress = errors.New("indexing already in progress")
)

// DefaultMaxChunks caps the number of chunks held by one index.
const DefaultMaxChunks = 10000

// Indexer builds a snapshot from a folder and installs it in a store.
type Indexer struct {
	reader    *reader.Reader
	chunker   *Chunker
	embedder  embedding.Embedder
	store     *vector.Store
	batchSize int
	maxChunks int
	logger    *zap.Logger
	mu        sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for progress and warnings.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many chunks are sent per embedding request.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer. cfg may be nil for defaults.
func NewIndexer(
	rdr *reader.Reader,
	embedder embedding.Embedder,
	store *vector.Store,
	cfg *config.IndexConfig,
	opts ...IndexerOption,
) *Indexer {
	if cfg == nil {
		cfg = &config.IndexConfig{}
	}
	idx := &Indexer{
		reader:    rdr,
		chunker:   NewChunker(cfg.ChunkSize, cfg.Overlap(DefaultChunkOverlap)),
		embedder:  embedder,
		store:     store,
		batchSize: embedding.DefaultMaxBatchSize,
		maxChunks: cfg.MaxChunks,
		logger:    zap.NewNop(),
	}
	if idx.maxChunks <= 0 {
		idx.maxChunks = DefaultMaxChunks
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Store returns the store the indexer installs into.
func (idx *Indexer) Store() *vector.Store {
	return idx.store
}

// Busy reports whether an indexing run is active.
func (idx *Indexer) Busy() bool {
	if idx.mu.TryLock() {
		idx.mu.Unlock()
		return false
	}
	return true
}

// IndexFolder reads, chunks, and embeds every eligible file in folder and
// replaces the current index with the result. On any error the previous
// index stays installed.
func (idx *Indexer) IndexFolder(ctx context.Context, folder *reader.Folder) (*models.IndexSummary, error) {
	if !idx.mu.TryLock() {
		return nil, ErrIndexInProgress
	}
	defer idx.mu.Unlock()

	start := time.Now()
	files, skipped, err := idx.reader.ReadFiles(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	chunks, truncated, err := idx.collectChunks(ctx, files)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	if truncated {
		idx.logger.Warn("chunk limit reached, remaining content not indexed",
			zap.String("folder", folder.String()),
			zap.Int("max_chunks", idx.maxChunks),
		)
	}

	vectors, err := idx.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	snap, err := vector.NewSnapshot(chunks, vectors, idx.embedder.Dimensions(), vector.Meta{
		Folder:    folder.String(),
		Model:     idx.embedder.Model(),
		IndexedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx.store.Install(snap)

	summary := &models.IndexSummary{
		ChunkCount:   snap.Len(),
		FileCount:    snap.Stats().FileCount,
		SkippedFiles: len(skipped),
		Truncated:    truncated,
	}
	idx.logger.Info("folder indexed",
		zap.String("folder", folder.String()),
		zap.String("index_id", snap.ID()),
		zap.Int("files", summary.FileCount),
		zap.Int("chunks", summary.ChunkCount),
		zap.Int("skipped", summary.SkippedFiles),
		zap.Duration("elapsed", time.Since(start)),
	)
	return summary, nil
}

// collectChunks chunks files in order until the chunk cap is reached.
func (idx *Indexer) collectChunks(ctx context.Context, files []models.FileRecord) ([]models.Chunk, bool, error) {
	var chunks []models.Chunk
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		for _, ch := range idx.chunker.Chunk(f) {
			if len(chunks) >= idx.maxChunks {
				return chunks, true, nil
			}
			chunks = append(chunks, ch)
		}
	}
	return chunks, false, nil
}

// embedAll embeds chunk texts in sequential batches, preserving order.
func (idx *Indexer) embedAll(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += idx.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+idx.batchSize, len(chunks))
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Text
		}
		batch, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", embedding.ErrEmbeddingService, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
		idx.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(chunks)))
	}
	return vectors, nil
}

// Clear drops the current index.
func (idx *Indexer) Clear() {
	idx.store.Clear()
	idx.logger.Info("index cleared")
}
