// Package search provides semantic search over the installed index.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/embedding"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/vector"
	"go.uber.org/zap"
)

var (
	// ErrNotIndexed is returned when a search runs before any folder was indexed.
	ErrNotIndexed = errors.New("no folder indexed")
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = models.ErrEmptyQuery
)

// Engine embeds queries and ranks indexed chunks by cosine similarity.
type Engine struct {
	embedder embedding.Embedder
	store    *vector.Store
	config   *config.SearchConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for per-query debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine. cfg may be nil for defaults.
func NewEngine(embedder embedding.Embedder, store *vector.Store, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	if cfg == nil {
		cfg = &config.SearchConfig{}
	}
	e := &Engine{
		embedder: embedder,
		store:    store,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns the topK chunks most similar to query. The whole call works
// against the snapshot installed when it started.
func (e *Engine) Search(ctx context.Context, query string, topK int) (*models.SearchResponse, error) {
	startTime := time.Now()
	snap := e.store.Current()
	if snap == nil {
		return nil, ErrNotIndexed
	}
	q := &models.SearchQuery{Query: query, TopK: topK}
	if err := ProcessQuery(q, e.config); err != nil {
		return nil, err
	}

	queryEmbedding, err := e.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	hits, err := snap.Search(queryEmbedding, q.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	response := &models.SearchResponse{
		Query:   q.Query,
		Results: make([]*models.SearchResult, 0, len(hits)),
		Total:   len(hits),
		IndexID: snap.ID(),
	}
	for i, h := range hits {
		response.Results = append(response.Results, &models.SearchResult{
			Chunk: h.Chunk,
			Score: h.Score,
			Rank:  i + 1,
		})
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	e.logger.Debug("search done",
		zap.String("query", q.Query),
		zap.Int("top_k", q.TopK),
		zap.Int("results", response.Total),
		zap.Int64("query_time_ms", response.QueryTime),
	)
	return response, nil
}
