// Package embedding provides text embedding clients and caching.
package embedding

import (
	"context"
	"errors"
)

var (
	// ErrMissingAPIKey is a configuration error: no credential for the embedding service.
	ErrMissingAPIKey = errors.New("embedding API key not configured")
	// ErrEmbeddingService wraps transport failures and non-success responses.
	ErrEmbeddingService = errors.New("embedding service error")
)

// Embedder produces vector embeddings for text. EmbedBatch returns one
// vector per input, in input order, each of length Dimensions().
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
	Close() error
}

// Checker is implemented by embedders whose configuration can be verified
// without a request, such as a credential read from the environment.
type Checker interface {
	Ready() error
}
