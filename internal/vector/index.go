// Package vector provides the in-memory vector index and similarity search.
package vector

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/shirabe/internal/models"
)

// ErrDimensionMismatch is returned when a vector does not have the index dimensionality.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID       string
	Position int // position of the chunk in the snapshot
	Chunk    models.Chunk
	Score    float64 // cosine similarity in [-1, 1]
}

// Meta describes where a snapshot came from.
type Meta struct {
	Folder    string // display name or root path of the indexed folder
	Model     string
	IndexedAt time.Time
}

// Snapshot is an immutable index: ordered chunks and one flat buffer holding
// their embeddings, where chunk i owns buffer[i*dim:(i+1)*dim].
type Snapshot struct {
	id         string
	chunks     []models.Chunk
	buffer     []float32
	dimensions int
	meta       Meta
	fileCount  int
}

// NewSnapshot packs vectors into a flat buffer. It fails if the counts differ,
// dim is not positive, or any vector has the wrong length.
func NewSnapshot(chunks []models.Chunk, vectors [][]float32, dim int, meta Meta) (*Snapshot, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dim)
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	buffer := make([]float32, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
		copy(buffer[i*dim:], v)
	}
	owned := make([]models.Chunk, len(chunks))
	copy(owned, chunks)
	files := make(map[string]struct{})
	for _, ch := range owned {
		files[ch.FilePath] = struct{}{}
	}
	if meta.IndexedAt.IsZero() {
		meta.IndexedAt = time.Now()
	}
	return &Snapshot{
		id:         uuid.New().String(),
		chunks:     owned,
		buffer:     buffer,
		dimensions: dim,
		meta:       meta,
		fileCount:  len(files),
	}, nil
}

// ID returns the unique identifier assigned when the snapshot was built.
func (s *Snapshot) ID() string { return s.id }

// Len returns the number of chunks.
func (s *Snapshot) Len() int { return len(s.chunks) }

// Dimensions returns the vector length.
func (s *Snapshot) Dimensions() int { return s.dimensions }

// Meta returns the snapshot metadata.
func (s *Snapshot) Meta() Meta { return s.meta }

// Chunk returns the i-th chunk.
func (s *Snapshot) Chunk(i int) models.Chunk { return s.chunks[i] }

// Vector returns the embedding of chunk i. The slice aliases the buffer and
// must not be modified.
func (s *Snapshot) Vector(i int) []float32 {
	return s.buffer[i*s.dimensions : (i+1)*s.dimensions : (i+1)*s.dimensions]
}

// Stats summarizes the snapshot.
func (s *Snapshot) Stats() *models.IndexStats {
	return &models.IndexStats{
		IndexID:    s.id,
		Folder:     s.meta.Folder,
		Model:      s.meta.Model,
		Dimensions: s.dimensions,
		ChunkCount: len(s.chunks),
		FileCount:  s.fileCount,
		IndexedAt:  s.meta.IndexedAt,
	}
}

// Search scores every chunk against query by cosine similarity and returns the
// k best, highest first. Equal scores keep chunk order.
func (s *Snapshot) Search(query []float32, k int) ([]*VectorResult, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), s.dimensions)
	}
	if k <= 0 || len(s.chunks) == 0 {
		return nil, nil
	}
	qNorm := L2Norm(query)
	scores := make([]*VectorResult, len(s.chunks))
	for i := range s.chunks {
		scores[i] = &VectorResult{
			ID:       s.chunks[i].ID,
			Position: i,
			Chunk:    s.chunks[i],
			Score:    cosine(query, qNorm, s.Vector(i)),
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}
