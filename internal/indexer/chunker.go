// Package indexer provides text chunking and the folder index lifecycle.
package indexer

import (
	"github.com/hyperjump/shirabe/internal/models"
)

const (
	// DefaultChunkSize is the window size in characters.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the number of characters shared by consecutive windows.
	DefaultChunkOverlap = 50
)

// Span is one chunk window of a text, offsets in characters.
type Span struct {
	Text      string
	StartChar int
	EndChar   int
}

// Chunker splits text into overlapping fixed-size character windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// Non-positive sizes fall back to the defaults; a negative overlap is treated as zero.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Size returns the configured window size.
func (c *Chunker) Size() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.chunkOverlap }

// Split returns the windows of text in left-to-right order. Empty text yields no windows.
func (c *Chunker) Split(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= c.chunkSize {
		return []Span{{Text: text, StartChar: 0, EndChar: n}}
	}
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	spans := make([]Span, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := start + c.chunkSize
		if end > n {
			end = n
		}
		spans = append(spans, Span{
			Text:      string(runes[start:end]),
			StartChar: start,
			EndChar:   end,
		})
		if end >= n {
			break
		}
	}
	return spans
}

// Chunk splits one file into Chunks tagged with its path, name and per-file chunk index.
func (c *Chunker) Chunk(file models.FileRecord) []models.Chunk {
	spans := c.Split(file.Content)
	if len(spans) == 0 {
		return nil
	}
	chunks := make([]models.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = models.Chunk{
			ID:         models.ChunkID(file.Path, i),
			Text:       sp.Text,
			FilePath:   file.Path,
			FileName:   file.Name,
			ChunkIndex: i,
			StartChar:  sp.StartChar,
			EndChar:    sp.EndChar,
		}
	}
	return chunks
}
