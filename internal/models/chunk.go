// Package models defines core data structures for files, chunks, queries, and search results.
package models

import (
	"fmt"
	"time"
)

// FileRecord is one eligible text file read from an indexed folder.
type FileRecord struct {
	Path    string `json:"path"` // slash-separated, relative to the folder root
	Name    string `json:"name"`
	Content string `json:"-"`
}

// Chunk is a contiguous window of one file's text. StartChar and EndChar are
// character (rune) offsets into the decoded file text: a leading byte order
// mark is not counted and each invalid UTF-8 run counts as one character.
type Chunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	FilePath   string `json:"file_path"`
	FileName   string `json:"file_name"`
	ChunkIndex int    `json:"chunk_index"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
}

// ChunkID returns the stable identifier of the chunkIndex-th chunk of filePath.
func ChunkID(filePath string, chunkIndex int) string {
	return fmt.Sprintf("%s#%d", filePath, chunkIndex)
}

// IndexSummary is returned by a successful folder indexing run.
type IndexSummary struct {
	ChunkCount   int  `json:"chunk_count"`
	FileCount    int  `json:"file_count"`
	SkippedFiles int  `json:"skipped_files,omitempty"`
	Truncated    bool `json:"truncated,omitempty"` // chunk cap reached, later input dropped
}

// IndexStats describes the currently installed index.
type IndexStats struct {
	IndexID    string    `json:"index_id"`
	Folder     string    `json:"folder"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	ChunkCount int       `json:"chunk_count"`
	FileCount  int       `json:"file_count"`
	IndexedAt  time.Time `json:"indexed_at"`
}
