// Package cli provides output helpers for the shirabe command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/search"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
	fmt.Fprintf(w, "File: %s (chars %d-%d)\n", result.Chunk.FilePath, result.Chunk.StartChar, result.Chunk.EndChar)
	fmt.Fprintf(w, "\n%s\n", search.Highlight(result.Chunk.Text, 200))
	fmt.Fprintln(w)
}

// WriteSummary prints the outcome of an indexing run.
func WriteSummary(w io.Writer, folder string, s *models.IndexSummary) {
	fmt.Fprintf(w, "Indexed %s: %d chunks from %d files\n", folder, s.ChunkCount, s.FileCount)
	if s.SkippedFiles > 0 {
		fmt.Fprintf(w, "  %d unreadable entries skipped\n", s.SkippedFiles)
	}
	if s.Truncated {
		fmt.Fprintln(w, "  chunk limit reached; later files were not indexed")
	}
}
