package models

import (
	"errors"
	"strings"
)

// DefaultTopK is the number of results returned when a query does not ask for a count.
const DefaultTopK = 5

// ErrEmptyQuery is returned for a query with no searchable text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchQuery is a semantic search request.
type SearchQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate rejects an empty query and normalizes TopK: values <= 0 become
// defaultTopK, values above maxTopK are capped (maxTopK <= 0 means no cap).
func (q *SearchQuery) Validate(defaultTopK, maxTopK int) error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}
