package models

// SearchResult pairs an indexed chunk with its cosine similarity to the query.
// Results are ephemeral: they reference the index that produced them and are
// not valid across a rebuild.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query     string          `json:"query"`
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	IndexID   string          `json:"index_id"`
}
