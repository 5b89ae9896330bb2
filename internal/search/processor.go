package search

import (
	"strings"

	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/models"
)

// ProcessQuery trims the query text, validates it, and applies the configured
// default and maximum result counts.
func ProcessQuery(query *models.SearchQuery, cfg *config.SearchConfig) error {
	query.Query = strings.TrimSpace(query.Query)
	var def, max int
	if cfg != nil {
		def, max = cfg.DefaultTopK, cfg.MaxTopK
	}
	return query.Validate(def, max)
}
