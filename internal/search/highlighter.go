package search

import (
	"strings"

	"github.com/hyperjump/shirabe/pkg/utils"
)

// Highlight collapses runs of whitespace in content and truncates it to
// maxLen characters for a one-line preview.
func Highlight(content string, maxLen int) string {
	return utils.Truncate(strings.Join(strings.Fields(content), " "), maxLen)
}
