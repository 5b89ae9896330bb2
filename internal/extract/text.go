// Package extract decodes file bytes into text for chunking.
package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Text returns content as a UTF-8 string. A leading byte order mark is dropped
// and invalid sequences are replaced with the replacement character, so chunk
// offsets always refer to well-formed text.
func Text(content []byte) string {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(content)
}
