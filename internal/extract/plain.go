package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain decodes UTF-8 text, replacing invalid sequences.
func extractPlain(content []byte) string {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return strings.TrimPrefix(s, "\ufeff")
}
