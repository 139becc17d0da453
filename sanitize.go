package schemaengine

import (
	"regexp"
	"strings"
)

// htmlJSONBreakingChars strips characters that break naive HTML or JSON
// embedding: angle brackets, quotes, backslashes. Whitespace is then
// collapsed to single spaces and trimmed.
var htmlJSONBreakingChars = regexp.MustCompile(`[<>"'\\` + "`" + `]`)
var collapsibleWhitespace = regexp.MustCompile(`\s+`)

// sanitizeForJSON normalizes an enum/option string so that both the
// generated JSON-Schema enum and a later model-returned value compare
// equal regardless of embedded HTML/JSON-breaking characters or
// whitespace variance. Applied once at schema-generation time (builders.go)
// and again, for symmetry, wherever a formatter must re-match model output
// against the original external option text (formatters.go).
func sanitizeForJSON(s string) string {
	s = htmlJSONBreakingChars.ReplaceAllString(s, "")
	s = collapsibleWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func sanitizeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = sanitizeForJSON(v)
	}
	return out
}
