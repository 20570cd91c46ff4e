package retriever

import (
	"regexp"
	"strings"
)

// maxQueryTokens caps the number of terms sent to FTS5
const maxQueryTokens = 25

var queryTokenRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// ftsQuery reduces free text to a safe FTS5 MATCH expression: bare
// word tokens OR-ed together. Punctuation and operators are stripped so
// user input cannot produce FTS syntax errors. Returns "" when the query
// holds no usable tokens, which skips the keyword signal entirely.
func ftsQuery(query string) string {
	tokens := queryTokenRe.FindAllString(query, -1)
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	return strings.Join(tokens, " OR ")
}
