package embedder

import (
	"strings"
	"unicode"
)

// normalizeText lowercases text, turns punctuation into spaces and collapses whitespace.
func normalizeText(q string) string {
	lowered := strings.ToLower(strings.TrimSpace(q))
	var builder strings.Builder
	builder.Grow(len(lowered))
	lastSpace := true
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
			lastSpace = false
			continue
		}
		// apostrophes glue contractions: can't -> cant
		if r == '\'' || r == '’' {
			continue
		}
		if !lastSpace {
			builder.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "of": {}, "to": {}, "in": {},
	"on": {}, "at": {}, "for": {}, "with": {}, "is": {}, "are": {}, "was": {}, "be": {}, "do": {},
	"does": {}, "did": {}, "i": {}, "me": {}, "my": {}, "you": {}, "your": {}, "it": {}, "this": {},
	"that": {}, "what": {}, "how": {}, "can": {}, "should": {}, "would": {}, "about": {}, "if": {},
}

// tokenize splits normalized text into content words. Text made only of stop
// words keeps all of them so it still embeds to a non-zero vector.
func tokenize(text string) []string {
	fields := strings.Fields(normalizeText(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopWords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return fields
	}
	return out
}
