package search

import (
	"strings"
	"unicode"
)

// Stop words ignored when checking for verbatim matches
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
	"的": true, "了": true, "是": true, "在": true, "和": true,
}

// tokenize lowercases text and splits it into words, dropping stop words.
// Han characters carry no spacing, so each one is its own token.
func tokenize(text string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		if w := word.String(); !stopWords[w] {
			tokens = append(tokens, w)
		}
		word.Reset()
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			word.WriteRune(r)
			flush()
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// containsAllQueryWords checks if every query token appears in the document.
func containsAllQueryWords(document, query string) bool {
	queryWords := tokenize(query)
	if len(queryWords) == 0 {
		return false
	}

	docWords := make(map[string]bool)
	for _, word := range tokenize(document) {
		docWords[word] = true
	}
	for _, word := range queryWords {
		if !docWords[word] {
			return false
		}
	}
	return true
}
