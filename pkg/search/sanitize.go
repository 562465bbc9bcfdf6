package search

import (
	"strings"
	"unicode/utf8"
)

const maxQueryLength = 100

// quoteTerm makes s a literal FTS5 string so operators such as OR, NEAR or
// column filters in user input are matched as text.
func quoteTerm(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// truncate cuts s to maxQueryLength bytes without splitting a character.
func truncate(s string) string {
	if len(s) <= maxQueryLength {
		return s
	}
	s = s[:maxQueryLength]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// BuildPrefixQuery turns free text into an FTS5 query in which every word is
// a literal prefix term and all of them must match, so "wiz earth" finds
// "A Wizard of Earthsea". Blank input gives the empty string.
func BuildPrefixQuery(userInput string) string {
	words := strings.Fields(truncate(strings.TrimSpace(userInput)))
	terms := make([]string, 0, len(words))
	for _, word := range words {
		terms = append(terms, quoteTerm(word)+"*")
	}
	return strings.Join(terms, " ")
}
