// Package fuzzy decides whether a video title plausibly is the official video
// of a track query.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// minTokenRunes is the length a query word must exceed to count.
const minTokenRunes = 2

var (
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalize folds text for comparison: diacritics removed, punctuation turned
// into spaces, whitespace collapsed, lowercased.
func Normalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return strings.TrimSpace(strings.ToLower(text))
}

// queryTokens returns the normalized words of query longer than two runes.
func queryTokens(query string) []string {
	fields := strings.Fields(Normalize(query))
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > minTokenRunes {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
