package fuzzy

import (
	"fmt"
	"strings"
	"time"
)

const (
	minDuration = 30 * time.Second
	maxDuration = 20 * time.Minute

	strictRatio    = 0.4
	thresholdRatio = 0.3
	noSignalRatio  = 0.6

	prefixRunes = 3
)

var (
	unwantedKeywords = []string{"cover", "remix", "live", "sped up", "slowed", "lyrics", "fan made"}
	musicSignals     = []string{"official", "music", "video", "clip", "mv", "theme", "soundtrack", "audio"}
)

// Candidate is a video considered for a query.
type Candidate struct {
	Title    string
	Duration time.Duration
}

// Verdict is the outcome of evaluating one candidate.
type Verdict struct {
	Accepted bool
	Reason   string
	Matched  int
	Tokens   int
}

// IsAcceptableMatch reports whether candidate plausibly is the official video for query.
func IsAcceptableMatch(candidate Candidate, query string) bool {
	return Evaluate(candidate, query).Accepted
}

// Evaluate applies the duration gate, the unwanted content gate, lexical overlap
// and the music signal check, in that order.
func Evaluate(candidate Candidate, query string) Verdict {
	if candidate.Duration < minDuration || candidate.Duration > maxDuration {
		return Verdict{Reason: fmt.Sprintf("duration %s outside %s-%s", candidate.Duration, minDuration, maxDuration)}
	}

	rawTitle := strings.ToLower(candidate.Title)
	rawQuery := strings.ToLower(query)

	for _, keyword := range unwantedKeywords {
		if strings.Contains(rawTitle, keyword) && !strings.Contains(rawQuery, keyword) {
			return Verdict{Reason: fmt.Sprintf("unwanted content %q", keyword)}
		}
	}

	title := Normalize(candidate.Title)
	tokens := queryTokens(query)
	n := len(tokens)

	matched := countStrict(title, tokens)
	if matched < floorRatio(n, strictRatio) {
		matched = countLoose(title, tokens)
	}

	v := Verdict{Matched: matched, Tokens: n}

	if threshold := max(1, floorRatio(n, thresholdRatio)); matched < threshold {
		v.Reason = fmt.Sprintf("overlap %d/%d below %d", matched, n, threshold)
		return v
	}

	if !containsAny(rawTitle, musicSignals) {
		if required := floorRatio(n, noSignalRatio); matched < required {
			v.Reason = fmt.Sprintf("no music signal and overlap %d/%d below %d", matched, n, required)
			return v
		}
	}

	v.Accepted = true
	return v
}

func countStrict(title string, tokens []string) int {
	matched := 0
	for _, token := range tokens {
		if strings.Contains(title, token) {
			matched++
		}
	}
	return matched
}

// countLoose matches tokens by their three-rune prefix, either anywhere in the
// title or against the prefix of a title word.
func countLoose(title string, tokens []string) int {
	titleWords := strings.Fields(title)

	matched := 0
	for _, token := range tokens {
		start := prefix(token, prefixRunes)
		if strings.Contains(title, start) {
			matched++
			continue
		}
		for _, word := range titleWords {
			if strings.HasPrefix(word, start) || strings.HasPrefix(start, prefix(word, prefixRunes)) {
				matched++
				break
			}
		}
	}
	return matched
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func floorRatio(n int, ratio float64) int {
	return int(float64(n) * ratio)
}
