// Package similarity scores how closely two short texts match. It is a
// keyword-overlap heuristic, not a language model: good enough to find a
// checkpoint from a loose description.
package similarity

import (
	"strings"
	"unicode"
)

// Scorer rates candidate against query. Implementations return a value in
// [0,1], are deterministic, and return 0 when either side is empty.
type Scorer interface {
	Score(query, candidate string) float64
}

// ScorerFunc adapts an ordinary function to the Scorer interface.
type ScorerFunc func(query, candidate string) float64

// Score calls f(query, candidate).
func (f ScorerFunc) Score(query, candidate string) float64 {
	return f(query, candidate)
}

// stopwords are dropped before comparing.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true,
	"this": true, "to": true, "was": true, "with": true,
}

// Keyword scores texts by the Dice coefficient of their keyword sets:
// 2*|Q∩C| / (|Q|+|C|).
type Keyword struct{}

// Score implements Scorer.
func (Keyword) Score(query, candidate string) float64 {
	q := Keywords(query)
	c := Keywords(candidate)
	if len(q) == 0 || len(c) == 0 {
		return 0
	}

	shared := 0
	for word := range q {
		if c[word] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(q)+len(c))
}

// Keywords returns the distinct lowercase words of text, ignoring stopwords,
// punctuation and single characters.
func Keywords(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]bool, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 || stopwords[w] {
			continue
		}
		set[w] = true
	}
	return set
}
