package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minWordLength is the shortest word kept when splitting terms into words.
const minWordLength = 3

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "any": true, "all": true, "what": true, "about": true,
	"programs": true, "program": true, "courses": true, "course": true,
	"degree": true, "degrees": true, "classes": true, "want": true, "like": true,
	"looking": true, "find": true, "show": true, "some": true, "there": true,
}

// suffixes are stripped by stem, longest first where they overlap.
var suffixes = []string{"ing", "ers", "ies", "es", "er", "s", "ant", "ist", "ian"}

// minStemLength is the shortest stem stem will produce.
const minStemLength = 4

// stem strips one common English suffix from word.
func stem(word string) string {
	for _, suf := range suffixes {
		if strings.HasSuffix(word, suf) && utf8.RuneCountInString(word)-len(suf) >= minStemLength {
			return strings.TrimSuffix(word, suf)
		}
	}
	return word
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// splitWords lowercases text and splits it on whitespace and punctuation,
// keeping words of at least minWordLength runes that are not stop words.
func splitWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), isWordSeparator)
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if utf8.RuneCountInString(w) < minWordLength || stopWords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}

// compoundVariant joins a multi-word term into a single word, so
// "cyber security" also matches "cybersecurity". Returns "" when the term
// has nothing to join.
func compoundVariant(term string) string {
	joined := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			return -1
		}
		return r
	}, term)
	if joined == term {
		return ""
	}
	return joined
}

// normalizeTerm lowercases a term and collapses its whitespace.
func normalizeTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

// dedupeTerms normalizes terms and drops empties and repeats, keeping the
// first occurrence of each.
func dedupeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = normalizeTerm(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
