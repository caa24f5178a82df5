package services

import (
	"strings"
	"unicode"
)

// TextAnalyzer turns free OCR text into comparable token sets.
// OCR output is noisy, so tokenization is deliberately forgiving: anything
// that is not a letter or digit is a separator.
type TextAnalyzer interface {
	// Tokenize breaks text into a set of unique lowercase tokens
	Tokenize(text string) map[string]bool

	// Keywords returns tokens with stop words and short fragments removed
	Keywords(text string) map[string]bool
}

// DefaultTextAnalyzer provides the default implementation of TextAnalyzer
type DefaultTextAnalyzer struct {
	stopWords     map[string]bool
	minTokenChars int
}

// NewDefaultTextAnalyzer creates a text analyzer with common English stop words
func NewDefaultTextAnalyzer() *DefaultTextAnalyzer {
	return &DefaultTextAnalyzer{
		stopWords:     defaultStopWords(),
		minTokenChars: 3,
	}
}

// Tokenize breaks text into a set of unique lowercase tokens
func (ta *DefaultTextAnalyzer) Tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	var current strings.Builder

	flush := func() {
		if current.Len() > 1 {
			tokens[current.String()] = true
		}
		current.Reset()
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// Keywords returns tokens with stop words and short fragments removed
func (ta *DefaultTextAnalyzer) Keywords(text string) map[string]bool {
	keywords := make(map[string]bool)
	for token := range ta.Tokenize(text) {
		if len(token) < ta.minTokenChars || ta.stopWords[token] {
			continue
		}
		keywords[token] = true
	}
	return keywords
}

// defaultStopWords returns a set of common English stop words
func defaultStopWords() map[string]bool {
	words := []string{
		"the", "be", "to", "of", "and", "a", "in", "that", "have", "i",
		"it", "for", "not", "on", "with", "he", "as", "you", "do", "at",
		"this", "but", "his", "by", "from", "they", "we", "say", "her", "she",
		"or", "an", "will", "my", "one", "all", "would", "there", "their", "what",
		"so", "up", "out", "if", "about", "who", "get", "which", "go", "me",
		"when", "make", "can", "like", "time", "no", "just", "him", "know", "take",
		"into", "year", "your", "some", "could", "them", "see", "other", "than",
		"then", "now", "only", "come", "its", "over", "also", "back", "after",
		"use", "two", "how", "our", "well", "way", "even", "new", "want",
		"because", "any", "these", "give", "day", "most", "us", "is", "was",
		"are", "been", "has", "had", "were", "said", "did", "having", "may",
		"am", "should", "too", "very",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
