package fraud

import (
	"strings"
	"unicode"
)

// accentFolds maps language-specific accented letters to stable comparison
// forms. Folding is only applied to the comparison copy, display text is
// untouched elsewhere in the pipeline.
var accentFolds = map[rune]rune{
	'å': 'a', 'ä': 'a', 'á': 'a', 'à': 'a', 'â': 'a', 'ã': 'a',
	'ö': 'o', 'ó': 'o', 'ò': 'o', 'ô': 'o', 'õ': 'o', 'ø': 'o',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u',
	'ý': 'y', 'ÿ': 'y',
	'ñ': 'n', 'ç': 'c',
	'æ': 'a', 'ß': 's',
}

// defaultStopWords covers the most frequent Swedish and English filler words
// seen in feedback transcripts.
var defaultStopWords = []string{
	// Swedish
	"och", "att", "det", "som", "en", "ett", "ar", "pa", "av", "for",
	"med", "den", "till", "de", "inte", "jag", "har", "vi", "man", "var",
	// English
	"the", "a", "an", "and", "or", "is", "was", "are", "were", "it",
	"to", "of", "in", "on", "at", "this", "that", "i", "we", "my",
}

// Normalizer performs language-aware canonicalization of transcript text
type Normalizer struct {
	stopWords map[string]struct{}
}

// NewNormalizer creates a normalizer. With no stop words given, the built-in
// Swedish and English list is used.
func NewNormalizer(stopWords []string) *Normalizer {
	if stopWords == nil {
		stopWords = defaultStopWords
	}
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[foldString(strings.ToLower(w))] = struct{}{}
	}
	return &Normalizer{stopWords: set}
}

// Normalize lowercases, folds accents, strips punctuation, collapses
// whitespace and removes stop words. It is idempotent.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokenize(text), " ")
}

// Tokenize returns the ordered token sequence of the canonical text
func (n *Normalizer) Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if folded, ok := accentFolds[r]; ok {
			r = folded
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := n.stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// tokenLengths returns the sentence "shape": the length of each token in order
func tokenLengths(tokens []string) []int {
	lengths := make([]int, len(tokens))
	for i, t := range tokens {
		lengths[i] = len([]rune(t))
	}
	return lengths
}

func foldString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if folded, ok := accentFolds[r]; ok {
			r = folded
		}
		b.WriteRune(r)
	}
	return b.String()
}
