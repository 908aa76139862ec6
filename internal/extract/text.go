package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalize lower-cases s and strips diacritics so "Jalapeño" matches "jalapeno"
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// sentences splits review text on terminal punctuation and line breaks
func sentences(s string) [][]string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '.', '!', '?', ';', '\n', '\r':
			return true
		}
		return false
	})
	out := make([][]string, 0, len(parts))
	for _, p := range parts {
		if toks := tokenize(p); len(toks) > 0 {
			out = append(out, toks)
		}
	}
	return out
}

type phrase []string

func compilePhrases(words []string) []phrase {
	out := make([]phrase, 0, len(words))
	for _, w := range words {
		if toks := tokenize(w); len(toks) > 0 {
			out = append(out, toks)
		}
	}
	return out
}

// matchAt reports whether p occurs in tokens starting at i
func (p phrase) matchAt(tokens []string, i int) bool {
	if i+len(p) > len(tokens) {
		return false
	}
	for j, t := range p {
		if tokens[i+j] != t {
			return false
		}
	}
	return true
}

func containsAny(tokens []string, phrases []phrase) bool {
	for i := range tokens {
		for _, p := range phrases {
			if p.matchAt(tokens, i) {
				return true
			}
		}
	}
	return false
}
