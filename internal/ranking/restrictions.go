package ranking

import (
	"strings"
	"unicode"

	"github.com/yishak-cs/FlavorAI/internal/models"
)

// restrictionDishes lists dishes that conflict with a restriction even though
// they never name the restricted ingredient
var restrictionDishes = map[string][]string{
	"gluten-free": {"burger", "burgers", "pizza", "pasta", "bread", "bagel", "dumplings", "ramen", "udon"},
	"vegetarian":  {"steak", "burger", "burgers", "chicken", "bbq", "barbecue", "bacon", "ham", "brisket"},
	"no pork":     {"bacon", "ham", "carnitas", "chorizo"},
}

// restrictionIndex maps a lower-cased restriction label to the tokenized food
// phrases that conflict with it
type restrictionIndex map[string][][]string

func newRestrictionIndex(foodTerms map[string]string) restrictionIndex {
	idx := make(restrictionIndex)
	for label, dishes := range restrictionDishes {
		for _, d := range dishes {
			idx.add(label, d)
		}
	}
	for term, label := range foodTerms {
		idx.add(strings.ToLower(strings.TrimSpace(label)), term)
	}
	return idx
}

func (idx restrictionIndex) add(label, phrase string) {
	if toks := foodTokens(phrase); label != "" && len(toks) > 0 {
		idx[label] = append(idx[label], toks)
	}
}

// conflict returns the first restriction the candidate violates and the food
// that triggered it. "No <food>" restrictions also match <food> itself.
func (idx restrictionIndex) conflict(restrictions []string, c models.Candidate) (string, string, bool) {
	if len(restrictions) == 0 {
		return "", "", false
	}
	foods := [][]string{foodTokens(c.Name)}
	if c.Attributes != nil {
		for _, d := range c.Attributes.Dishes {
			foods = append(foods, foodTokens(d))
		}
	}

	for _, r := range restrictions {
		label := strings.ToLower(strings.TrimSpace(r))
		phrases := idx[label]
		if rest, ok := strings.CutPrefix(label, "no "); ok {
			if toks := foodTokens(rest); len(toks) > 0 {
				phrases = append(phrases[:len(phrases):len(phrases)], toks)
			}
		}
		for _, p := range phrases {
			for _, f := range foods {
				if containsPhrase(f, p) {
					return r, strings.Join(p, " "), true
				}
			}
		}
	}
	return "", "", false
}

func foodTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsPhrase(tokens, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, p := range phrase {
			if tokens[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
