// Package extract derives flavor, cuisine, dietary and timing signals from
// normalized Takeout events.
package extract

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/yishak-cs/FlavorAI/internal/models"
)

// NeutralIntensity is the intensity of an axis with no evidence
const NeutralIntensity = 0.5

// intensifierBoost multiplies a hit directly preceded by an intensifier
const intensifierBoost = 1.5

// ratingWeights turns a star rating into the sign and strength of the
// flavor mentions in that review
var ratingWeights = map[int]float64{5: 1.0, 4: 0.5, 3: 0.25, 2: -0.5, 1: -1.0}

// DishCount is an ordered dish with its total quantity
type DishCount struct {
	Name  string
	Count int
}

// Signals is the extractor output consumed by the profile builder
type Signals struct {
	// Intensity per axis in (0,1), indexed like models.FlavorAxes
	Intensity           [len(models.FlavorAxes)]float64
	Cuisines            []models.CuisineAffinity
	DietaryRestrictions []string
	Dishes              []DishCount
	MealVisits          map[models.MealSlot]int
	EventCount          int
	LowConfidence       bool
}

// NeutralSignals is the output for an empty event sequence
func NeutralSignals() Signals {
	var s Signals
	for i := range s.Intensity {
		s.Intensity[i] = NeutralIntensity
	}
	s.MealVisits = make(map[models.MealSlot]int, len(models.MealSlots))
	for _, slot := range models.MealSlots {
		s.MealVisits[slot] = 0
	}
	s.Cuisines = []models.CuisineAffinity{}
	s.DietaryRestrictions = []string{}
	s.Dishes = []DishCount{}
	s.LowConfidence = true
	return s
}

type foodTerm struct {
	phrase      phrase
	restriction string
}

// Extractor holds a compiled Config. It has no mutable state and may be
// shared between goroutines.
type Extractor struct {
	lexicon      [len(models.FlavorAxes)][]phrase
	intensifiers map[string]bool
	negatives    []phrase
	foodTerms    []foodTerm
	cuisines     CuisineResolver
	minEvents    int
	location     *time.Location
}

// NewExtractor compiles cfg
func NewExtractor(cfg Config) *Extractor {
	e := &Extractor{
		intensifiers: make(map[string]bool, len(cfg.Intensifiers)),
		negatives:    compilePhrases(cfg.NegativeSignals),
		cuisines:     cfg.Cuisines,
		minEvents:    cfg.MinEventsForConfidence,
		location:     cfg.Location,
	}
	for i, axis := range models.FlavorAxes {
		phrases := compilePhrases(cfg.Lexicon[axis])
		// longest phrase first so "hot sauce" is consumed as one hit
		sort.SliceStable(phrases, func(a, b int) bool { return len(phrases[a]) > len(phrases[b]) })
		e.lexicon[i] = phrases
	}
	for _, w := range cfg.Intensifiers {
		for _, tok := range tokenize(w) {
			e.intensifiers[tok] = true
		}
	}

	terms := make([]string, 0, len(cfg.FoodTerms))
	for term := range cfg.FoodTerms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	for _, term := range terms {
		if toks := tokenize(term); len(toks) > 0 {
			e.foodTerms = append(e.foodTerms, foodTerm{phrase: toks, restriction: cfg.FoodTerms[term]})
		}
	}
	return e
}

// Extract derives Signals from events. It never fails: an empty sequence
// yields NeutralSignals.
func (e *Extractor) Extract(events []models.RawEvent) Signals {
	out := NeutralSignals()
	out.EventCount = len(events)
	out.LowConfidence = len(events) < e.minEvents || len(events) == 0
	if len(events) == 0 {
		return out
	}

	var raw [len(models.FlavorAxes)]float64
	restrictions := make(map[string]bool)
	cuisineCounts := make(map[string]int)
	cuisineNames := make(map[string]string)
	dishCounts := make(map[string]int)
	dishNames := make(map[string]string)

	for _, ev := range events {
		if venueID, ok := ev.VenueID(); ok && e.cuisines != nil {
			if cuisine, ok := e.cuisines.CuisineFor(venueID); ok {
				key := strings.ToLower(strings.TrimSpace(cuisine))
				if _, seen := cuisineNames[key]; !seen {
					cuisineNames[key] = strings.TrimSpace(cuisine)
				}
				cuisineCounts[key]++
			}
		}

		switch ev.Kind() {
		case models.EventVisit:
			out.MealVisits[e.mealSlot(ev.Timestamp())]++
		case models.EventReview:
			review, _ := ev.Review()
			weight := ratingWeights[review.Rating]
			for _, sentence := range sentences(review.Text) {
				for i := range raw {
					raw[i] += e.axisHits(i, sentence) * weight
				}
				for _, r := range e.restrictionsIn(sentence) {
					restrictions[r] = true
				}
			}
		case models.EventOrder:
			order, _ := ev.Order()
			for _, item := range order.Items {
				key := strings.ToLower(strings.TrimSpace(item.Name))
				if key == "" {
					continue
				}
				if _, seen := dishNames[key]; !seen {
					dishNames[key] = strings.TrimSpace(item.Name)
				}
				dishCounts[key] += item.Quantity
			}
		}
	}

	for i, r := range raw {
		out.Intensity[i] = NeutralIntensity + 0.5*r/(math.Abs(r)+1)
	}
	out.Cuisines = cuisineAffinities(cuisineCounts, cuisineNames)
	out.Dishes = rankDishes(dishCounts, dishNames)
	for r := range restrictions {
		out.DietaryRestrictions = append(out.DietaryRestrictions, r)
	}
	sort.Strings(out.DietaryRestrictions)
	return out
}

// MealSlotFor buckets a local time: [05,11) breakfast, [11,16) lunch,
// [16,22) dinner, otherwise dessert
func MealSlotFor(t time.Time) models.MealSlot {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return models.MealBreakfast
	case h >= 11 && h < 16:
		return models.MealLunch
	case h >= 16 && h < 22:
		return models.MealDinner
	default:
		return models.MealDessert
	}
}

func (e *Extractor) mealSlot(t time.Time) models.MealSlot {
	if e.location != nil {
		t = t.In(e.location)
	}
	return MealSlotFor(t)
}

// axisHits counts lexicon matches for one axis in a tokenized sentence. Each
// token position is consumed by at most one phrase.
func (e *Extractor) axisHits(axis int, tokens []string) float64 {
	hits := 0.0
	for i := 0; i < len(tokens); {
		matched := 0
		for _, p := range e.lexicon[axis] {
			if p.matchAt(tokens, i) {
				matched = len(p)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		if i > 0 && e.intensifiers[tokens[i-1]] {
			hits += intensifierBoost
		} else {
			hits++
		}
		i += matched
	}
	return hits
}

// restrictionsIn returns restrictions only when a negative signal and a food
// term share the sentence
func (e *Extractor) restrictionsIn(tokens []string) []string {
	if !containsAny(tokens, e.negatives) {
		return nil
	}
	var out []string
	for _, term := range e.foodTerms {
		if containsAny(tokens, []phrase{term.phrase}) {
			out = append(out, term.restriction)
		}
	}
	return out
}

func cuisineAffinities(counts map[string]int, names map[string]string) []models.CuisineAffinity {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]models.CuisineAffinity, 0, len(counts))
	if total == 0 {
		return out
	}
	for key, c := range counts {
		out = append(out, models.CuisineAffinity{Cuisine: names[key], Weight: float64(c) / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Cuisine < out[j].Cuisine
	})
	return clampWeights(out)
}

// clampWeights removes float rounding excess from the smallest weight so the
// sum never exceeds 1 and the order is kept
func clampWeights(in []models.CuisineAffinity) []models.CuisineAffinity {
	sum := 0.0
	for _, a := range in {
		sum += a.Weight
	}
	if last := len(in) - 1; sum > 1 && last >= 0 {
		in[last].Weight = math.Max(0, in[last].Weight-(sum-1))
	}
	return in
}

func rankDishes(counts map[string]int, names map[string]string) []DishCount {
	out := make([]DishCount, 0, len(counts))
	for key, c := range counts {
		out = append(out, DishCount{Name: names[key], Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
