package profile

import (
	"sort"
	"strings"

	"github.com/yishak-cs/FlavorAI/internal/models"
)

// feedbackTastes are the words recognised in "too <taste>" and
// "not <taste> enough" comments
var feedbackTastes = []string{"spicy", "salty", "sweet", "bitter", "sour", "umami"}

// FromOnboarding builds a neutral profile from explicit sign-up answers.
// Favorites become frequent dishes and each allergy becomes a "No <x>"
// restriction.
func FromOnboarding(userID string, a models.OnboardingAnswers) models.TasteProfile {
	p := models.TasteProfile{
		UserID:               userID,
		FlavorAxes:           models.NeutralFlavorAxes(),
		CuisineAffinities:    []models.CuisineAffinity{},
		DietaryRestrictions:  []string{},
		FrequentDishes:       []string{},
		VisitFrequencyByMeal: mealFrequency(nil),
		LowConfidence:        true,
	}

	seen := make(map[string]bool)
	for _, f := range a.Favorites {
		f = strings.TrimSpace(f)
		if f == "" || seen[strings.ToLower(f)] {
			continue
		}
		seen[strings.ToLower(f)] = true
		p.FrequentDishes = append(p.FrequentDishes, f)
	}

	restrictions := make(map[string]bool)
	for _, d := range a.DietaryRestrictions {
		if d = strings.TrimSpace(d); d != "" {
			restrictions[d] = true
		}
	}
	for _, al := range a.Allergies {
		if al = strings.TrimSpace(al); al != "" {
			restrictions["No "+strings.ToLower(al)] = true
		}
	}
	for r := range restrictions {
		p.DietaryRestrictions = append(p.DietaryRestrictions, r)
	}
	sort.Strings(p.DietaryRestrictions)
	return p
}

// ApplyFeedback returns a new profile with axes nudged by a free-text
// comment: "too salty" lowers salt one level, "not spicy enough" raises
// spice one level. The input is not modified.
func ApplyFeedback(p models.TasteProfile, comment string) (models.TasteProfile, []models.FlavorAxis) {
	out := p.Clone()
	text := strings.ToLower(comment)
	var changed []models.FlavorAxis

	for _, taste := range feedbackTastes {
		axis, _ := models.ParseFlavorAxis(taste)
		current := int(out.FlavorAxes.Get(axis))
		switch {
		case strings.Contains(text, "too "+taste):
			out.FlavorAxes = out.FlavorAxes.With(axis, models.ClampLevel(current-1))
		case strings.Contains(text, "not "+taste+" enough"):
			out.FlavorAxes = out.FlavorAxes.With(axis, models.ClampLevel(current+1))
		default:
			continue
		}
		if out.FlavorAxes.Get(axis) != models.Level(current) {
			changed = append(changed, axis)
		}
	}
	return out, changed
}
