package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yishak-cs/FlavorAI/internal/extract"
	"github.com/yishak-cs/FlavorAI/internal/models"
)

func TestDefaultQuantization(t *testing.T) {
	table := DefaultQuantizationTable()
	require.NoError(t, table.Validate())

	tests := []struct {
		v    float64
		want models.Level
	}{
		{0, models.VeryLow},
		{0.1, models.VeryLow},
		{1.0 / 7, models.Low},
		{0.25, models.Low},
		{0.5, models.Medium},
		{0.75, models.High},
		{0.8, models.High},
		{0.9, models.VeryHigh},
		{1, models.VeryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, table.Quantize(tt.v), "v=%v", tt.v)
	}
}

func TestNewBuilderRejectsBadTable(t *testing.T) {
	tests := map[string]QuantizationTable{
		"not increasing": {Bounds: [6]float64{0.1, 0.2, 0.2, 0.4, 0.5, 0.6}},
		"zero bound":     {Bounds: [6]float64{0, 0.2, 0.3, 0.4, 0.5, 0.6}},
		"bound at one":   {Bounds: [6]float64{0.1, 0.2, 0.3, 0.4, 0.5, 1}},
	}
	for name, table := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewBuilder(table)
			require.Error(t, err)
			assert.True(t, models.IsConfigurationError(err))
		})
	}
}

func TestBuildNeutral(t *testing.T) {
	b, err := NewBuilder(DefaultQuantizationTable())
	require.NoError(t, err)

	p, err := b.Build("u1", extract.NeutralSignals())
	require.NoError(t, err)

	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, models.NeutralFlavorAxes(), p.FlavorAxes)
	assert.True(t, p.LowConfidence)
	assert.Empty(t, p.CuisineAffinities)
	assert.NotNil(t, p.CuisineAffinities)
	for _, slot := range models.MealSlots {
		assert.Equal(t, models.FrequencyLow, p.VisitFrequencyByMeal[slot])
	}
}

func TestBuildFromSignals(t *testing.T) {
	b, err := NewBuilder(DefaultQuantizationTable())
	require.NoError(t, err)

	s := extract.NeutralSignals()
	s.Intensity[0] = 0.8  // spice
	s.Intensity[2] = 0.05 // sweet
	s.Cuisines = []models.CuisineAffinity{{Cuisine: "Mexican", Weight: 0.6}, {Cuisine: "Thai", Weight: 0.4}}
	s.Dishes = []extract.DishCount{{Name: "Tacos", Count: 3}, {Name: "Pho", Count: 1}}
	s.DietaryRestrictions = []string{"No shellfish"}
	s.MealVisits = map[models.MealSlot]int{
		models.MealBreakfast: 1,
		models.MealLunch:     2,
		models.MealDinner:    2,
	}
	s.EventCount = 9
	s.LowConfidence = false

	p, err := b.Build("u1", s)
	require.NoError(t, err)

	assert.Equal(t, models.High, p.FlavorAxes.Get(models.AxisSpice))
	assert.Equal(t, models.VeryLow, p.FlavorAxes.Get(models.AxisSweet))
	assert.Equal(t, models.Medium, p.FlavorAxes.Get(models.AxisUmami))
	assert.Equal(t, []string{"Tacos", "Pho"}, p.FrequentDishes)
	assert.Equal(t, []string{"No shellfish"}, p.DietaryRestrictions)
	assert.Equal(t, 9, p.EventCount)
	assert.False(t, p.LowConfidence)
	assert.Equal(t, map[models.MealSlot]models.FrequencyLabel{
		models.MealBreakfast: models.FrequencyMedium,
		models.MealLunch:     models.FrequencyHigh,
		models.MealDinner:    models.FrequencyHigh,
		models.MealDessert:   models.FrequencyLow,
	}, p.VisitFrequencyByMeal)

	// the profile does not alias the signal slices
	s.Cuisines[0].Cuisine = "Changed"
	assert.Equal(t, "Mexican", p.CuisineAffinities[0].Cuisine)
}

func TestBuildRejectsInvalidAffinities(t *testing.T) {
	b, err := NewBuilder(DefaultQuantizationTable())
	require.NoError(t, err)

	s := extract.NeutralSignals()
	s.Cuisines = []models.CuisineAffinity{{Cuisine: "Thai", Weight: 0.2}, {Cuisine: "Mexican", Weight: 0.8}}
	_, err = b.Build("u1", s)
	assert.Error(t, err)
}

func TestFromOnboarding(t *testing.T) {
	p := FromOnboarding("u2", models.OnboardingAnswers{
		Favorites:           []string{"Tacos", "tacos", " ", "Pho"},
		DietaryRestrictions: []string{"Vegetarian", ""},
		Allergies:           []string{"Peanuts"},
	})

	assert.Equal(t, "u2", p.UserID)
	assert.Equal(t, models.NeutralFlavorAxes(), p.FlavorAxes)
	assert.Equal(t, []string{"Tacos", "Pho"}, p.FrequentDishes)
	assert.Equal(t, []string{"No peanuts", "Vegetarian"}, p.DietaryRestrictions)
	assert.True(t, p.LowConfidence)
	assert.NoError(t, p.Validate())
}

func TestApplyFeedback(t *testing.T) {
	p := models.TasteProfile{UserID: "u1", FlavorAxes: models.NeutralFlavorAxes()}

	updated, changed := ApplyFeedback(p, "Too salty, and not spicy enough!")
	assert.Equal(t, []models.FlavorAxis{models.AxisSpice, models.AxisSalt}, changed)
	assert.Equal(t, models.MediumHigh, updated.FlavorAxes.Get(models.AxisSpice))
	assert.Equal(t, models.MediumLow, updated.FlavorAxes.Get(models.AxisSalt))

	// input untouched
	assert.Equal(t, models.Medium, p.FlavorAxes.Get(models.AxisSalt))
	assert.Equal(t, models.Medium, p.FlavorAxes.Get(models.AxisSpice))
}

func TestApplyFeedbackClampsAtEnds(t *testing.T) {
	p := models.TasteProfile{FlavorAxes: models.NeutralFlavorAxes().With(models.AxisSweet, models.VeryLow)}

	updated, changed := ApplyFeedback(p, "too sweet")
	assert.Empty(t, changed)
	assert.Equal(t, models.VeryLow, updated.FlavorAxes.Get(models.AxisSweet))

	_, changed = ApplyFeedback(p, "lovely, would come back")
	assert.Empty(t, changed)
}
