package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yishak-cs/FlavorAI/internal/models"
)

func testProfile() models.TasteProfile {
	return models.TasteProfile{
		UserID:     "u1",
		FlavorAxes: models.NeutralFlavorAxes().With(models.AxisSpice, models.High),
		CuisineAffinities: []models.CuisineAffinity{
			{Cuisine: "Mexican", Weight: 0.6},
			{Cuisine: "Thai", Weight: 0.4},
		},
	}
}

var nyc = models.GeoPoint{Lat: 40.7128, Lon: -74.0060}

func TestRankScenario(t *testing.T) {
	candidates := []models.Candidate{
		{ID: "bakery", Name: "Le Pain", Cuisine: "French"},
		{
			ID: "thai-1", Name: "Thai Basil", Cuisine: "Thai",
			Attributes: &models.CandidateAttributes{Flavor: map[models.FlavorAxis]models.Level{
				models.AxisSpice: models.VeryHigh,
				models.AxisSweet: models.Medium,
			}},
		},
		{
			ID: "taq-1", Name: "Taqueria Sol", Cuisine: "Mexican",
			Attributes: &models.CandidateAttributes{Flavor: map[models.FlavorAxis]models.Level{
				models.AxisSpice: models.High,
			}},
		},
	}

	recs, err := NewRanker(DefaultWeights()).Rank(testProfile(), candidates, Config{})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "taq-1", recs[0].CandidateID)
	assert.InDelta(t, 0.9, recs[0].Score, 1e-9)
	assert.Equal(t, []string{
		"Matches your spice preference",
		"Mexican is one of your preferred cuisines",
	}, recs[0].MatchReasons)

	assert.Equal(t, "thai-1", recs[1].CandidateID)
	assert.InDelta(t, 0.6*(5.0/6+1)/2+0.3*(0.4/0.6), recs[1].Score, 1e-9)
	assert.Equal(t, []string{
		"Matches your spice preference",
		"Matches your sweet preference",
		"Thai is one of your preferred cuisines",
	}, recs[1].MatchReasons)

	assert.Equal(t, "bakery", recs[2].CandidateID)
	assert.Equal(t, 0.0, recs[2].Score)
	assert.Empty(t, recs[2].MatchReasons)

	for i, r := range recs {
		assert.Equal(t, i+1, r.Rank)
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestRankTiesBreakByCandidateID(t *testing.T) {
	items := []*scored{
		{candidate: models.Candidate{ID: "b"}, score: 0.42},
		{candidate: models.Candidate{ID: "a"}, score: 0.42},
		{candidate: models.Candidate{ID: "c"}, score: 0.9},
	}
	sortScored(items, func(s *scored) float64 { return s.score })
	assert.Equal(t, "c", items[0].candidate.ID)
	assert.Equal(t, "a", items[1].candidate.ID)
	assert.Equal(t, "b", items[2].candidate.ID)

	candidates := []models.Candidate{
		{ID: "b", Cuisine: "Thai"},
		{ID: "a", Cuisine: "Thai"},
	}
	recs, err := NewRanker(DefaultWeights()).Rank(testProfile(), candidates, Config{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, recs[0].Score, recs[1].Score)
	assert.Equal(t, "a", recs[0].CandidateID)
	assert.Equal(t, 1, recs[0].Rank)
	assert.Equal(t, "b", recs[1].CandidateID)
	assert.Equal(t, 2, recs[1].Rank)
}

func TestRankTruncatesAfterRanking(t *testing.T) {
	candidates := []models.Candidate{
		{ID: "z-low", Cuisine: "French"},
		{ID: "y-mid", Cuisine: "Thai"},
		{ID: "x-top", Cuisine: "Mexican"},
	}
	recs, err := NewRanker(DefaultWeights()).Rank(testProfile(), candidates, Config{MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "x-top", recs[0].CandidateID)
	assert.Equal(t, "y-mid", recs[1].CandidateID)
	assert.Equal(t, 2, recs[1].Rank)
}

func TestRankEmptyCandidates(t *testing.T) {
	recs, err := NewRanker(DefaultWeights()).Rank(testProfile(), nil, Config{MaxResults: 3})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestRankRejectsInvalidConfig(t *testing.T) {
	candidates := []models.Candidate{{ID: "a", Cuisine: "Thai"}}
	tests := map[string]Config{
		"negative radius":       {Origin: &nyc, Radius: &Distance{Value: -1, Unit: Kilometers}},
		"negative max results":  {MaxResults: -1},
		"radius without origin": {Radius: &Distance{Value: 5, Unit: Miles}},
		"unknown unit":          {Origin: &nyc, Radius: &Distance{Value: 5, Unit: Unit("furlongs")}},
		"origin out of range":   {Origin: &models.GeoPoint{Lat: 95, Lon: 0}},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			recs, err := NewRanker(DefaultWeights()).Rank(testProfile(), candidates, cfg)
			require.Error(t, err)
			assert.True(t, models.IsConfigurationError(err))
			assert.Nil(t, recs)
		})
	}

	// rejected even when there is nothing to rank
	_, err := NewRanker(DefaultWeights()).Rank(testProfile(), nil, Config{Origin: &nyc, Radius: &Distance{Value: -2, Unit: Miles}})
	assert.True(t, models.IsConfigurationError(err))
}

func TestRankCandidateWithoutAttributesUsesCuisineOnly(t *testing.T) {
	recs, err := NewRanker(DefaultWeights()).Rank(testProfile(), []models.Candidate{{ID: "a", Cuisine: "mexican"}}, Config{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 0.3, recs[0].Score, 1e-9)
	assert.Equal(t, []string{"mexican is one of your preferred cuisines"}, recs[0].MatchReasons)
}

func TestRankRadiusFilter(t *testing.T) {
	near := models.GeoPoint{Lat: 40.7138, Lon: -74.0060}
	far := models.GeoPoint{Lat: 41.0, Lon: -74.0060}
	candidates := []models.Candidate{
		{ID: "near", Cuisine: "Thai", Location: &near},
		{ID: "far", Cuisine: "Mexican", Location: &far},
		{ID: "unknown", Cuisine: "French"},
	}
	cfg := Config{Origin: &nyc, Radius: &Distance{Value: 5, Unit: Kilometers}}

	recs, err := NewRanker(DefaultWeights()).Rank(testProfile(), candidates, cfg)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "near", recs[0].CandidateID)
	assert.Equal(t, "unknown", recs[1].CandidateID)
	assert.Contains(t, recs[0].MatchReasons, "0.1 km away")
	assert.Empty(t, recs[1].MatchReasons)
}

func TestRankTriedPenaltyReasonOnlyWhenRankMoves(t *testing.T) {
	ranker := NewRanker(DefaultWeights())
	withTacos := models.Candidate{ID: "a", Cuisine: "Mexican", Attributes: &models.CandidateAttributes{Dishes: []string{"tacos", "elote"}}}
	plain := models.Candidate{ID: "b", Cuisine: "Mexican"}

	recs, err := ranker.Rank(testProfile(), []models.Candidate{withTacos, plain}, Config{ExcludeDishes: []string{"Tacos"}})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].CandidateID)
	assert.Equal(t, "a", recs[1].CandidateID)
	assert.InDelta(t, 0.25, recs[1].Score, 1e-9)
	assert.Equal(t, "You've already tried Tacos", recs[1].MatchReasons[len(recs[1].MatchReasons)-1])

	// alone, the penalty lowers the score but not the position
	recs, err = ranker.Rank(testProfile(), []models.Candidate{withTacos}, Config{ExcludeDishes: []string{"Tacos"}})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, recs[0].Score, 1e-9)
	assert.NotContains(t, recs[0].MatchReasons, "You've already tried Tacos")
}

func TestRankTriedPenaltyIsCapped(t *testing.T) {
	c := models.Candidate{ID: "a", Name: "Taco Hut", Cuisine: "Mexican", Attributes: &models.CandidateAttributes{
		Dishes: []string{"tacos", "nachos", "burrito", "quesadilla"},
	}}
	recs, err := NewRanker(DefaultWeights()).Rank(testProfile(), []models.Candidate{c}, Config{
		ExcludeDishes: []string{"tacos", "nachos", "burrito", "quesadilla", "Taco Hut"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.3-0.15, recs[0].Score, 1e-9)
}

func TestHaversineKm(t *testing.T) {
	la := models.GeoPoint{Lat: 34.0522, Lon: -118.2437}
	assert.InDelta(t, 3936, HaversineKm(nyc, la), 5)
	assert.Equal(t, 0.0, HaversineKm(nyc, nyc))
}

func TestDistanceUnits(t *testing.T) {
	u, err := ParseUnit("Miles")
	require.NoError(t, err)
	assert.Equal(t, Miles, u)

	_, err = ParseUnit("leagues")
	assert.Error(t, err)

	assert.InDelta(t, 1.609344, Distance{Value: 1, Unit: Miles}.Kilometers(), 1e-12)
	assert.InDelta(t, 0.25, Distance{Value: 250, Unit: Meters}.Kilometers(), 1e-12)
	assert.InDelta(t, 1.0, fromKilometers(1.609344, Miles), 1e-12)
}

func TestRankExcludesCandidatesConflictingWithRestrictions(t *testing.T) {
	p := testProfile()
	p.DietaryRestrictions = []string{"No shellfish", "Gluten-free"}
	candidates := []models.Candidate{
		{
			ID: "shack", Name: "Burger & Shrimp Shack", Cuisine: "Mexican",
			Attributes: &models.CandidateAttributes{
				Flavor: map[models.FlavorAxis]models.Level{models.AxisSpice: models.High},
				Dishes: []string{"shrimp tacos", "burger"},
			},
		},
		{ID: "crab", Name: "Harbor House", Cuisine: "Mexican", Attributes: &models.CandidateAttributes{Dishes: []string{"Crab Cakes"}}},
		{ID: "taq-1", Name: "Taqueria Sol", Cuisine: "Thai", Attributes: &models.CandidateAttributes{Dishes: []string{"al pastor"}}},
	}

	ranker := NewRanker(DefaultWeights()).WithFoodTerms(map[string]string{
		"shrimp": "No shellfish",
		"crab":   "No shellfish",
		"wheat":  "Gluten-free",
	})
	recs, err := ranker.Rank(p, candidates, Config{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "taq-1", recs[0].CandidateID)
	assert.Equal(t, 1, recs[0].Rank)

	// burgers conflict with gluten-free even without any food terms
	p.DietaryRestrictions = []string{"gluten-free"}
	recs, err = NewRanker(DefaultWeights()).Rank(p, candidates[:1], Config{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRestrictionIndexConflict(t *testing.T) {
	idx := newRestrictionIndex(map[string]string{"shrimp": "No shellfish", "peanuts": "No peanuts"})

	restriction, food, ok := idx.conflict([]string{"Vegetarian", "No shellfish"},
		models.Candidate{Name: "Shrimp-N-Grits"})
	require.True(t, ok)
	assert.Equal(t, "No shellfish", restriction)
	assert.Equal(t, "shrimp", food)

	// a "No <food>" restriction matches the food by name
	_, food, ok = idx.conflict([]string{"No sesame"},
		models.Candidate{Name: "Noodle Bar", Attributes: &models.CandidateAttributes{Dishes: []string{"Sesame Noodles"}}})
	require.True(t, ok)
	assert.Equal(t, "sesame", food)

	// whole tokens only
	_, _, ok = idx.conflict([]string{"No peanuts"}, models.Candidate{Name: "Peanutsy Diner"})
	assert.False(t, ok)
	_, _, ok = idx.conflict(nil, models.Candidate{Name: "Shrimp Shack"})
	assert.False(t, ok)
}

func TestConfigValidateMaxResultsMessage(t *testing.T) {
	err := Config{MaxResults: -2}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be >= 0, got -2")

	assert.NoError(t, Config{MaxResults: 0}.Validate())
}
