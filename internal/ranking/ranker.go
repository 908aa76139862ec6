// Package ranking scores candidate venues against a taste profile.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yishak-cs/FlavorAI/internal/models"
)

// Config holds the per-request ranking options
type Config struct {
	// MaxResults truncates the ranked list; 0 keeps every candidate
	MaxResults int
	// Origin is the caller's position, required when Radius is set
	Origin *models.GeoPoint
	// Radius drops located candidates farther than this from Origin
	Radius *Distance
	// ExcludeDishes are dishes (or venue names) the caller has already tried
	ExcludeDishes []string
}

// Validate rejects out-of-range options before any scoring happens
func (c Config) Validate() error {
	if c.MaxResults < 0 {
		return models.NewConfigurationError("max_results", "must be >= 0, got %d", c.MaxResults)
	}
	if c.Origin != nil {
		if c.Origin.Lat < -90 || c.Origin.Lat > 90 || c.Origin.Lon < -180 || c.Origin.Lon > 180 {
			return models.NewConfigurationError("origin", "coordinate (%v, %v) out of range", c.Origin.Lat, c.Origin.Lon)
		}
	}
	if c.Radius != nil {
		if math.IsNaN(c.Radius.Value) || c.Radius.Value < 0 {
			return models.NewConfigurationError("radius", "must be >= 0, got %v", c.Radius.Value)
		}
		if _, err := ParseUnit(string(c.Radius.Unit)); err != nil {
			return models.NewConfigurationError("radius_unit", "%v", err)
		}
		if c.Origin == nil {
			return models.NewConfigurationError("radius", "requires an origin location")
		}
	}
	return nil
}

// Weights sets the contribution of each scoring term
type Weights struct {
	Flavor   float64
	Cuisine  float64
	Distance float64
	// TriedPenalty is subtracted per tried dish, up to TriedPenaltyMax
	TriedPenalty    float64
	TriedPenaltyMax float64
}

// DefaultWeights returns the weights used by the service
func DefaultWeights() Weights {
	return Weights{
		Flavor:          0.6,
		Cuisine:         0.3,
		Distance:        0.1,
		TriedPenalty:    0.05,
		TriedPenaltyMax: 0.15,
	}
}

// Ranker scores and orders candidates. It holds no per-request state.
type Ranker struct {
	weights      Weights
	restrictions restrictionIndex
}

// NewRanker creates a ranker that only knows the built-in restriction dishes
func NewRanker(weights Weights) *Ranker {
	return &Ranker{weights: weights, restrictions: newRestrictionIndex(nil)}
}

// WithFoodTerms returns a copy of the ranker that also treats every food term
// as conflicting with the restriction it maps to (see extract.Config.FoodTerms)
func (r *Ranker) WithFoodTerms(foodTerms map[string]string) *Ranker {
	return &Ranker{weights: r.weights, restrictions: newRestrictionIndex(foodTerms)}
}

type scored struct {
	candidate     models.Candidate
	base          float64
	score         float64
	reasons       []string
	penaltyReason []string
}

// Rank returns candidates ordered by score (ties by candidate ID) with
// contiguous 1-based ranks, truncated to cfg.MaxResults after ranking.
// Candidates whose name or dishes conflict with one of the profile's dietary
// restrictions are never returned.
func (r *Ranker) Rank(p models.TasteProfile, candidates []models.Candidate, cfg Config) ([]models.Recommendation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []models.Recommendation{}, nil
	}

	tried := make(map[string]string, len(cfg.ExcludeDishes))
	for _, d := range cfg.ExcludeDishes {
		if key := strings.ToLower(strings.TrimSpace(d)); key != "" {
			tried[key] = strings.TrimSpace(d)
		}
	}

	var radiusKm float64
	if cfg.Radius != nil {
		radiusKm = cfg.Radius.Kilometers()
	}

	items := make([]*scored, 0, len(candidates))
	for _, c := range candidates {
		if _, _, ok := r.restrictions.conflict(p.DietaryRestrictions, c); ok {
			continue
		}
		var distKm float64
		located := cfg.Radius != nil && c.Location != nil
		if located {
			distKm = HaversineKm(*cfg.Origin, *c.Location)
			if distKm > radiusKm {
				continue
			}
		}
		items = append(items, r.score(p, c, tried, located, distKm, radiusKm, cfg.Radius))
	}

	// the tried-dish reason is only worth showing when it moved the candidate
	withoutPenalty := orderPositions(items, func(s *scored) float64 { return s.base })
	withPenalty := orderPositions(items, func(s *scored) float64 { return s.score })
	for _, s := range items {
		if len(s.penaltyReason) > 0 && withoutPenalty[s.candidate.ID] != withPenalty[s.candidate.ID] {
			s.reasons = append(s.reasons, s.penaltyReason...)
		}
	}

	sortScored(items, func(s *scored) float64 { return s.score })
	if cfg.MaxResults > 0 && len(items) > cfg.MaxResults {
		items = items[:cfg.MaxResults]
	}

	out := make([]models.Recommendation, 0, len(items))
	for i, s := range items {
		out = append(out, models.Recommendation{
			CandidateID:  s.candidate.ID,
			Name:         s.candidate.Name,
			Vicinity:     s.candidate.Vicinity,
			Cuisine:      s.candidate.Cuisine,
			Score:        s.score,
			MatchReasons: append([]string{}, s.reasons...),
			Rank:         i + 1,
		})
	}
	return out, nil
}

func (r *Ranker) score(p models.TasteProfile, c models.Candidate, tried map[string]string, located bool, distKm, radiusKm float64, radius *Distance) *scored {
	s := &scored{candidate: c}
	total := 0.0

	if c.Attributes != nil && len(c.Attributes.Flavor) > 0 {
		sum, n := 0.0, 0
		for _, axis := range models.FlavorAxes {
			level, ok := c.Attributes.Flavor[axis]
			if !ok || !level.Valid() {
				continue
			}
			diff := math.Abs(float64(level) - float64(p.FlavorAxes.Get(axis)))
			sum += 1 - diff/float64(models.LevelCount-1)
			n++
			if diff <= 1 {
				s.reasons = append(s.reasons, fmt.Sprintf("Matches your %s preference", axis))
			}
		}
		if n > 0 {
			total += r.weights.Flavor * (sum / float64(n))
		}
	}

	if w, ok := p.AffinityFor(c.Cuisine); ok && w > 0 {
		top := p.CuisineAffinities[0].Weight
		total += r.weights.Cuisine * (w / top)
		s.reasons = append(s.reasons, fmt.Sprintf("%s is one of your preferred cuisines", c.Cuisine))
	}

	if located {
		decay := 1.0
		if radiusKm > 0 {
			decay = 1 - distKm/radiusKm
		}
		total += r.weights.Distance * decay
		s.reasons = append(s.reasons, fmt.Sprintf("%.1f %s away", fromKilometers(distKm, radius.Unit), radius.Unit))
	}

	penalty := 0.0
	for _, name := range triedOverlap(c, tried) {
		penalty += r.weights.TriedPenalty
		s.penaltyReason = append(s.penaltyReason, fmt.Sprintf("You've already tried %s", name))
	}
	penalty = math.Min(penalty, r.weights.TriedPenaltyMax)

	s.base = clip(total)
	s.score = clip(total - penalty)
	return s
}

// triedOverlap lists the tried dishes on the candidate's menu, plus the venue
// itself when the caller has already been there
func triedOverlap(c models.Candidate, tried map[string]string) []string {
	if len(tried) == 0 {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	check := func(name string) {
		key := strings.ToLower(strings.TrimSpace(name))
		if display, ok := tried[key]; ok && !seen[key] {
			seen[key] = true
			out = append(out, display)
		}
	}
	check(c.Name)
	if c.Attributes != nil {
		for _, d := range c.Attributes.Dishes {
			check(d)
		}
	}
	return out
}

func sortScored(items []*scored, key func(*scored) float64) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := key(items[i]), key(items[j])
		if a != b {
			return a > b
		}
		return items[i].candidate.ID < items[j].candidate.ID
	})
}

func orderPositions(items []*scored, key func(*scored) float64) map[string]int {
	ordered := append([]*scored(nil), items...)
	sortScored(ordered, key)
	pos := make(map[string]int, len(ordered))
	for i, s := range ordered {
		pos[s.candidate.ID] = i
	}
	return pos
}

func clip(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
