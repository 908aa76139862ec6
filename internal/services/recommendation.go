package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yishak-cs/FlavorAI/internal/models"
	"github.com/yishak-cs/FlavorAI/internal/ranking"
)

// DefaultRecommendationCount is used when a request does not set N
const DefaultRecommendationCount = 3

// RecommendRequest carries the caller's location and limits
type RecommendRequest struct {
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	RadiusValue *float64 `json:"radius_value"`
	RadiusUnit  string   `json:"radius_unit"`
	TriedFoods  []string `json:"triedFoods"`
	N           *int     `json:"n"`
}

// rankingConfig turns the request into ranker options. Radius defaults to miles.
func (r RecommendRequest) rankingConfig() (ranking.Config, error) {
	cfg := ranking.Config{
		MaxResults:    DefaultRecommendationCount,
		ExcludeDishes: r.TriedFoods,
	}
	if r.N != nil {
		cfg.MaxResults = *r.N
	}

	switch {
	case r.Lat != nil && r.Lon != nil:
		cfg.Origin = &models.GeoPoint{Lat: *r.Lat, Lon: *r.Lon}
	case r.Lat != nil || r.Lon != nil:
		return ranking.Config{}, models.NewConfigurationError("origin", "lat and lon must be given together")
	}

	if r.RadiusValue != nil {
		unitName := r.RadiusUnit
		if unitName == "" {
			unitName = "miles"
		}
		unit, err := ranking.ParseUnit(unitName)
		if err != nil {
			return ranking.Config{}, models.NewConfigurationError("radius_unit", "%v", err)
		}
		cfg.Radius = &ranking.Distance{Value: *r.RadiusValue, Unit: unit}
	}

	if err := cfg.Validate(); err != nil {
		return ranking.Config{}, err
	}
	return cfg, nil
}

// Recommend ranks nearby venues against the user's stored profile
func (s *TasteService) Recommend(ctx context.Context, userID string, req RecommendRequest) ([]models.Recommendation, error) {
	cfg, err := req.rankingConfig()
	if err != nil {
		s.metrics.RecordRun("recommend", "invalid")
		return nil, err
	}

	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.metrics.RecordRun("recommend", "error")
		return nil, err
	}

	var candidates []models.Candidate
	if s.venues != nil {
		stageStart := time.Now()
		radiusKm := 0.0
		if cfg.Radius != nil {
			radiusKm = cfg.Radius.Kilometers()
		}
		candidates, err = s.venues.NearbyCandidates(ctx, cfg.Origin, radiusKm, s.opts.CandidatePoolSize)
		s.metrics.ObserveStage("candidates", stageStart)
		if err != nil {
			s.metrics.RecordRun("recommend", "error")
			return nil, fmt.Errorf("failed to fetch candidates: %w", err)
		}
	}

	stageStart := time.Now()
	recs, err := s.ranker.Rank(p, candidates, cfg)
	s.metrics.ObserveStage("rank", stageStart)
	if err != nil {
		s.metrics.RecordRun("recommend", "error")
		return nil, err
	}

	s.metrics.RecordRun("recommend", "ok")
	s.metrics.RecordRecommendations(len(recs))
	log.Debug().
		Str("user_id", userID).
		Int("candidates", len(candidates)).
		Int("results", len(recs)).
		Msg("Recommendations generated")
	return recs, nil
}
