package database

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/yishak-cs/FlavorAI/internal/models"
)

// ProfileStore persists taste profiles on User nodes
type ProfileStore struct {
	client queryRunner
}

// NewProfileStore creates a new profile store
func NewProfileStore(client *Neo4jClient) *ProfileStore {
	return &ProfileStore{client: client}
}

// SaveProfile replaces the stored profile for p.UserID. The JSON blob and the
// PREFERS edges are written by one statement, so readers never see a mix of
// the old and new profile.
func (s *ProfileStore) SaveProfile(ctx context.Context, p models.TasteProfile) error {
	blob, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	query := `
		MERGE (u:User {user_id: $userId})
		SET u.taste_profile = $profile,
			u.low_confidence = $lowConfidence,
			u.updated_at = datetime()
		WITH u
		OPTIONAL MATCH (u)-[old:PREFERS]->(:Cuisine)
		DELETE old
		WITH DISTINCT u
		UNWIND $affinities AS a
		MERGE (c:Cuisine {name: a.cuisine})
		MERGE (u)-[p:PREFERS]->(c)
		SET p.weight = a.weight
	`

	params := map[string]interface{}{
		"userId":        p.UserID,
		"profile":       string(blob),
		"lowConfidence": p.LowConfidence,
		"affinities":    affinityParams(p.CuisineAffinities),
	}

	if err := s.client.ExecuteWrite(ctx, query, params); err != nil {
		return fmt.Errorf("failed to save profile for %s: %w", p.UserID, err)
	}
	return nil
}

// GetProfile loads the stored profile, returning models.ErrProfileNotFound
// when the user has none
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (models.TasteProfile, error) {
	query := `
		MATCH (u:User {user_id: $userId})
		WHERE u.taste_profile IS NOT NULL
		RETURN u.taste_profile AS profile
	`

	results, err := s.client.ExecuteRead(ctx, query, map[string]interface{}{"userId": userID})
	if err != nil {
		return models.TasteProfile{}, fmt.Errorf("failed to get profile for %s: %w", userID, err)
	}
	if len(results) == 0 {
		return models.TasteProfile{}, models.ErrProfileNotFound
	}
	return decodeProfile(results[0]["profile"])
}

// RecordFeedback appends a user's rating of a restaurant to their history
func (s *ProfileStore) RecordFeedback(ctx context.Context, userID string, fb models.Feedback) error {
	query := `
		MERGE (u:User {user_id: $userId})
		CREATE (u)-[:GAVE]->(f:Feedback {
			restaurant_name: $restaurantName,
			favorability: $favorability,
			comment: $comment,
			created_at: datetime()
		})
		WITH f
		OPTIONAL MATCH (v:Venue) WHERE toLower(v.name) = toLower($restaurantName)
		FOREACH (_ IN CASE WHEN v IS NULL THEN [] ELSE [1] END | MERGE (f)-[:ABOUT]->(v))
	`

	params := map[string]interface{}{
		"userId":         userID,
		"restaurantName": fb.RestaurantName,
		"favorability":   fb.Favorability,
		"comment":        fb.Comment,
	}

	if err := s.client.ExecuteWrite(ctx, query, params); err != nil {
		return fmt.Errorf("failed to record feedback for %s: %w", userID, err)
	}
	return nil
}

func decodeProfile(raw interface{}) (models.TasteProfile, error) {
	blob, ok := raw.(string)
	if !ok || blob == "" {
		return models.TasteProfile{}, models.ErrProfileNotFound
	}
	var p models.TasteProfile
	if err := json.Unmarshal([]byte(blob), &p); err != nil {
		return models.TasteProfile{}, fmt.Errorf("failed to decode stored profile: %w", err)
	}
	return p, nil
}

func affinityParams(in []models.CuisineAffinity) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(in))
	for _, a := range in {
		out = append(out, map[string]interface{}{
			"cuisine": a.Cuisine,
			"weight":  a.Weight,
		})
	}
	return out
}
