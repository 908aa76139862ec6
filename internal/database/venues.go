package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yishak-cs/FlavorAI/internal/models"
)

// VenueStore reads recommendation candidates from Venue nodes
type VenueStore struct {
	client queryRunner
}

// NewVenueStore creates a new venue store
func NewVenueStore(client *Neo4jClient) *VenueStore {
	return &VenueStore{client: client}
}

// NearbyCandidates returns up to limit venues ordered by distance from origin.
// A nil origin or a radiusKm <= 0 disables the distance filter.
func (s *VenueStore) NearbyCandidates(ctx context.Context, origin *models.GeoPoint, radiusKm float64, limit int) ([]models.Candidate, error) {
	query := `
		MATCH (v:Venue)
		WITH v,
			CASE WHEN $lat IS NULL OR v.lat IS NULL THEN null
				ELSE point.distance(
					point({latitude: v.lat, longitude: v.lon}),
					point({latitude: $lat, longitude: $lon}))
			END AS meters
		WHERE $radiusMeters IS NULL OR meters IS NULL OR meters <= $radiusMeters
		OPTIONAL MATCH (v)-[:SERVES]->(d:Dish)
		WITH v, meters, collect(d.name) AS dishes
		RETURN v.venue_id AS venue_id,
			   v.name AS name,
			   v.cuisine AS cuisine,
			   v.vicinity AS vicinity,
			   v.lat AS lat,
			   v.lon AS lon,
			   v.price_level AS price_level,
			   v.spice AS spice,
			   v.salt AS salt,
			   v.sweet AS sweet,
			   v.bitter AS bitter,
			   v.sour AS sour,
			   v.umami AS umami,
			   dishes
		ORDER BY meters ASC, venue_id ASC
		LIMIT $limit
	`

	params := map[string]interface{}{
		"lat":          nil,
		"lon":          nil,
		"radiusMeters": nil,
		"limit":        limit,
	}
	if origin != nil {
		params["lat"] = origin.Lat
		params["lon"] = origin.Lon
		if radiusKm > 0 {
			params["radiusMeters"] = radiusKm * 1000
		}
	}

	results, err := s.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get nearby candidates: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(results))
	for _, result := range results {
		if c, ok := candidateFromRecord(result); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// CuisineTags maps every venue ID to its cuisine tag
func (s *VenueStore) CuisineTags(ctx context.Context) (map[string]string, error) {
	query := `
		MATCH (v:Venue)
		WHERE v.venue_id IS NOT NULL AND v.cuisine IS NOT NULL AND v.cuisine <> ''
		RETURN v.venue_id AS venue_id, v.cuisine AS cuisine
	`

	results, err := s.client.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cuisine tags: %w", err)
	}

	tags := make(map[string]string, len(results))
	for _, result := range results {
		id := asString(result["venue_id"])
		cuisine := asString(result["cuisine"])
		if id != "" && cuisine != "" {
			tags[id] = cuisine
		}
	}
	return tags, nil
}

// candidateFromRecord maps a venue row onto a Candidate. Rows without an ID
// are dropped.
func candidateFromRecord(rec map[string]interface{}) (models.Candidate, bool) {
	id := asString(rec["venue_id"])
	if id == "" {
		return models.Candidate{}, false
	}

	c := models.Candidate{
		ID:       id,
		Name:     asString(rec["name"]),
		Cuisine:  asString(rec["cuisine"]),
		Vicinity: asString(rec["vicinity"]),
	}
	if price, ok := asInt(rec["price_level"]); ok {
		c.PriceLevel = price
	}

	lat, latOK := asFloat(rec["lat"])
	lon, lonOK := asFloat(rec["lon"])
	if latOK && lonOK {
		c.Location = &models.GeoPoint{Lat: lat, Lon: lon}
	}

	attrs := models.CandidateAttributes{PriceTier: c.PriceLevel}
	for _, axis := range models.FlavorAxes {
		if level, ok := asLevel(rec[string(axis)]); ok {
			if attrs.Flavor == nil {
				attrs.Flavor = make(map[models.FlavorAxis]models.Level)
			}
			attrs.Flavor[axis] = level
		}
	}
	if dishes, ok := rec["dishes"].([]interface{}); ok {
		for _, d := range dishes {
			if name := asString(d); name != "" {
				attrs.Dishes = append(attrs.Dishes, name)
			}
		}
	}
	if attrs.Flavor != nil || len(attrs.Dishes) > 0 || attrs.PriceTier > 0 {
		c.Attributes = &attrs
	}
	return c, true
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// asLevel accepts a stored level as its index or its label ("Medium-High")
func asLevel(v interface{}) (models.Level, bool) {
	switch t := v.(type) {
	case int64:
		if t < 0 || t > int64(models.VeryHigh) {
			return 0, false
		}
		return models.Level(t), true
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false
		}
		l, err := models.ParseLevel(t)
		return l, err == nil
	}
	return 0, false
}
