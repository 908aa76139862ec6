package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// VenueImporter loads the venue catalogue from CSV files into Neo4j
type VenueImporter struct {
	client queryRunner
}

// NewVenueImporter creates a new venue importer
func NewVenueImporter(client *Neo4jClient) *VenueImporter {
	return &VenueImporter{client: client}
}

// ImportAllData imports all venue CSV files in the correct order
func (i *VenueImporter) ImportAllData(ctx context.Context, baseURL string) error {
	log.Info().Str("base_url", baseURL).Msg("Starting venue import")

	// Step 1: Clear the previous catalogue; user profiles are left alone
	if err := i.clearVenues(ctx); err != nil {
		return fmt.Errorf("failed to clear venues: %w", err)
	}

	// Step 2: Import in dependency order
	steps := []struct {
		name string
		fn   func(context.Context, string) error
	}{
		{"constraints", i.ensureConstraints},
		{"venues", i.ImportVenues},
		{"venue_dishes", i.ImportVenueDishes},
	}

	for _, step := range steps {
		log.Info().Str("step", step.name).Msg("Importing")
		if err := step.fn(ctx, baseURL); err != nil {
			return fmt.Errorf("failed to import %s: %w", step.name, err)
		}
	}

	log.Info().Msg("Venue import completed")
	return nil
}

func (i *VenueImporter) ensureConstraints(ctx context.Context, _ string) error {
	statements := []string{
		`CREATE CONSTRAINT venue_id IF NOT EXISTS FOR (v:Venue) REQUIRE v.venue_id IS UNIQUE`,
		`CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.user_id IS UNIQUE`,
		`CREATE CONSTRAINT cuisine_name IF NOT EXISTS FOR (c:Cuisine) REQUIRE c.name IS UNIQUE`,
	}
	for _, stmt := range statements {
		if err := i.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// ImportVenues imports venues and their flavor attributes from venues.csv
func (i *VenueImporter) ImportVenues(ctx context.Context, baseURL string) error {
	query := `
		LOAD CSV WITH HEADERS FROM $csvURL AS row
		WITH row WHERE row.venue_id IS NOT NULL
		MERGE (v:Venue {venue_id: row.venue_id})
		SET v.name = row.name,
			v.cuisine = row.cuisine,
			v.vicinity = row.vicinity,
			v.lat = toFloat(row.lat),
			v.lon = toFloat(row.lon),
			v.price_level = toInteger(row.price_level),
			v.spice = row.spice,
			v.salt = row.salt,
			v.sweet = row.sweet,
			v.bitter = row.bitter,
			v.sour = row.sour,
			v.umami = row.umami
		RETURN count(v) as imported_venues
	`

	return i.load(ctx, query, csvURL(baseURL, "venues.csv"), "imported_venues")
}

// ImportVenueDishes links venues to the dishes on their menu
func (i *VenueImporter) ImportVenueDishes(ctx context.Context, baseURL string) error {
	query := `
		LOAD CSV WITH HEADERS FROM $csvURL AS row
		WITH row WHERE row.venue_id IS NOT NULL AND row.dish IS NOT NULL
		MATCH (v:Venue {venue_id: row.venue_id})
		MERGE (d:Dish {name: toLower(trim(row.dish))})
		MERGE (v)-[:SERVES]->(d)
		RETURN count(*) as imported_dishes
	`

	return i.load(ctx, query, csvURL(baseURL, "venue_dishes.csv"), "imported_dishes")
}

func (i *VenueImporter) load(ctx context.Context, query, url, countKey string) error {
	results, err := i.client.ExecuteWriteWithResult(ctx, query, map[string]interface{}{"csvURL": url})
	if err != nil {
		return err
	}
	if len(results) > 0 {
		log.Info().Str("source", url).Interface(countKey, results[0][countKey]).Msg("Imported rows")
	}
	return nil
}

// clearVenues removes venues and dishes left over from a previous import
func (i *VenueImporter) clearVenues(ctx context.Context) error {
	query := `
		MATCH (n) WHERE n:Venue OR n:Dish
		DETACH DELETE n
	`

	log.Info().Msg("Clearing existing venues")
	return i.client.ExecuteWrite(ctx, query, nil)
}

// GetImportStatus returns the current state of the database
func (i *VenueImporter) GetImportStatus(ctx context.Context) (map[string]int, error) {
	query := `
		CALL { MATCH (v:Venue) RETURN count(v) as venues }
		CALL { MATCH (d:Dish) RETURN count(d) as dishes }
		CALL { MATCH (u:User) WHERE u.taste_profile IS NOT NULL RETURN count(u) as profiles }
		CALL { MATCH ()-[p:PREFERS]->() RETURN count(p) as preferences }
		RETURN venues, dishes, profiles, preferences
	`

	results, err := i.client.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	status := map[string]int{
		"venues":      0,
		"dishes":      0,
		"profiles":    0,
		"preferences": 0,
	}
	if len(results) == 0 {
		return status, nil
	}
	for key := range status {
		if n, ok := asInt(results[0][key]); ok {
			status[key] = n
		}
	}
	return status, nil
}

func csvURL(baseURL, file string) string {
	return fmt.Sprintf("%s/data/%s", strings.TrimSuffix(baseURL, "/"), file)
}
