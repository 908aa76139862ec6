package extract

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yishak-cs/FlavorAI/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultMinEventsForConfidence is the event count below which signals are
// flagged low-confidence
const DefaultMinEventsForConfidence = 5

// CuisineResolver maps a venue identifier to its cuisine tag
type CuisineResolver interface {
	CuisineFor(venueID string) (string, bool)
}

// MapCuisineResolver is a static venue -> cuisine table
type MapCuisineResolver map[string]string

func (m MapCuisineResolver) CuisineFor(venueID string) (string, bool) {
	c, ok := m[venueID]
	return c, ok && c != ""
}

// ChainResolver asks each resolver in order and returns the first hit
type ChainResolver []CuisineResolver

func (c ChainResolver) CuisineFor(venueID string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if cuisine, ok := r.CuisineFor(venueID); ok {
			return cuisine, true
		}
	}
	return "", false
}

// Config controls preference extraction
type Config struct {
	// Lexicon lists the trigger words and phrases for each flavor axis
	Lexicon map[models.FlavorAxis][]string
	// Intensifiers boost a trigger that directly follows them ("extra spicy")
	Intensifiers []string
	// NegativeSignals mark a sentence as describing something the user avoids
	NegativeSignals []string
	// FoodTerms maps a food word to the restriction it implies
	FoodTerms map[string]string
	// Cuisines resolves venue IDs to cuisine tags; nil disables cuisine affinity
	Cuisines CuisineResolver
	// MinEventsForConfidence flags the output low-confidence below this count
	MinEventsForConfidence int
	// Location is used for meal bucketing; nil keeps each timestamp's recorded offset
	Location *time.Location
}

// DefaultConfig returns the built-in lexicon
func DefaultConfig() Config {
	return Config{
		Lexicon: map[models.FlavorAxis][]string{
			models.AxisSpice:  {"spicy", "spice", "hot sauce", "chili", "chilli", "jalapeno", "habanero", "sriracha", "curry", "fiery", "szechuan", "sichuan", "vindaloo", "peppery"},
			models.AxisSalt:   {"salty", "salted", "brined", "cured", "soy sauce", "pretzel", "anchovy", "bacon"},
			models.AxisSweet:  {"sweet", "sugary", "dessert", "honey", "caramel", "syrup", "chocolate", "cake", "pastry", "candied"},
			models.AxisBitter: {"bitter", "coffee", "espresso", "dark chocolate", "ipa", "kale", "arugula", "radicchio", "matcha"},
			models.AxisSour:   {"sour", "tangy", "vinegar", "pickled", "citrus", "lime", "lemon", "tart", "kimchi", "tamarind"},
			models.AxisUmami:  {"umami", "savory", "savoury", "mushroom", "parmesan", "miso", "broth", "ramen", "truffle", "dashi"},
		},
		Intensifiers:    []string{"extra", "very", "super", "really", "so", "incredibly"},
		NegativeSignals: []string{"allergic", "allergy", "allergies", "can't eat", "cannot eat", "can not eat", "intolerant", "intolerance", "don't eat", "do not eat"},
		FoodTerms: map[string]string{
			"shellfish": "No shellfish",
			"shrimp":    "No shellfish",
			"prawn":     "No shellfish",
			"prawns":    "No shellfish",
			"crab":      "No shellfish",
			"lobster":   "No shellfish",
			"peanut":    "No peanuts",
			"peanuts":   "No peanuts",
			"nuts":      "No tree nuts",
			"gluten":    "Gluten-free",
			"wheat":     "Gluten-free",
			"dairy":     "No dairy",
			"lactose":   "No dairy",
			"milk":      "No dairy",
			"egg":       "No eggs",
			"eggs":      "No eggs",
			"soy":       "No soy",
			"fish":      "No fish",
			"pork":      "No pork",
			"beef":      "No beef",
			"meat":      "Vegetarian",
		},
		MinEventsForConfidence: DefaultMinEventsForConfidence,
	}
}

type lexiconFile struct {
	ReplaceDefaults        bool                `yaml:"replace_defaults"`
	Flavors                map[string][]string `yaml:"flavors"`
	Intensifiers           []string            `yaml:"intensifiers"`
	NegativeSignals        []string            `yaml:"negative_signals"`
	FoodTerms              map[string]string   `yaml:"food_terms"`
	CuisineTags            map[string]string   `yaml:"cuisine_tags"`
	MinEventsForConfidence *int                `yaml:"min_events_for_confidence"`
	Timezone               string              `yaml:"timezone"`
}

// LoadConfigYAML merges a YAML lexicon file over base. Static cuisine_tags are
// consulted before base.Cuisines.
func LoadConfigYAML(r io.Reader, base Config) (Config, error) {
	var file lexiconFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("failed to decode lexicon: %w", err)
	}

	cfg := base
	if file.ReplaceDefaults {
		cfg.Lexicon = map[models.FlavorAxis][]string{}
		cfg.Intensifiers = nil
		cfg.NegativeSignals = nil
		cfg.FoodTerms = map[string]string{}
	} else {
		cfg.Lexicon = copyLexicon(base.Lexicon)
		cfg.FoodTerms = copyTerms(base.FoodTerms)
	}

	for key, words := range file.Flavors {
		axis, ok := models.ParseFlavorAxis(key)
		if !ok {
			return Config{}, models.NewConfigurationError("flavors", "unknown flavor axis %q", key)
		}
		cfg.Lexicon[axis] = mergeWords(cfg.Lexicon[axis], words)
	}
	cfg.Intensifiers = mergeWords(cfg.Intensifiers, file.Intensifiers)
	cfg.NegativeSignals = mergeWords(cfg.NegativeSignals, file.NegativeSignals)
	for term, restriction := range file.FoodTerms {
		cfg.FoodTerms[strings.ToLower(strings.TrimSpace(term))] = restriction
	}

	if len(file.CuisineTags) > 0 {
		cfg.Cuisines = ChainResolver{MapCuisineResolver(file.CuisineTags), base.Cuisines}
	}
	if file.MinEventsForConfidence != nil {
		if *file.MinEventsForConfidence < 0 {
			return Config{}, models.NewConfigurationError("min_events_for_confidence", "must be >= 0, got %d", *file.MinEventsForConfidence)
		}
		cfg.MinEventsForConfidence = *file.MinEventsForConfidence
	}
	if file.Timezone != "" {
		loc, err := time.LoadLocation(file.Timezone)
		if err != nil {
			return Config{}, models.NewConfigurationError("timezone", "%v", err)
		}
		cfg.Location = loc
	}
	return cfg, nil
}

func copyLexicon(in map[models.FlavorAxis][]string) map[models.FlavorAxis][]string {
	out := make(map[models.FlavorAxis][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func copyTerms(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mergeWords(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, w := range append(append([]string(nil), existing...), extra...) {
		key := strings.ToLower(strings.TrimSpace(w))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}
