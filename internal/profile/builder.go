// Package profile builds immutable taste profiles from extracted signals.
package profile

import (
	"fmt"
	"math"

	"github.com/yishak-cs/FlavorAI/internal/extract"
	"github.com/yishak-cs/FlavorAI/internal/models"
)

// QuantizationTable maps an intensity in [0,1] to one of the seven levels.
// Bounds[i] is the lower edge of level i+1; the same table is applied to
// every axis.
type QuantizationTable struct {
	Bounds [models.LevelCount - 1]float64
}

// DefaultQuantizationTable splits [0,1] into seven equal-width buckets
func DefaultQuantizationTable() QuantizationTable {
	var t QuantizationTable
	for i := range t.Bounds {
		t.Bounds[i] = float64(i+1) / float64(models.LevelCount)
	}
	return t
}

// Validate requires strictly increasing bounds inside (0,1)
func (t QuantizationTable) Validate() error {
	prev := 0.0
	for i, b := range t.Bounds {
		if math.IsNaN(b) || b <= prev || b >= 1 {
			return models.NewConfigurationError("quantization_table", "bound %d (%v) must be in (%v, 1)", i, b, prev)
		}
		prev = b
	}
	return nil
}

// Quantize returns the level whose bucket contains v
func (t QuantizationTable) Quantize(v float64) models.Level {
	level := models.VeryLow
	for _, b := range t.Bounds {
		if v < b {
			break
		}
		level++
	}
	return level
}

// Builder turns extractor signals into a TasteProfile
type Builder struct {
	table QuantizationTable
}

// NewBuilder validates the table and creates a builder
func NewBuilder(table QuantizationTable) (*Builder, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Builder{table: table}, nil
}

// Build produces exactly one profile. It is a pure function of its inputs.
func (b *Builder) Build(userID string, s extract.Signals) (models.TasteProfile, error) {
	p := models.TasteProfile{
		UserID:               userID,
		CuisineAffinities:    append([]models.CuisineAffinity{}, s.Cuisines...),
		DietaryRestrictions:  append([]string{}, s.DietaryRestrictions...),
		FrequentDishes:       make([]string, 0, len(s.Dishes)),
		VisitFrequencyByMeal: mealFrequency(s.MealVisits),
		EventCount:           s.EventCount,
		LowConfidence:        s.LowConfidence,
	}
	for i, v := range s.Intensity {
		p.FlavorAxes[i] = b.table.Quantize(v)
	}
	for _, d := range s.Dishes {
		p.FrequentDishes = append(p.FrequentDishes, d.Name)
	}

	if err := p.Validate(); err != nil {
		return models.TasteProfile{}, fmt.Errorf("built profile for %s is invalid: %w", userID, err)
	}
	return p, nil
}

// mealFrequency labels each slot by its share of all visits
func mealFrequency(visits map[models.MealSlot]int) map[models.MealSlot]models.FrequencyLabel {
	total := 0
	for _, slot := range models.MealSlots {
		total += visits[slot]
	}
	out := make(map[models.MealSlot]models.FrequencyLabel, len(models.MealSlots))
	for _, slot := range models.MealSlots {
		out[slot] = models.FrequencyLow
		if total == 0 {
			continue
		}
		share := float64(visits[slot]) / float64(total)
		switch {
		case share >= 0.4:
			out[slot] = models.FrequencyHigh
		case share >= 0.2:
			out[slot] = models.FrequencyMedium
		}
	}
	return out
}
