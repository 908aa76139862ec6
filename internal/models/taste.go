package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// FlavorAxis is one of the six taste dimensions
type FlavorAxis string

const (
	AxisSpice  FlavorAxis = "spice"
	AxisSalt   FlavorAxis = "salt"
	AxisSweet  FlavorAxis = "sweet"
	AxisBitter FlavorAxis = "bitter"
	AxisSour   FlavorAxis = "sour"
	AxisUmami  FlavorAxis = "umami"
)

// FlavorAxes lists every axis in evaluation order
var FlavorAxes = [...]FlavorAxis{AxisSpice, AxisSalt, AxisSweet, AxisBitter, AxisSour, AxisUmami}

// Index returns the position of the axis in FlavorAxes
func (a FlavorAxis) Index() (int, bool) {
	for i, axis := range FlavorAxes {
		if axis == a {
			return i, true
		}
	}
	return -1, false
}

// ParseFlavorAxis accepts axis names and the adjective forms used in user
// feedback ("spicy", "salty", ...)
func ParseFlavorAxis(s string) (FlavorAxis, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spice", "spicy":
		return AxisSpice, true
	case "salt", "salty":
		return AxisSalt, true
	case "sweet", "sweetness":
		return AxisSweet, true
	case "bitter":
		return AxisBitter, true
	case "sour":
		return AxisSour, true
	case "umami":
		return AxisUmami, true
	}
	return "", false
}

// Level is a 7-point ordinal value, 0 (Very Low) through 6 (Very High)
type Level uint8

const (
	VeryLow Level = iota
	Low
	MediumLow
	Medium
	MediumHigh
	High
	VeryHigh
)

// LevelCount is the number of ordinal levels
const LevelCount = 7

var levelLabels = [LevelCount]string{"Very Low", "Low", "Medium-Low", "Medium", "Medium-High", "High", "Very High"}

func (l Level) Valid() bool { return l <= VeryHigh }

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
	return levelLabels[l]
}

// ParseLevel accepts a label in any case with or without separators, or a digit 0-6
func ParseLevel(s string) (Level, error) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for i, label := range levelLabels {
		if key == strings.NewReplacer(" ", "", "-", "").Replace(strings.ToLower(label)) {
			return Level(i), nil
		}
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 && n < LevelCount {
		return Level(n), nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// ClampLevel converts a signed step value into a valid Level
func ClampLevel(v int) Level {
	if v < int(VeryLow) {
		return VeryLow
	}
	if v > int(VeryHigh) {
		return VeryHigh
	}
	return Level(v)
}

func (l Level) MarshalJSON() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", uint8(l))
	}
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("level must be a label or 0-6: %s", string(data))
		}
		s = strconv.Itoa(n)
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// FlavorAxisScore holds exactly one Level per flavor axis
type FlavorAxisScore [len(FlavorAxes)]Level

// NeutralFlavorAxes returns Medium on every axis
func NeutralFlavorAxes() FlavorAxisScore {
	var s FlavorAxisScore
	for i := range s {
		s[i] = Medium
	}
	return s
}

// Get returns the level for an axis
func (s FlavorAxisScore) Get(axis FlavorAxis) Level {
	i, ok := axis.Index()
	if !ok {
		return Medium
	}
	return s[i]
}

// With returns a copy with one axis replaced
func (s FlavorAxisScore) With(axis FlavorAxis, level Level) FlavorAxisScore {
	if i, ok := axis.Index(); ok {
		s[i] = level
	}
	return s
}

func (s FlavorAxisScore) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(FlavorAxes))
	for i, axis := range FlavorAxes {
		if !s[i].Valid() {
			return nil, fmt.Errorf("axis %s: invalid level %d", axis, uint8(s[i]))
		}
		out[string(axis)] = s[i].String()
	}
	return json.Marshal(out)
}

func (s *FlavorAxisScore) UnmarshalJSON(data []byte) error {
	var raw map[string]Level
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out FlavorAxisScore
	var seen [len(FlavorAxes)]bool
	for key, level := range raw {
		axis, ok := ParseFlavorAxis(key)
		if !ok {
			return fmt.Errorf("unknown flavor axis %q", key)
		}
		i, _ := axis.Index()
		if seen[i] {
			return fmt.Errorf("flavor axis %q given twice", axis)
		}
		seen[i] = true
		out[i] = level
	}
	for i, axis := range FlavorAxes {
		if !seen[i] {
			return fmt.Errorf("flavor axis %q missing", axis)
		}
	}
	*s = out
	return nil
}

// CuisineAffinity is a weighted preference for a cuisine
type CuisineAffinity struct {
	Cuisine string  `json:"cuisine"`
	Weight  float64 `json:"weight"`
}

// MealSlot is a time-of-day bucket for venue visits
type MealSlot string

const (
	MealBreakfast MealSlot = "breakfast"
	MealLunch     MealSlot = "lunch"
	MealDinner    MealSlot = "dinner"
	MealDessert   MealSlot = "dessert"
)

// MealSlots lists every slot in day order
var MealSlots = [...]MealSlot{MealBreakfast, MealLunch, MealDinner, MealDessert}

// FrequencyLabel is the ordinal visit frequency shown per meal slot
type FrequencyLabel string

const (
	FrequencyLow    FrequencyLabel = "Low"
	FrequencyMedium FrequencyLabel = "Medium"
	FrequencyHigh   FrequencyLabel = "High"
)

// TasteProfile is the aggregate preference record for one user. It is
// replaced, not edited, when new data arrives.
type TasteProfile struct {
	UserID               string                      `json:"user_id"`
	FlavorAxes           FlavorAxisScore             `json:"flavor_axes"`
	CuisineAffinities    []CuisineAffinity           `json:"cuisine_affinities"`
	DietaryRestrictions  []string                    `json:"dietary_restrictions"`
	FrequentDishes       []string                    `json:"frequent_dishes"`
	VisitFrequencyByMeal map[MealSlot]FrequencyLabel `json:"visit_frequency_by_meal"`
	EventCount           int                         `json:"event_count"`
	LowConfidence        bool                        `json:"low_confidence"`
}

// weightTolerance absorbs float rounding when summing affinity weights
const weightTolerance = 1e-9

// Validate checks the profile invariants
func (p TasteProfile) Validate() error {
	sum := 0.0
	for i, a := range p.CuisineAffinities {
		if a.Weight < 0 || math.IsNaN(a.Weight) {
			return fmt.Errorf("cuisine %q has negative weight %v", a.Cuisine, a.Weight)
		}
		sum += a.Weight
		if i > 0 {
			prev := p.CuisineAffinities[i-1]
			if prev.Weight < a.Weight || (prev.Weight == a.Weight && prev.Cuisine > a.Cuisine) {
				return fmt.Errorf("cuisine affinities out of order at %d", i)
			}
		}
	}
	if sum > 1+weightTolerance {
		return fmt.Errorf("cuisine weights sum to %v", sum)
	}
	for i, l := range p.FlavorAxes {
		if !l.Valid() {
			return fmt.Errorf("axis %s has invalid level %d", FlavorAxes[i], uint8(l))
		}
	}
	return nil
}

// AffinityFor returns the weight for a cuisine, matched case-insensitively
func (p TasteProfile) AffinityFor(cuisine string) (float64, bool) {
	for _, a := range p.CuisineAffinities {
		if strings.EqualFold(a.Cuisine, cuisine) {
			return a.Weight, true
		}
	}
	return 0, false
}

// Clone returns a deep copy so derived profiles never share slices or maps
func (p TasteProfile) Clone() TasteProfile {
	out := p
	out.CuisineAffinities = cloneSlice(p.CuisineAffinities)
	out.DietaryRestrictions = cloneSlice(p.DietaryRestrictions)
	out.FrequentDishes = cloneSlice(p.FrequentDishes)
	if p.VisitFrequencyByMeal != nil {
		out.VisitFrequencyByMeal = make(map[MealSlot]FrequencyLabel, len(p.VisitFrequencyByMeal))
		for k, v := range p.VisitFrequencyByMeal {
			out.VisitFrequencyByMeal[k] = v
		}
	}
	return out
}

// cloneSlice copies in, keeping an empty slice empty rather than nil
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
