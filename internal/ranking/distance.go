package ranking

import (
	"fmt"
	"math"
	"strings"

	"github.com/yishak-cs/FlavorAI/internal/models"
)

// Unit is a distance unit accepted at the API boundary
type Unit string

const (
	Kilometers Unit = "km"
	Miles      Unit = "mi"
	Meters     Unit = "m"
)

const (
	earthRadiusKm = 6371.0
	kmPerMile     = 1.609344
)

// ParseUnit accepts the spellings the mobile client sends ("miles", "kilometers", ...)
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "km", "kilometer", "kilometers", "kilometre", "kilometres":
		return Kilometers, nil
	case "mi", "mile", "miles":
		return Miles, nil
	case "m", "meter", "meters", "metre", "metres":
		return Meters, nil
	}
	return "", fmt.Errorf("unknown distance unit %q", s)
}

// Distance is a length with its unit
type Distance struct {
	Value float64
	Unit  Unit
}

// Kilometers converts the distance to kilometers
func (d Distance) Kilometers() float64 {
	switch d.Unit {
	case Miles:
		return d.Value * kmPerMile
	case Meters:
		return d.Value / 1000
	default:
		return d.Value
	}
}

// fromKilometers expresses km in unit u
func fromKilometers(km float64, u Unit) float64 {
	switch u {
	case Miles:
		return km / kmPerMile
	case Meters:
		return km * 1000
	default:
		return km
	}
}

// HaversineKm calculates the great-circle distance between two points in kilometers
func HaversineKm(a, b models.GeoPoint) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(a.Lat))*math.Cos(degreesToRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
