package ingest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/yishak-cs/FlavorAI/internal/models"
)

type locationSegment struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Visit     *struct {
		TopCandidate struct {
			PlaceID       string          `json:"placeID"`
			PlaceLocation json.RawMessage `json:"placeLocation"`
		} `json:"topCandidate"`
	} `json:"visit"`
}

type reviewFeature struct {
	Properties struct {
		Date     string `json:"date"`
		Rating   int    `json:"five_star_rating_published"`
		Text     string `json:"review_text_published"`
		PlaceID  string `json:"place_id"`
		Location struct {
			PlaceID string `json:"place_id"`
		} `json:"location"`
	} `json:"properties"`
}

type orderRecord struct {
	OrderTime string `json:"order_time"`
	VenueID   string `json:"venue_id"`
	Items     []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

// parseLocationHistory reads either a bare segment array or the
// {"semanticSegments": [...]} wrapper. Non-visit segments are ignored.
func parseLocationHistory(data []byte, w *models.PartialIngestWarning) ([]models.RawEvent, error) {
	records, err := recordList(data, "semanticSegments")
	if err != nil {
		return nil, fmt.Errorf("invalid location history: %w", err)
	}

	events := make([]models.RawEvent, 0, len(records))
	for _, raw := range records {
		var seg locationSegment
		if err := json.Unmarshal(raw, &seg); err != nil {
			w.AddSkipped(models.EventVisit)
			continue
		}
		if seg.Visit == nil {
			continue
		}
		start, err := parseTimestamp(seg.StartTime)
		if err != nil {
			w.AddSkipped(models.EventVisit)
			continue
		}
		var dwell time.Duration
		if end, err := parseTimestamp(seg.EndTime); err == nil && end.After(start) {
			dwell = end.Sub(start)
		}
		loc, _ := parsePlaceLocation(seg.Visit.TopCandidate.PlaceLocation)
		placeID := seg.Visit.TopCandidate.PlaceID
		ev, err := models.NewVisitEvent(start, &placeID, models.VisitPayload{Location: loc, Dwell: dwell})
		if err != nil {
			w.AddSkipped(models.EventVisit)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// parseReviews reads the GeoJSON FeatureCollection Google Maps exports
func parseReviews(data []byte, w *models.PartialIngestWarning) ([]models.RawEvent, error) {
	records, err := recordList(data, "features")
	if err != nil {
		return nil, fmt.Errorf("invalid reviews: %w", err)
	}

	events := make([]models.RawEvent, 0, len(records))
	for _, raw := range records {
		var f reviewFeature
		if err := json.Unmarshal(raw, &f); err != nil {
			w.AddSkipped(models.EventReview)
			continue
		}
		p := f.Properties
		ts, err := parseTimestamp(p.Date)
		if err != nil {
			w.AddSkipped(models.EventReview)
			continue
		}
		placeID := p.PlaceID
		if placeID == "" {
			placeID = p.Location.PlaceID
		}
		ev, err := models.NewReviewEvent(ts, &placeID, models.ReviewPayload{Rating: p.Rating, Text: p.Text})
		if err != nil {
			w.AddSkipped(models.EventReview)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// parseOrders reads a bare order array or the {"orders": [...]} wrapper
func parseOrders(data []byte, w *models.PartialIngestWarning) ([]models.RawEvent, error) {
	records, err := recordList(data, "orders")
	if err != nil {
		return nil, fmt.Errorf("invalid order history: %w", err)
	}

	events := make([]models.RawEvent, 0, len(records))
	for _, raw := range records {
		var o orderRecord
		if err := json.Unmarshal(raw, &o); err != nil {
			w.AddSkipped(models.EventOrder)
			continue
		}
		ts, err := parseTimestamp(o.OrderTime)
		if err != nil {
			w.AddSkipped(models.EventOrder)
			continue
		}
		items := make([]models.OrderItem, 0, len(o.Items))
		for _, it := range o.Items {
			name := strings.TrimSpace(it.Name)
			if name == "" {
				continue
			}
			items = append(items, models.OrderItem{Name: name, Quantity: it.Quantity})
		}
		venueID := o.VenueID
		ev, err := models.NewOrderEvent(ts, &venueID, models.OrderPayload{Items: items})
		if err != nil {
			w.AddSkipped(models.EventOrder)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return time.Parse(time.RFC3339, s)
}

// parsePlaceLocation understands "geo:lat,lng" strings and {"latLng": "lat°, lng°"} objects
func parsePlaceLocation(raw json.RawMessage) (models.GeoPoint, bool) {
	if len(raw) == 0 {
		return models.GeoPoint{}, false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var obj struct {
			LatLng string `json:"latLng"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return models.GeoPoint{}, false
		}
		text = obj.LatLng
	}
	text = strings.TrimPrefix(strings.TrimSpace(text), "geo:")
	text = strings.ReplaceAll(text, "°", "")
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return models.GeoPoint{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return models.GeoPoint{}, false
	}
	return models.GeoPoint{Lat: lat, Lon: lon}, true
}

// recordList splits a bare array, or the named array field of a wrapper
// object, into raw records so one bad record cannot fail the whole file
func recordList(data []byte, field string) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if isJSONArray(data) {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	raw, ok := wrapper[field]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return records, nil
}

func isJSONArray(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
