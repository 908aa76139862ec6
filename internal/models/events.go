package models

import (
	"fmt"
	"time"
)

// EventKind identifies the source of a RawEvent
type EventKind string

const (
	EventVisit  EventKind = "visit"
	EventReview EventKind = "review"
	EventOrder  EventKind = "order"
)

// GeoPoint is a WGS84 coordinate
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// VisitPayload carries the location and dwell time of a place visit
type VisitPayload struct {
	Location GeoPoint      `json:"location"`
	Dwell    time.Duration `json:"dwell"`
}

// ReviewPayload carries a 1-5 star rating and the review text
type ReviewPayload struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// OrderItem is a single line of a food order
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderPayload carries the items of a food order
type OrderPayload struct {
	Items []OrderItem `json:"items"`
}

// RawEvent is one normalized unit of user history. It is built through the
// New*Event constructors and is read-only afterwards.
type RawEvent struct {
	kind      EventKind
	timestamp time.Time
	venueID   *string
	visit     *VisitPayload
	review    *ReviewPayload
	order     *OrderPayload
}

// NewVisitEvent creates a visit event
func NewVisitEvent(ts time.Time, venueID *string, p VisitPayload) (RawEvent, error) {
	if ts.IsZero() {
		return RawEvent{}, fmt.Errorf("visit event: timestamp is required")
	}
	if p.Dwell < 0 {
		p.Dwell = 0
	}
	return RawEvent{kind: EventVisit, timestamp: ts, venueID: copyString(venueID), visit: &p}, nil
}

// NewReviewEvent creates a review event
func NewReviewEvent(ts time.Time, venueID *string, p ReviewPayload) (RawEvent, error) {
	if ts.IsZero() {
		return RawEvent{}, fmt.Errorf("review event: timestamp is required")
	}
	if p.Rating < 1 || p.Rating > 5 {
		return RawEvent{}, fmt.Errorf("review event: rating %d outside 1-5", p.Rating)
	}
	return RawEvent{kind: EventReview, timestamp: ts, venueID: copyString(venueID), review: &p}, nil
}

// NewOrderEvent creates an order event
func NewOrderEvent(ts time.Time, venueID *string, p OrderPayload) (RawEvent, error) {
	if ts.IsZero() {
		return RawEvent{}, fmt.Errorf("order event: timestamp is required")
	}
	items := make([]OrderItem, 0, len(p.Items))
	for _, it := range p.Items {
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		items = append(items, it)
	}
	return RawEvent{kind: EventOrder, timestamp: ts, venueID: copyString(venueID), order: &OrderPayload{Items: items}}, nil
}

func (e RawEvent) Kind() EventKind      { return e.kind }
func (e RawEvent) Timestamp() time.Time { return e.timestamp }

// VenueID returns the resolved venue identifier, if any
func (e RawEvent) VenueID() (string, bool) {
	if e.venueID == nil {
		return "", false
	}
	return *e.venueID, true
}

// Visit returns the visit payload; ok is false for other kinds
func (e RawEvent) Visit() (VisitPayload, bool) {
	if e.visit == nil {
		return VisitPayload{}, false
	}
	return *e.visit, true
}

// Review returns the review payload; ok is false for other kinds
func (e RawEvent) Review() (ReviewPayload, bool) {
	if e.review == nil {
		return ReviewPayload{}, false
	}
	return *e.review, true
}

// Order returns a copy of the order payload; ok is false for other kinds
func (e RawEvent) Order() (OrderPayload, bool) {
	if e.order == nil {
		return OrderPayload{}, false
	}
	items := make([]OrderItem, len(e.order.Items))
	copy(items, e.order.Items)
	return OrderPayload{Items: items}, true
}

func copyString(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
