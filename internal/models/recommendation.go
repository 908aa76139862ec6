package models

// CandidateAttributes captures the flavor-relevant signals a venue advertises
type CandidateAttributes struct {
	Flavor    map[FlavorAxis]Level `json:"flavor,omitempty"`
	PriceTier int                  `json:"price_tier,omitempty"`
	Dishes    []string             `json:"dishes,omitempty"`
}

// Candidate represents a restaurant or recipe eligible for recommendation
type Candidate struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Cuisine    string               `json:"cuisine"`
	Vicinity   string               `json:"vicinity,omitempty"`
	Attributes *CandidateAttributes `json:"attributes,omitempty"`
	Location   *GeoPoint            `json:"location,omitempty"`
	PriceLevel int                  `json:"price_level,omitempty"`
}

// Recommendation represents a ranked candidate with its score and match reasons
type Recommendation struct {
	CandidateID  string   `json:"restaurant_id"`
	Name         string   `json:"name"`
	Vicinity     string   `json:"vicinity,omitempty"`
	Cuisine      string   `json:"cuisine,omitempty"`
	Score        float64  `json:"score"`
	MatchReasons []string `json:"match_reasons"`
	Rank         int      `json:"rank"`
}

// OnboardingAnswers holds the explicit preferences a user gives at sign-up
type OnboardingAnswers struct {
	Favorites           []string `json:"favorites"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	Allergies           []string `json:"allergies"`
}

// Feedback is a user's reaction to a visited restaurant
type Feedback struct {
	RestaurantName string  `json:"restaurant_name" binding:"required"`
	Favorability   float64 `json:"favorability" binding:"min=0,max=1"`
	Comment        string  `json:"comment"`
}
