package domain

// Search domains supported by the AI option search.
const (
	SearchDomainTravel   = "travel"
	SearchDomainActivity = "activity"
	SearchDomainStay     = "stay"
)

// TravelOption is one extracted transportation alternative.
type TravelOption struct {
	Mode         string  `json:"mode"`
	Provider     string  `json:"provider,omitempty"`
	From         string  `json:"from,omitempty"`
	To           string  `json:"to,omitempty"`
	DisplayPrice string  `json:"display_price,omitempty"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency,omitempty"`
	Duration     string  `json:"duration,omitempty"`
	Departure    string  `json:"departure,omitempty"`
	Arrival      string  `json:"arrival,omitempty"`
	SourceURL    string  `json:"source_url,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// ActivityOption is one extracted activity suggestion.
type ActivityOption struct {
	Name         string  `json:"name"`
	Category     string  `json:"category,omitempty"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency,omitempty"`
	Duration     string  `json:"duration,omitempty"`
	Address      string  `json:"address,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	BestTime     string  `json:"best_time,omitempty"`
	SourceURL    string  `json:"source_url,omitempty"`
	DisplayPrice string  `json:"display_price,omitempty"`
}

// StayOption is one extracted lodging alternative.
type StayOption struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind,omitempty"` // hotel, hostel, apartment...
	Description  string   `json:"description,omitempty"`
	DisplayPrice string   `json:"display_price,omitempty"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
	Address      string   `json:"address,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
}

// SearchResult is the typed outcome of one AI option search. Exactly one
// of the option slices is populated, matching Domain.
type SearchResult struct {
	Domain     string           `json:"domain"`
	Query      string           `json:"query,omitempty"`
	Travel     []TravelOption   `json:"transportation_options,omitempty"`
	Activities []ActivityOption `json:"activities,omitempty"`
	Stays      []StayOption     `json:"hotels,omitempty"`
	Sources    []SearchSource   `json:"sources,omitempty"`
	TokensUsed TokenUsage       `json:"tokens_used"`
}

// ItineraryDay is one generated day of a trip plan.
type ItineraryDay struct {
	Day        int              `json:"day"`
	Title      string           `json:"title,omitempty"`
	Summary    string           `json:"summary,omitempty"`
	Activities []ActivityOption `json:"activities"`
}

// ItineraryPlan is a generated multi-day plan for a trip.
type ItineraryPlan struct {
	Destination   string         `json:"destination,omitempty"`
	Days          []ItineraryDay `json:"days"`
	EstimatedCost float64        `json:"estimated_cost,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	Tips          []string       `json:"tips,omitempty"`
}

// SearchRequest is the payload for the AI search endpoints.
type SearchRequest struct {
	Query       string `json:"query"`
	Destination string `json:"destination,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Date        string `json:"date,omitempty"`
	Budget      string `json:"budget,omitempty"`
}

// GenerateRequest asks for an AI-generated itinerary for a trip.
type GenerateRequest struct {
	Interests []string `json:"interests,omitempty"`
	Pace      string   `json:"pace,omitempty"` // relaxed, moderate, packed
	Save      bool     `json:"save,omitempty"` // persist days as sections
}
