// Package domain defines the core data structures shared by services,
// handlers and stores. All persistence-facing structs carry the column
// names of the corresponding Supabase tables in their json tags.
package domain

import "time"

// ============================================================
// Trips & Itinerary
// ============================================================

// Trip statuses used by the maintenance job and the feed.
const (
	TripStatusPlanning  = "planning"
	TripStatusOngoing   = "ongoing"
	TripStatusCompleted = "completed"
)

// Trip is a user-owned travel plan with a date window and an optional
// total budget. EstimatedCost is a persisted estimate; when absent the
// budget report falls back to the computed grand total.
type Trip struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Title         string     `json:"title"`
	Destination   string     `json:"destination"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	TotalBudget   *float64   `json:"total_budget,omitempty"`
	EstimatedCost *float64   `json:"estimated_cost,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	Status        string     `json:"status"`
	IsPublic      bool       `json:"is_public"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// TripRequest is the payload for creating or updating a trip.
type TripRequest struct {
	Title       string   `json:"title"`
	Destination string   `json:"destination"`
	StartDate   string   `json:"start_date"` // YYYY-MM-DD
	EndDate     string   `json:"end_date"`   // YYYY-MM-DD
	TotalBudget *float64 `json:"total_budget,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	IsPublic    *bool    `json:"is_public,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Section kinds. A section is one itinerary line item.
const (
	SectionKindTravel   = "travel"
	SectionKindActivity = "activity"
	SectionKindStay     = "stay"
)

// Section is a single itinerary entry (travel leg, activity or stay).
// Kind-specific fields are optional and only populated for their kind.
type Section struct {
	ID       string `json:"id"`
	TripID   string `json:"trip_id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	DayIndex int    `json:"day_index"`
	Position int    `json:"position"`

	// Cost of the section; numeric or numeric-string in the store,
	// coerced by the budget aggregator.
	Amount   any    `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`

	// travel
	Mode     string `json:"mode,omitempty"`
	FromName string `json:"from_name,omitempty"`
	ToName   string `json:"to_name,omitempty"`
	Provider string `json:"provider,omitempty"`

	// activity
	ActivityID string `json:"activity_id,omitempty"`
	Address    string `json:"address,omitempty"`

	// stay
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`

	StartTime string     `json:"start_time,omitempty"`
	EndTime   string     `json:"end_time,omitempty"`
	SourceURL string     `json:"source_url,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ============================================================
// Expenses & Budget
// ============================================================

// ExpenseCategory is a display category for expenses (color + icon are
// used by the breakdown; absent ones fall back to the "Other" defaults).
type ExpenseCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// Expense is a recorded cost against a trip. Amount may arrive from the
// store as a JSON number or a numeric string; budget.ParseAmount coerces
// it (invalid input counts as 0, negatives pass through).
type Expense struct {
	ID         string           `json:"id"`
	TripID     string           `json:"trip_id"`
	Title      string           `json:"title"`
	Amount     any              `json:"amount"`
	Currency   string           `json:"currency,omitempty"`
	Category   *ExpenseCategory `json:"category,omitempty"`
	OccurredOn string           `json:"occurred_on,omitempty"` // YYYY-MM-DD, may be empty
	CreatedAt  time.Time        `json:"created_at"`
}

// ExpenseRequest is the payload for recording an expense.
type ExpenseRequest struct {
	Title      string `json:"title"`
	Amount     any    `json:"amount"`
	Currency   string `json:"currency,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	OccurredOn string `json:"occurred_on,omitempty"`
}

// BreakdownEntry aggregates all expenses sharing one category.
type BreakdownEntry struct {
	CategoryName string    `json:"category_name"`
	Color        string    `json:"color"`
	Icon         string    `json:"icon"`
	Total        float64   `json:"total"`
	Count        int       `json:"count"`
	Items        []Expense `json:"items"`
}

// BudgetReport is the derived per-trip budget view.
type BudgetReport struct {
	TripID        string           `json:"trip_id,omitempty"`
	GrandTotal    float64          `json:"grand_total"`
	TotalBudget   *float64         `json:"total_budget,omitempty"`
	EstimatedCost float64          `json:"estimated_cost"`
	Days          int              `json:"days"`
	AvgCostPerDay float64          `json:"avg_cost_per_day"`
	IsOverBudget  bool             `json:"is_over_budget"`
	Breakdown     []BreakdownEntry `json:"breakdown"`
}

// ============================================================
// Catalog (cities & activities)
// ============================================================

// City is a browsable destination in the catalog.
type City struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// CatalogActivity is a curated activity attached to a city.
type CatalogActivity struct {
	ID          string  `json:"id"`
	CityID      string  `json:"city_id"`
	Name        string  `json:"name"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	Address     string  `json:"address,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// ============================================================
// Sharing & Community Feed
// ============================================================

// ShareLink grants public read access to a trip via an opaque token.
// The token itself is returned once on creation; only its hash is stored.
type ShareLink struct {
	ID        string     `json:"id"`
	TripID    string     `json:"trip_id"`
	Token     string     `json:"token,omitempty"`
	TokenHash string     `json:"token_hash,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SharedTrip is the public view of a shared trip: the trip plus its
// itinerary, without owner-only fields.
type SharedTrip struct {
	Trip     *Trip     `json:"trip"`
	Sections []Section `json:"sections"`
}

// FeedItem is one public trip in the community feed.
type FeedItem struct {
	Trip         *Trip  `json:"trip"`
	OwnerName    string `json:"owner_name,omitempty"`
	SectionCount int    `json:"section_count"`
}

// ShareInviteRequest asks the server to email a share link.
type ShareInviteRequest struct {
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

// ============================================================
// Completion engine (AI search)
// ============================================================

// SearchSource is one citation URL returned by the completion engine
// alongside (not inside) its answer text.
type SearchSource struct {
	URL string `json:"url"`
}

// TokenUsage mirrors the completion API usage block.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is what the service layer hands to the completion
// caller: a system instruction plus the user prompt.
type CompletionRequest struct {
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
}

// CompletionResponse carries the raw model text, the engine's separate
// citation list (possibly empty) and token usage.
type CompletionResponse struct {
	Text       string         `json:"text"`
	Sources    []SearchSource `json:"sources,omitempty"`
	TokensUsed TokenUsage     `json:"tokens_used"`
}

// SearchMetrics is the snapshot served by GET /v1/metrics/search.
type SearchMetrics struct {
	TotalSearches       int64   `json:"total_searches"`
	ParseFailures       int64   `json:"parse_failures"`
	ParseFailureRate    float64 `json:"parse_failure_rate"`
	AvgTokensPerRequest float64 `json:"avg_tokens_per_request"`
	EstimatedCostUsd    float64 `json:"estimated_cost_usd"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	Period              string  `json:"period"`
}

// ============================================================
// Auth
// ============================================================

// User is the account profile stored in Supabase.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthCredential holds the bcrypt hash and lockout state for a user.
type AuthCredential struct {
	UserID         string     `json:"user_id"`
	PasswordHash   string     `json:"password_hash"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
}

// AuthRefreshToken is a stored (hashed) refresh token.
type AuthRefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse carries freshly minted tokens.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name,omitempty"`
}

// SuccessResponse is a generic confirmation body.
type SuccessResponse struct {
	Message string `json:"message"`
}
