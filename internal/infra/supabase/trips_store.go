package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// ============================================================
// TripStore implementation — trips, sections, expenses via PostgREST
// ============================================================

// tripRow maps the trips table. Dates live in date columns and come
// back as "YYYY-MM-DD" (or RFC3339 from timestamptz defaults).
type tripRow struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	Title         string   `json:"title"`
	Destination   string   `json:"destination"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	TotalBudget   *float64 `json:"total_budget"`
	EstimatedCost *float64 `json:"estimated_cost"`
	Currency      string   `json:"currency"`
	Status        string   `json:"status"`
	IsPublic      bool     `json:"is_public"`
	Notes         string   `json:"notes"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     *string  `json:"updated_at"`
}

func (r tripRow) toDomain() domain.Trip {
	t := domain.Trip{
		ID:            r.ID,
		UserID:        r.UserID,
		Title:         r.Title,
		Destination:   r.Destination,
		StartDate:     parseDate(r.StartDate),
		EndDate:       parseDate(r.EndDate),
		TotalBudget:   r.TotalBudget,
		EstimatedCost: r.EstimatedCost,
		Currency:      r.Currency,
		Status:        r.Status,
		IsPublic:      r.IsPublic,
		Notes:         r.Notes,
		CreatedAt:     parseDate(r.CreatedAt),
	}
	if r.UpdatedAt != nil {
		u := parseDate(*r.UpdatedAt)
		t.UpdatedAt = &u
	}
	return t
}

func parseDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, _ = time.Parse("2006-01-02", s)
	}
	return t
}

func (c *Client) CreateTrip(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTrip")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", trip.UserID))

	data := map[string]any{
		"id":          uuid.NewString(),
		"user_id":     trip.UserID,
		"title":       trip.Title,
		"destination": trip.Destination,
		"start_date":  trip.StartDate.Format("2006-01-02"),
		"end_date":    trip.EndDate.Format("2006-01-02"),
		"currency":    trip.Currency,
		"status":      trip.Status,
		"is_public":   trip.IsPublic,
		"notes":       trip.Notes,
	}
	if trip.TotalBudget != nil {
		data["total_budget"] = *trip.TotalBudget
	}

	body, err := c.doPost(ctx, "trips", data)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trips", Err: err}
	}

	rows, err := decodeRows[tripRow](body, "trip")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase returned no representation for created trip")
	}
	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTrip")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	path := fmt.Sprintf("trips?id=eq.%s&limit=1", tripID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trips", Err: err}
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "trip", ID: tripID}
	}

	rows, err := decodeRows[tripRow](body, "trip")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "trip", ID: tripID}
	}
	trip := rows[0].toDomain()
	return &trip, nil
}

func (c *Client) ListTrips(ctx context.Context, userID string) ([]domain.Trip, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTrips")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("trips?user_id=eq.%s&order=start_date.desc", userID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trips", Err: err}
	}
	if empty(body) {
		return []domain.Trip{}, nil
	}

	rows, err := decodeRows[tripRow](body, "trips")
	if err != nil {
		return nil, err
	}
	trips := make([]domain.Trip, 0, len(rows))
	for _, r := range rows {
		trips = append(trips, r.toDomain())
	}
	return trips, nil
}

func (c *Client) UpdateTrip(ctx context.Context, tripID string, fields map[string]any) (*domain.Trip, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTrip")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	body, err := c.doPatch(ctx, fmt.Sprintf("trips?id=eq.%s", tripID), fields)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trips", Err: err}
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "trip", ID: tripID}
	}

	rows, err := decodeRows[tripRow](body, "trip")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "trip", ID: tripID}
	}
	trip := rows[0].toDomain()
	return &trip, nil
}

func (c *Client) DeleteTrip(ctx context.Context, tripID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTrip")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	// Child rows first; PostgREST has no cascading delete here.
	if err := c.doDelete(ctx, fmt.Sprintf("trip_sections?trip_id=eq.%s", tripID)); err != nil {
		return &domain.ErrExternalService{Service: "supabase/trip_sections", Err: err}
	}
	if err := c.doDelete(ctx, fmt.Sprintf("expenses?trip_id=eq.%s", tripID)); err != nil {
		return &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	if err := c.doDelete(ctx, fmt.Sprintf("trips?id=eq.%s", tripID)); err != nil {
		return &domain.ErrExternalService{Service: "supabase/trips", Err: err}
	}
	return nil
}

// ListTripsEndedBefore returns trips still marked planning/ongoing
// whose end date has passed. Used by the nightly maintenance job.
func (c *Client) ListTripsEndedBefore(ctx context.Context, isoDate string) ([]domain.Trip, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTripsEndedBefore")
	defer span.End()

	path := fmt.Sprintf("trips?end_date=lt.%s&status=neq.%s", isoDate, domain.TripStatusCompleted)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trips", Err: err}
	}
	if empty(body) {
		return []domain.Trip{}, nil
	}

	rows, err := decodeRows[tripRow](body, "trips")
	if err != nil {
		return nil, err
	}
	trips := make([]domain.Trip, 0, len(rows))
	for _, r := range rows {
		trips = append(trips, r.toDomain())
	}
	return trips, nil
}
