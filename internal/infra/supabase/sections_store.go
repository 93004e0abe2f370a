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
// Itinerary sections — trip_sections table
// ============================================================

type sectionRow struct {
	ID         string  `json:"id"`
	TripID     string  `json:"trip_id"`
	Kind       string  `json:"kind"`
	Title      string  `json:"title"`
	DayIndex   int     `json:"day_index"`
	Position   int     `json:"position"`
	Amount     any     `json:"amount"`
	Currency   string  `json:"currency"`
	Mode       string  `json:"mode"`
	FromName   string  `json:"from_name"`
	ToName     string  `json:"to_name"`
	Provider   string  `json:"provider"`
	ActivityID string  `json:"activity_id"`
	Address    string  `json:"address"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	SourceURL  string  `json:"source_url"`
	Notes      string  `json:"notes"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  *string `json:"updated_at"`
}

func (r sectionRow) toDomain() domain.Section {
	s := domain.Section{
		ID:         r.ID,
		TripID:     r.TripID,
		Kind:       r.Kind,
		Title:      r.Title,
		DayIndex:   r.DayIndex,
		Position:   r.Position,
		Amount:     r.Amount,
		Currency:   r.Currency,
		Mode:       r.Mode,
		FromName:   r.FromName,
		ToName:     r.ToName,
		Provider:   r.Provider,
		ActivityID: r.ActivityID,
		Address:    r.Address,
		CheckIn:    r.CheckIn,
		CheckOut:   r.CheckOut,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		SourceURL:  r.SourceURL,
		Notes:      r.Notes,
		CreatedAt:  parseDate(r.CreatedAt),
	}
	if r.UpdatedAt != nil {
		u := parseDate(*r.UpdatedAt)
		s.UpdatedAt = &u
	}
	return s
}

func (c *Client) CreateSection(ctx context.Context, section *domain.Section) (*domain.Section, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateSection")
	defer span.End()
	span.SetAttributes(
		attribute.String("trip.id", section.TripID),
		attribute.String("section.kind", section.Kind),
	)

	data := map[string]any{
		"id":          uuid.NewString(),
		"trip_id":     section.TripID,
		"kind":        section.Kind,
		"title":       section.Title,
		"day_index":   section.DayIndex,
		"position":    section.Position,
		"currency":    section.Currency,
		"mode":        section.Mode,
		"from_name":   section.FromName,
		"to_name":     section.ToName,
		"provider":    section.Provider,
		"activity_id": section.ActivityID,
		"address":     section.Address,
		"check_in":    section.CheckIn,
		"check_out":   section.CheckOut,
		"start_time":  section.StartTime,
		"end_time":    section.EndTime,
		"source_url":  section.SourceURL,
		"notes":       section.Notes,
	}
	if section.Amount != nil {
		data["amount"] = section.Amount
	}

	body, err := c.doPost(ctx, "trip_sections", data)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trip_sections", Err: err}
	}

	rows, err := decodeRows[sectionRow](body, "section")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase returned no representation for created section")
	}
	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) ListSections(ctx context.Context, tripID string) ([]domain.Section, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListSections")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	path := fmt.Sprintf("trip_sections?trip_id=eq.%s&order=day_index.asc,position.asc", tripID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trip_sections", Err: err}
	}
	if empty(body) {
		return []domain.Section{}, nil
	}

	rows, err := decodeRows[sectionRow](body, "sections")
	if err != nil {
		return nil, err
	}
	sections := make([]domain.Section, 0, len(rows))
	for _, r := range rows {
		sections = append(sections, r.toDomain())
	}
	return sections, nil
}

func (c *Client) GetSection(ctx context.Context, sectionID string) (*domain.Section, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetSection")
	defer span.End()
	span.SetAttributes(attribute.String("section.id", sectionID))

	path := fmt.Sprintf("trip_sections?id=eq.%s&limit=1", sectionID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trip_sections", Err: err}
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "section", ID: sectionID}
	}

	rows, err := decodeRows[sectionRow](body, "section")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "section", ID: sectionID}
	}
	section := rows[0].toDomain()
	return &section, nil
}

func (c *Client) UpdateSection(ctx context.Context, sectionID string, fields map[string]any) (*domain.Section, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateSection")
	defer span.End()
	span.SetAttributes(attribute.String("section.id", sectionID))

	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	body, err := c.doPatch(ctx, fmt.Sprintf("trip_sections?id=eq.%s", sectionID), fields)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/trip_sections", Err: err}
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "section", ID: sectionID}
	}

	rows, err := decodeRows[sectionRow](body, "section")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "section", ID: sectionID}
	}
	section := rows[0].toDomain()
	return &section, nil
}

func (c *Client) DeleteSection(ctx context.Context, sectionID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteSection")
	defer span.End()
	span.SetAttributes(attribute.String("section.id", sectionID))

	if err := c.doDelete(ctx, fmt.Sprintf("trip_sections?id=eq.%s", sectionID)); err != nil {
		return &domain.ErrExternalService{Service: "supabase/trip_sections", Err: err}
	}
	return nil
}
