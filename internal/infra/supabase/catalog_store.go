package supabase

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// ============================================================
// CatalogStore implementation — cities + city_activities
// ============================================================

// ListCities is the hottest read in the app (landing page); the
// service layer caches the result.
func (c *Client) ListCities(ctx context.Context) ([]domain.City, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCities")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "cities?order=name.asc")
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/cities", Err: err}
	}
	if empty(body) {
		return []domain.City{}, nil
	}

	rows, err := decodeRows[domain.City](body, "cities")
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetCity(ctx context.Context, cityID string) (*domain.City, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCity")
	defer span.End()
	span.SetAttributes(attribute.String("city.id", cityID))

	path := fmt.Sprintf("cities?id=eq.%s&limit=1", cityID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/cities", Err: err}
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "city", ID: cityID}
	}

	rows, err := decodeRows[domain.City](body, "city")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "city", ID: cityID}
	}
	return &rows[0], nil
}

func (c *Client) ListCityActivities(ctx context.Context, cityID string) ([]domain.CatalogActivity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCityActivities")
	defer span.End()
	span.SetAttributes(attribute.String("city.id", cityID))

	path := fmt.Sprintf("city_activities?city_id=eq.%s&order=rating.desc", cityID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/city_activities", Err: err}
	}
	if empty(body) {
		return []domain.CatalogActivity{}, nil
	}

	rows, err := decodeRows[domain.CatalogActivity](body, "city_activities")
	if err != nil {
		return nil, err
	}
	return rows, nil
}
