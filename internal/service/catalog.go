package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/infra/observability"
	"github.com/wanderplan/wanderplan-go/internal/port"
)

var catalogTracer = otel.Tracer("service/catalog")

// CatalogService serves the curated city/activity catalog.
type CatalogService struct {
	store   port.CatalogStore
	cache   port.Cache[any]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCatalogService creates the catalog service.
func NewCatalogService(store port.CatalogStore, cache port.Cache[any], metrics *observability.Metrics, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// ListCities returns all catalog cities, cached for the configured TTL.
func (s *CatalogService) ListCities(ctx context.Context) ([]domain.City, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListCities")
	defer span.End()

	if cached, ok := s.cache.Get("cities"); ok {
		if cities, ok := cached.([]domain.City); ok {
			s.metrics.IncrCacheHit("cities")
			return cities, nil
		}
	}
	s.metrics.IncrCacheMiss("cities")

	cities, err := s.store.ListCities(ctx)
	if err != nil {
		s.metrics.IncrExternalError("cities")
		return nil, err
	}
	s.cache.Set("cities", cities)
	return cities, nil
}

func (s *CatalogService) GetCity(ctx context.Context, cityID string) (*domain.City, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.GetCity")
	defer span.End()
	span.SetAttributes(attribute.String("city.id", cityID))

	return s.store.GetCity(ctx, cityID)
}

// ListCityActivities returns curated activities for one city.
func (s *CatalogService) ListCityActivities(ctx context.Context, cityID string) ([]domain.CatalogActivity, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListCityActivities")
	defer span.End()
	span.SetAttributes(attribute.String("city.id", cityID))

	// Verify the city exists so a bogus ID is a 404, not an empty list.
	if _, err := s.store.GetCity(ctx, cityID); err != nil {
		return nil, err
	}
	return s.store.ListCityActivities(ctx, cityID)
}
