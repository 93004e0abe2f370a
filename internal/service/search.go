package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/wanderplan/wanderplan-go/internal/aisearch"
	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/infra/observability"
	"github.com/wanderplan/wanderplan-go/internal/port"
)

var searchTracer = otel.Tracer("service/search")

// SearchService runs AI option searches and itinerary generation
// through the completion engine.
type SearchService struct {
	completion port.CompletionCaller
	trips      port.TripStore
	catalog    port.CatalogStore
	cache      port.Cache[any]
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewSearchService creates the search service with all dependencies injected.
func NewSearchService(
	completion port.CompletionCaller,
	trips port.TripStore,
	catalog port.CatalogStore,
	cache port.Cache[any],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SearchService {
	return &SearchService{
		completion: completion,
		trips:      trips,
		catalog:    catalog,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

func validateSearchRequest(dom aisearch.Domain, req domain.SearchRequest) error {
	switch dom {
	case aisearch.DomainTravel:
		if req.From == "" || req.To == "" {
			return &domain.ErrValidation{Field: "from/to", Message: "travel search needs from and to"}
		}
	case aisearch.DomainActivity, aisearch.DomainStay:
		if req.Destination == "" {
			return &domain.ErrValidation{Field: "destination", Message: "destination is required"}
		}
	default:
		return &domain.ErrValidation{Field: "domain", Message: "unknown search domain"}
	}
	return nil
}

func searchCacheKey(dom aisearch.Domain, req domain.SearchRequest) string {
	return fmt.Sprintf("search:%s:%s:%s:%s:%s:%s:%s",
		dom, req.Destination, req.From, req.To, req.Date, req.Budget, req.Query)
}

// Search asks the completion engine for bookable options in one domain
// and extracts them into a typed result. An answer the extractor cannot
// use is a parse failure, surfaced as ErrUnparseableAI with a bounded
// excerpt of the raw output.
func (s *SearchService) Search(ctx context.Context, dom aisearch.Domain, req domain.SearchRequest) (*domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := searchTracer.Start(ctx, "SearchService.Search")
	defer span.End()
	span.SetAttributes(attribute.String("search.domain", string(dom)))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("ai_search", time.Since(start))
	}()

	if err := validateSearchRequest(dom, req); err != nil {
		return nil, err
	}

	cacheKey := searchCacheKey(dom, req)
	if cached, ok := s.cache.Get(cacheKey); ok {
		if result, ok := cached.(*domain.SearchResult); ok {
			s.metrics.IncrCacheHit("search")
			return result, nil
		}
	}
	s.metrics.IncrCacheMiss("search")

	resp, err := s.completion.Complete(ctx, domain.CompletionRequest{
		System: aisearch.SystemInstruction,
		Prompt: aisearch.BuildSearchPrompt(dom, req),
	})
	if err != nil {
		s.logger.Error("completion call failed",
			zap.String("domain", string(dom)),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("completion")
		s.metrics.IncrSearch(string(dom), "error")
		return nil, fmt.Errorf("completion call: %w", err)
	}
	s.metrics.RecordTokens(resp.TokensUsed.PromptTokens, resp.TokensUsed.CompletionTokens)

	result := aisearch.ExtractOptions(resp.Text, dom, resp.Sources)
	if result == nil {
		s.logger.Warn("unparseable completion response",
			zap.String("domain", string(dom)),
			zap.String("excerpt", aisearch.Excerpt(resp.Text)),
		)
		s.metrics.IncrParseFailure(string(dom))
		s.metrics.IncrSearch(string(dom), "parse_failure")
		return nil, &domain.ErrUnparseableAI{Domain: string(dom), Excerpt: aisearch.Excerpt(resp.Text)}
	}

	result.Query = req.Query
	result.TokensUsed = resp.TokensUsed
	s.metrics.IncrSearch(string(dom), "success")
	s.cache.Set(cacheKey, result)
	return result, nil
}

// GenerateItinerary builds an AI day-by-day plan for an owned trip and
// optionally persists the plan's activities as itinerary sections.
func (s *SearchService) GenerateItinerary(ctx context.Context, userID, tripID string, req domain.GenerateRequest) (*domain.ItineraryPlan, error) {
	ctx, span := searchTracer.Start(ctx, "SearchService.GenerateItinerary")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != userID {
		return nil, &domain.ErrForbidden{Action: "access trip " + tripID}
	}

	resp, err := s.completion.Complete(ctx, domain.CompletionRequest{
		System: aisearch.SystemInstruction,
		Prompt: aisearch.BuildItineraryPrompt(trip, req),
	})
	if err != nil {
		s.metrics.IncrExternalError("completion")
		return nil, fmt.Errorf("completion call: %w", err)
	}
	s.metrics.RecordTokens(resp.TokensUsed.PromptTokens, resp.TokensUsed.CompletionTokens)

	plan := aisearch.ExtractItinerary(resp.Text)
	if plan == nil {
		s.metrics.IncrParseFailure("itinerary")
		return nil, &domain.ErrUnparseableAI{Domain: "itinerary", Excerpt: aisearch.Excerpt(resp.Text)}
	}

	if req.Save {
		if err := s.savePlan(ctx, trip, plan); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// savePlan persists generated days as activity sections and stores the
// plan's cost estimate on the trip. Model day numbers are 1-based and
// occasionally run past the trip's span; indices clamp into it.
func (s *SearchService) savePlan(ctx context.Context, trip *domain.Trip, plan *domain.ItineraryPlan) error {
	maxIndex := 0
	if trip.EndDate.After(trip.StartDate) {
		maxIndex = int(trip.EndDate.Sub(trip.StartDate).Hours() / 24)
	}

	for _, day := range plan.Days {
		dayIndex := day.Day - 1
		if dayIndex < 0 {
			dayIndex = 0
		}
		if dayIndex > maxIndex {
			dayIndex = maxIndex
		}
		for pos, act := range day.Activities {
			section := &domain.Section{
				TripID:    trip.ID,
				Kind:      domain.SectionKindActivity,
				Title:     act.Name,
				DayIndex:  dayIndex,
				Position:  pos,
				Amount:    act.Price,
				Currency:  act.Currency,
				Address:   act.Address,
				SourceURL: act.SourceURL,
				Notes:     act.Description,
			}
			if _, err := s.trips.CreateSection(ctx, section); err != nil {
				return fmt.Errorf("save generated section: %w", err)
			}
		}
	}

	if plan.EstimatedCost > 0 {
		if _, err := s.trips.UpdateTrip(ctx, trip.ID, map[string]any{
			"estimated_cost": plan.EstimatedCost,
		}); err != nil {
			s.logger.Warn("failed to store estimated cost",
				zap.String("trip_id", trip.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}
