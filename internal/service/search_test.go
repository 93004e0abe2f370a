package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wanderplan/wanderplan-go/internal/aisearch"
	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/infra/cache"
	"github.com/wanderplan/wanderplan-go/internal/infra/observability"
	"github.com/wanderplan/wanderplan-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockCompletion struct {
	response *domain.CompletionResponse
	err      error
	calls    int
}

func (m *mockCompletion) Complete(_ context.Context, _ domain.CompletionRequest) (*domain.CompletionResponse, error) {
	m.calls++
	return m.response, m.err
}

type fakeCatalogStore struct {
	cities     []domain.City
	activities []domain.CatalogActivity
	err        error
}

func (f *fakeCatalogStore) ListCities(_ context.Context) ([]domain.City, error) {
	return f.cities, f.err
}

func (f *fakeCatalogStore) GetCity(_ context.Context, cityID string) (*domain.City, error) {
	for i := range f.cities {
		if f.cities[i].ID == cityID {
			return &f.cities[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "city", ID: cityID}
}

func (f *fakeCatalogStore) ListCityActivities(_ context.Context, _ string) ([]domain.CatalogActivity, error) {
	return f.activities, f.err
}

func newSearchService(completion *mockCompletion, trips *fakeTripStore) *service.SearchService {
	return service.NewSearchService(
		completion,
		trips,
		&fakeCatalogStore{},
		cache.New[any](5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

// --- Tests ---

func TestSearch_Success(t *testing.T) {
	completion := &mockCompletion{response: &domain.CompletionResponse{
		Text: "```json\n" +
			`{"transportation_options":[{"mode":"train","provider":"Renfe","price":45,"duration":"2h30m"}]}` +
			"\n```",
		Sources:    []domain.SearchSource{{URL: "https://renfe.com"}},
		TokensUsed: domain.TokenUsage{PromptTokens: 300, CompletionTokens: 120, TotalTokens: 420},
	}}
	svc := newSearchService(completion, newFakeTripStore())

	result, err := svc.Search(context.Background(), aisearch.DomainTravel, domain.SearchRequest{
		Query: "Madrid to Lisbon",
		From:  "Madrid",
		To:    "Lisbon",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Domain != domain.SearchDomainTravel {
		t.Errorf("expected domain travel, got %q", result.Domain)
	}
	if len(result.Travel) != 1 {
		t.Fatalf("expected 1 travel option, got %d", len(result.Travel))
	}
	if result.Travel[0].Mode != "train" {
		t.Errorf("expected mode train, got %q", result.Travel[0].Mode)
	}
	if result.TokensUsed.TotalTokens != 420 {
		t.Errorf("expected 420 tokens, got %d", result.TokensUsed.TotalTokens)
	}
}

func TestSearch_CachesResult(t *testing.T) {
	completion := &mockCompletion{response: &domain.CompletionResponse{
		Text: `{"hotels":[{"name":"Pensao Central","price":60}]}`,
	}}
	svc := newSearchService(completion, newFakeTripStore())

	req := domain.SearchRequest{Destination: "Porto"}
	if _, err := svc.Search(context.Background(), aisearch.DomainStay, req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.Search(context.Background(), aisearch.DomainStay, req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if completion.calls != 1 {
		t.Errorf("expected 1 completion call, got %d", completion.calls)
	}
}

func TestSearch_ParseFailure(t *testing.T) {
	completion := &mockCompletion{response: &domain.CompletionResponse{
		Text: "I'm sorry, I could not find any options for that route.",
	}}
	svc := newSearchService(completion, newFakeTripStore())

	_, err := svc.Search(context.Background(), aisearch.DomainActivity, domain.SearchRequest{Destination: "Oslo"})
	var unparseable *domain.ErrUnparseableAI
	if !errors.As(err, &unparseable) {
		t.Fatalf("expected unparseable error, got %v", err)
	}
	if unparseable.Domain != string(aisearch.DomainActivity) {
		t.Errorf("expected activity domain in error, got %q", unparseable.Domain)
	}
	if unparseable.Excerpt == "" {
		t.Error("expected a diagnostic excerpt")
	}
}

func TestSearch_CompletionError(t *testing.T) {
	completion := &mockCompletion{err: errors.New("engine unavailable")}
	svc := newSearchService(completion, newFakeTripStore())

	_, err := svc.Search(context.Background(), aisearch.DomainStay, domain.SearchRequest{Destination: "Rome"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestSearch_Validation(t *testing.T) {
	svc := newSearchService(&mockCompletion{}, newFakeTripStore())

	// Travel search without endpoints.
	_, err := svc.Search(context.Background(), aisearch.DomainTravel, domain.SearchRequest{Query: "anywhere"})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Stay search without destination.
	_, err = svc.Search(context.Background(), aisearch.DomainStay, domain.SearchRequest{})
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearch_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	svc := newSearchService(&mockCompletion{}, newFakeTripStore())
	_, err := svc.Search(ctx, aisearch.DomainStay, domain.SearchRequest{Destination: "Rome"})
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func TestGenerateItinerary_SavesSections(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{
		ID:          "trip-1",
		UserID:      "user-1",
		Destination: "Paris",
		StartDate:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
	}
	completion := &mockCompletion{response: &domain.CompletionResponse{
		Text: `{"destination":"Paris","days":[` +
			`{"day":1,"activities":[{"name":"Louvre","price":22,"address":"Rue de Rivoli"}]},` +
			`{"day":2,"activities":[{"name":"Seine cruise","price":15}]}` +
			`],"estimated_cost":37}`,
	}}
	svc := newSearchService(completion, store)

	plan, err := svc.GenerateItinerary(context.Background(), "user-1", "trip-1", domain.GenerateRequest{Save: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(plan.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(plan.Days))
	}
	if len(store.createdSections) != 2 {
		t.Fatalf("expected 2 saved sections, got %d", len(store.createdSections))
	}

	first := store.createdSections[0]
	if first.Kind != domain.SectionKindActivity {
		t.Errorf("expected activity section, got %q", first.Kind)
	}
	if first.DayIndex != 0 {
		t.Errorf("expected day 1 to map to index 0, got %d", first.DayIndex)
	}
	if store.updatedFields["estimated_cost"] != 37.0 {
		t.Errorf("expected estimated cost 37 stored on trip, got %v", store.updatedFields["estimated_cost"])
	}
}

func TestGenerateItinerary_ClampsDayIndex(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{
		ID:        "trip-1",
		UserID:    "user-1",
		StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
	}
	completion := &mockCompletion{response: &domain.CompletionResponse{
		Text: `{"days":[` +
			`{"day":50,"activities":[{"name":"Runaway day"}]},` +
			`{"day":2,"activities":[{"name":"In-range day"}]}` +
			`]}`,
	}}
	svc := newSearchService(completion, store)

	if _, err := svc.GenerateItinerary(context.Background(), "user-1", "trip-1", domain.GenerateRequest{Save: true}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(store.createdSections) != 2 {
		t.Fatalf("expected 2 saved sections, got %d", len(store.createdSections))
	}
	if got := store.createdSections[0].DayIndex; got != 2 {
		t.Errorf("day 50 on a 3-day trip should clamp to index 2, got %d", got)
	}
	if got := store.createdSections[1].DayIndex; got != 1 {
		t.Errorf("day 2 should keep index 1, got %d", got)
	}
}

func TestGenerateItinerary_Forbidden(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "owner"}
	svc := newSearchService(&mockCompletion{}, store)

	_, err := svc.GenerateItinerary(context.Background(), "intruder", "trip-1", domain.GenerateRequest{})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestGenerateItinerary_Unparseable(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "user-1"}
	completion := &mockCompletion{response: &domain.CompletionResponse{Text: "no plan today"}}
	svc := newSearchService(completion, store)

	_, err := svc.GenerateItinerary(context.Background(), "user-1", "trip-1", domain.GenerateRequest{})
	var unparseable *domain.ErrUnparseableAI
	if !errors.As(err, &unparseable) {
		t.Fatalf("expected unparseable error, got %v", err)
	}
}
