package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/infra/cache"
	"github.com/wanderplan/wanderplan-go/internal/infra/observability"
	"github.com/wanderplan/wanderplan-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type fakeTripStore struct {
	trips    map[string]*domain.Trip
	sections []domain.Section
	expenses []domain.Expense
	category *domain.ExpenseCategory

	createdSections []domain.Section
	updatedFields   map[string]any
	err             error
}

func newFakeTripStore() *fakeTripStore {
	return &fakeTripStore{trips: map[string]*domain.Trip{}}
}

func (f *fakeTripStore) CreateTrip(_ context.Context, trip *domain.Trip) (*domain.Trip, error) {
	if f.err != nil {
		return nil, f.err
	}
	if trip.ID == "" {
		trip.ID = "trip-1"
	}
	f.trips[trip.ID] = trip
	return trip, nil
}

func (f *fakeTripStore) GetTrip(_ context.Context, tripID string) (*domain.Trip, error) {
	if f.err != nil {
		return nil, f.err
	}
	trip, ok := f.trips[tripID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "trip", ID: tripID}
	}
	return trip, nil
}

func (f *fakeTripStore) ListTrips(_ context.Context, userID string) ([]domain.Trip, error) {
	var out []domain.Trip
	for _, t := range f.trips {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, f.err
}

func (f *fakeTripStore) UpdateTrip(_ context.Context, tripID string, fields map[string]any) (*domain.Trip, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updatedFields = fields
	trip, ok := f.trips[tripID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "trip", ID: tripID}
	}
	return trip, nil
}

func (f *fakeTripStore) DeleteTrip(_ context.Context, tripID string) error {
	delete(f.trips, tripID)
	return f.err
}

func (f *fakeTripStore) ListTripsEndedBefore(_ context.Context, _ string) ([]domain.Trip, error) {
	var out []domain.Trip
	for _, t := range f.trips {
		if t.Status != domain.TripStatusCompleted {
			out = append(out, *t)
		}
	}
	return out, f.err
}

func (f *fakeTripStore) CreateSection(_ context.Context, section *domain.Section) (*domain.Section, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdSections = append(f.createdSections, *section)
	return section, nil
}

func (f *fakeTripStore) ListSections(_ context.Context, _ string) ([]domain.Section, error) {
	return f.sections, f.err
}

func (f *fakeTripStore) UpdateSection(_ context.Context, sectionID string, _ map[string]any) (*domain.Section, error) {
	for i := range f.sections {
		if f.sections[i].ID == sectionID {
			return &f.sections[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "section", ID: sectionID}
}

func (f *fakeTripStore) DeleteSection(_ context.Context, _ string) error { return f.err }

func (f *fakeTripStore) GetSection(_ context.Context, sectionID string) (*domain.Section, error) {
	for i := range f.sections {
		if f.sections[i].ID == sectionID {
			return &f.sections[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "section", ID: sectionID}
}

func (f *fakeTripStore) CreateExpense(_ context.Context, expense *domain.Expense) (*domain.Expense, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.expenses = append(f.expenses, *expense)
	return expense, nil
}

func (f *fakeTripStore) ListExpenses(_ context.Context, _ string) ([]domain.Expense, error) {
	return f.expenses, f.err
}

func (f *fakeTripStore) DeleteExpense(_ context.Context, _ string) error { return f.err }

func (f *fakeTripStore) GetExpense(_ context.Context, expenseID string) (*domain.Expense, error) {
	for i := range f.expenses {
		if f.expenses[i].ID == expenseID {
			return &f.expenses[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "expense", ID: expenseID}
}

func (f *fakeTripStore) GetCategory(_ context.Context, categoryID string) (*domain.ExpenseCategory, error) {
	if f.category == nil {
		return nil, &domain.ErrNotFound{Resource: "expense category", ID: categoryID}
	}
	return f.category, nil
}

type fakeShareStore struct {
	links        map[string]*domain.ShareLink // by token hash
	feed         []domain.FeedItem
	deletedTrips []string
	err          error
}

func newFakeShareStore() *fakeShareStore {
	return &fakeShareStore{links: map[string]*domain.ShareLink{}}
}

func (f *fakeShareStore) CreateShareLink(_ context.Context, link *domain.ShareLink) (*domain.ShareLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	link.ID = "link-1"
	f.links[link.TokenHash] = link
	return link, nil
}

func (f *fakeShareStore) GetShareLinkByHash(_ context.Context, tokenHash string) (*domain.ShareLink, error) {
	link, ok := f.links[tokenHash]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "share link", ID: tokenHash}
	}
	return link, nil
}

func (f *fakeShareStore) DeleteShareLinksForTrip(_ context.Context, tripID string) error {
	f.deletedTrips = append(f.deletedTrips, tripID)
	return f.err
}

func (f *fakeShareStore) DeleteExpiredShareLinks(_ context.Context, _ string) (int, error) {
	return 0, f.err
}

func (f *fakeShareStore) ListPublicTrips(_ context.Context, _ int) ([]domain.FeedItem, error) {
	return f.feed, f.err
}

type fakeMailer struct {
	to, subject, body string
	err               error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, textBody string) error {
	f.to, f.subject, f.body = to, subject, textBody
	return f.err
}

func newTripService(store *fakeTripStore, shares *fakeShareStore, mailer *fakeMailer) *service.TripService {
	return service.NewTripService(
		store,
		shares,
		mailer,
		cache.New[any](5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
		"https://wanderplan.example",
		720*time.Hour,
		20,
	)
}

func f64(v float64) *float64 { return &v }

// --- Tests ---

func TestCreateTrip_Defaults(t *testing.T) {
	store := newFakeTripStore()
	svc := newTripService(store, newFakeShareStore(), &fakeMailer{})

	trip, err := svc.CreateTrip(context.Background(), "user-1", &domain.TripRequest{
		Title:       "Spring in Lisbon",
		Destination: "Lisbon",
		StartDate:   "2026-04-01",
		EndDate:     "2026-04-05",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if trip.Currency != "USD" {
		t.Errorf("expected default currency USD, got %q", trip.Currency)
	}
	if trip.Status != domain.TripStatusPlanning {
		t.Errorf("expected status planning, got %q", trip.Status)
	}
	if trip.UserID != "user-1" {
		t.Errorf("expected owner user-1, got %q", trip.UserID)
	}
}

func TestCreateTrip_Validation(t *testing.T) {
	svc := newTripService(newFakeTripStore(), newFakeShareStore(), &fakeMailer{})

	cases := []struct {
		name string
		req  domain.TripRequest
	}{
		{"missing title", domain.TripRequest{Destination: "Rome", StartDate: "2026-04-01", EndDate: "2026-04-05"}},
		{"missing destination", domain.TripRequest{Title: "Rome", StartDate: "2026-04-01", EndDate: "2026-04-05"}},
		{"bad start date", domain.TripRequest{Title: "Rome", Destination: "Rome", StartDate: "April 1", EndDate: "2026-04-05"}},
		{"end before start", domain.TripRequest{Title: "Rome", Destination: "Rome", StartDate: "2026-04-05", EndDate: "2026-04-01"}},
		{"negative budget", domain.TripRequest{Title: "Rome", Destination: "Rome", StartDate: "2026-04-01", EndDate: "2026-04-05", TotalBudget: f64(-10)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTrip(context.Background(), "user-1", &tc.req)
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetTrip_Forbidden(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "owner"}
	svc := newTripService(store, newFakeShareStore(), &fakeMailer{})

	_, err := svc.GetTrip(context.Background(), "intruder", "trip-1")
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestGetBudgetReport(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{
		ID:          "trip-1",
		UserID:      "user-1",
		StartDate:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
		TotalBudget: f64(100),
	}
	store.expenses = []domain.Expense{
		{ID: "e1", Amount: 80.0, Category: &domain.ExpenseCategory{Name: "Food", Color: "#FF0000", Icon: "food"}},
		{ID: "e2", Amount: "40.50"},
	}
	svc := newTripService(store, newFakeShareStore(), &fakeMailer{})

	report, err := svc.GetBudgetReport(context.Background(), "user-1", "trip-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.GrandTotal != 120.50 {
		t.Errorf("expected grand total 120.50, got %f", report.GrandTotal)
	}
	if report.Days != 3 {
		t.Errorf("expected 3 days, got %d", report.Days)
	}
	if !report.IsOverBudget {
		t.Error("expected over-budget flag to be set")
	}
	if len(report.Breakdown) != 2 {
		t.Fatalf("expected 2 breakdown entries, got %d", len(report.Breakdown))
	}
	if report.Breakdown[1].CategoryName != "Other" {
		t.Errorf("expected uncategorized expense under Other, got %q", report.Breakdown[1].CategoryName)
	}
	if report.TripID != "trip-1" {
		t.Errorf("expected trip_id trip-1, got %q", report.TripID)
	}
}

func TestGetBudgetReport_Forbidden(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "owner"}
	svc := newTripService(store, newFakeShareStore(), &fakeMailer{})

	_, err := svc.GetBudgetReport(context.Background(), "intruder", "trip-1")
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestAddExpense_RequiresAmount(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "user-1"}
	svc := newTripService(store, newFakeShareStore(), &fakeMailer{})

	_, err := svc.AddExpense(context.Background(), "user-1", "trip-1", &domain.ExpenseRequest{Title: "Lunch"})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddSection_InvalidKind(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "user-1"}
	svc := newTripService(store, newFakeShareStore(), &fakeMailer{})

	_, err := svc.AddSection(context.Background(), "user-1", "trip-1", &domain.Section{
		Kind:  "flight",
		Title: "MAD-LIS",
	})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteTrip_RemovesShareLinks(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "user-1"}
	shares := newFakeShareStore()
	svc := newTripService(store, shares, &fakeMailer{})

	if err := svc.DeleteTrip(context.Background(), "user-1", "trip-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(shares.deletedTrips) != 1 || shares.deletedTrips[0] != "trip-1" {
		t.Errorf("expected share links deleted for trip-1, got %v", shares.deletedTrips)
	}
	if _, ok := store.trips["trip-1"]; ok {
		t.Error("expected trip to be deleted")
	}
}

func TestCreateShareLink_ReturnsRawTokenOnce(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "user-1"}
	shares := newFakeShareStore()
	svc := newTripService(store, shares, &fakeMailer{})

	link, shareURL, err := svc.CreateShareLink(context.Background(), "user-1", "trip-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if link.Token == "" {
		t.Error("expected raw token in response")
	}
	if link.TokenHash != "" {
		t.Error("stored hash must not be returned")
	}
	if !strings.Contains(shareURL, link.Token) {
		t.Errorf("expected share URL to contain the token, got %q", shareURL)
	}

	// Only the hash is persisted.
	for hash, stored := range shares.links {
		if hash == link.Token {
			t.Error("raw token must not be used as storage key")
		}
		if stored.TokenHash == link.Token {
			t.Error("raw token must not be persisted")
		}
	}
}

func TestGetSharedTrip_ExpiredToken(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "user-1"}
	shares := newFakeShareStore()
	svc := newTripService(store, shares, &fakeMailer{})

	link, _, err := svc.CreateShareLink(context.Background(), "user-1", "trip-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Force the stored link into the past.
	for _, stored := range shares.links {
		past := time.Now().Add(-time.Hour)
		stored.ExpiresAt = &past
	}

	_, err = svc.GetSharedTrip(context.Background(), link.Token)
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not-found for expired token, got %v", err)
	}
}

func TestGetSharedTrip_StripsOwnerFields(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "user-1", Notes: "private notes"}
	shares := newFakeShareStore()
	svc := newTripService(store, shares, &fakeMailer{})

	link, _, err := svc.CreateShareLink(context.Background(), "user-1", "trip-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	shared, err := svc.GetSharedTrip(context.Background(), link.Token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if shared.Trip.UserID != "" {
		t.Error("public view must not expose the owner ID")
	}
	if shared.Trip.Notes != "" {
		t.Error("public view must not expose private notes")
	}
}

func TestSendShareInvite(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{ID: "trip-1", UserID: "user-1", Title: "Tokyo Trip", Destination: "Tokyo"}
	mailer := &fakeMailer{}
	svc := newTripService(store, newFakeShareStore(), mailer)

	err := svc.SendShareInvite(context.Background(), "user-1", "trip-1", &domain.ShareInviteRequest{
		Email: "friend@example.com",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mailer.to != "friend@example.com" {
		t.Errorf("expected mail to friend@example.com, got %q", mailer.to)
	}
	if !strings.Contains(mailer.body, "/v1/shared/") {
		t.Errorf("expected share URL in mail body, got %q", mailer.body)
	}
}

func TestGetFeed_Cached(t *testing.T) {
	shares := newFakeShareStore()
	shares.feed = []domain.FeedItem{{Trip: &domain.Trip{ID: "trip-1"}, OwnerName: "Ana", SectionCount: 3}}
	svc := newTripService(newFakeTripStore(), shares, &fakeMailer{})

	first, err := svc.GetFeed(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// The store can fail now; the cached feed should still come back.
	shares.err = errors.New("supabase down")
	second, err := svc.GetFeed(context.Background())
	if err != nil {
		t.Fatalf("expected cached feed, got %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("expected one feed item, got %d and %d", len(first), len(second))
	}
}
