package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wanderplan/wanderplan-go/internal/budget"
	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/infra/observability"
	"github.com/wanderplan/wanderplan-go/internal/port"
)

var tracer = otel.Tracer("service/trips")

// TripService owns trip, itinerary-section and expense operations,
// budget reports, and sharing (share.go).
type TripService struct {
	store   port.TripStore
	shares  port.ShareStore
	mailer  port.Mailer
	cache   port.Cache[any]
	metrics *observability.Metrics
	logger  *zap.Logger

	shareBaseURL string
	shareTTL     time.Duration
	feedLimit    int
}

// NewTripService creates the trip service with all dependencies injected.
func NewTripService(
	store port.TripStore,
	shares port.ShareStore,
	mailer port.Mailer,
	cache port.Cache[any],
	metrics *observability.Metrics,
	logger *zap.Logger,
	shareBaseURL string,
	shareTTL time.Duration,
	feedLimit int,
) *TripService {
	return &TripService{
		store:        store,
		shares:       shares,
		mailer:       mailer,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		shareBaseURL: shareBaseURL,
		shareTTL:     shareTTL,
		feedLimit:    feedLimit,
	}
}

// getOwnedTrip loads a trip and enforces that userID owns it.
func (s *TripService) getOwnedTrip(ctx context.Context, userID, tripID string) (*domain.Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != userID {
		return nil, &domain.ErrForbidden{Action: "access trip " + tripID}
	}
	return trip, nil
}

// ============================================================
// Trips
// ============================================================

func validateTripRequest(req *domain.TripRequest) (start, end time.Time, err error) {
	if req.Title == "" {
		return start, end, &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if req.Destination == "" {
		return start, end, &domain.ErrValidation{Field: "destination", Message: "destination is required"}
	}
	start, err = time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return start, end, &domain.ErrValidation{Field: "start_date", Message: "must be YYYY-MM-DD"}
	}
	end, err = time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return start, end, &domain.ErrValidation{Field: "end_date", Message: "must be YYYY-MM-DD"}
	}
	if end.Before(start) {
		return start, end, &domain.ErrValidation{Field: "end_date", Message: "must not be before start_date"}
	}
	if req.TotalBudget != nil && *req.TotalBudget < 0 {
		return start, end, &domain.ErrValidation{Field: "total_budget", Message: "must not be negative"}
	}
	return start, end, nil
}

// CreateTrip validates and persists a new trip for the user.
func (s *TripService) CreateTrip(ctx context.Context, userID string, req *domain.TripRequest) (*domain.Trip, error) {
	ctx, span := tracer.Start(ctx, "TripService.CreateTrip")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start, end, err := validateTripRequest(req)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	trip := &domain.Trip{
		UserID:      userID,
		Title:       req.Title,
		Destination: req.Destination,
		StartDate:   start,
		EndDate:     end,
		TotalBudget: req.TotalBudget,
		Currency:    currency,
		Status:      domain.TripStatusPlanning,
		IsPublic:    req.IsPublic != nil && *req.IsPublic,
		Notes:       req.Notes,
	}

	created, err := s.store.CreateTrip(ctx, trip)
	if err != nil {
		s.metrics.IncrExternalError("trips")
		return nil, fmt.Errorf("create trip: %w", err)
	}

	s.logger.Info("trip created",
		zap.String("trip_id", created.ID),
		zap.String("user_id", userID),
		zap.String("destination", created.Destination),
	)
	return created, nil
}

func (s *TripService) GetTrip(ctx context.Context, userID, tripID string) (*domain.Trip, error) {
	ctx, span := tracer.Start(ctx, "TripService.GetTrip")
	defer span.End()

	return s.getOwnedTrip(ctx, userID, tripID)
}

func (s *TripService) ListTrips(ctx context.Context, userID string) ([]domain.Trip, error) {
	ctx, span := tracer.Start(ctx, "TripService.ListTrips")
	defer span.End()

	return s.store.ListTrips(ctx, userID)
}

// UpdateTrip applies a partial update to an owned trip.
func (s *TripService) UpdateTrip(ctx context.Context, userID, tripID string, req *domain.TripRequest) (*domain.Trip, error) {
	ctx, span := tracer.Start(ctx, "TripService.UpdateTrip")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Title != "" {
		fields["title"] = req.Title
	}
	if req.Destination != "" {
		fields["destination"] = req.Destination
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "start_date", Message: "must be YYYY-MM-DD"}
		}
		fields["start_date"] = start.Format("2006-01-02")
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "end_date", Message: "must be YYYY-MM-DD"}
		}
		fields["end_date"] = end.Format("2006-01-02")
	}
	if req.TotalBudget != nil {
		if *req.TotalBudget < 0 {
			return nil, &domain.ErrValidation{Field: "total_budget", Message: "must not be negative"}
		}
		fields["total_budget"] = *req.TotalBudget
	}
	if req.Currency != "" {
		fields["currency"] = req.Currency
	}
	if req.IsPublic != nil {
		fields["is_public"] = *req.IsPublic
		s.cache.Delete("feed")
	}
	if req.Notes != "" {
		fields["notes"] = req.Notes
	}
	if len(fields) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no updatable fields provided"}
	}

	return s.store.UpdateTrip(ctx, tripID, fields)
}

func (s *TripService) DeleteTrip(ctx context.Context, userID, tripID string) error {
	ctx, span := tracer.Start(ctx, "TripService.DeleteTrip")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return err
	}
	if err := s.shares.DeleteShareLinksForTrip(ctx, tripID); err != nil {
		s.logger.Warn("failed to delete share links for trip",
			zap.String("trip_id", tripID),
			zap.Error(err),
		)
	}
	return s.store.DeleteTrip(ctx, tripID)
}

// ============================================================
// Budget report
// ============================================================

// GetBudgetReport aggregates the trip's expenses into the derived
// budget view. Trip and expenses are fetched concurrently; ownership
// is enforced before anything is returned.
func (s *TripService) GetBudgetReport(ctx context.Context, userID, tripID string) (*domain.BudgetReport, error) {
	ctx, span := tracer.Start(ctx, "TripService.GetBudgetReport")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("budget_report", time.Since(start))
	}()

	var (
		trip     *domain.Trip
		expenses []domain.Expense
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.store.GetTrip(gCtx, tripID)
		if err != nil {
			return err
		}
		trip = t
		return nil
	})
	g.Go(func() error {
		e, err := s.store.ListExpenses(gCtx, tripID)
		if err != nil {
			return err
		}
		expenses = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if trip.UserID != userID {
		return nil, &domain.ErrForbidden{Action: "access trip " + tripID}
	}

	report, err := budget.Compute(budget.Window{
		StartDate:     trip.StartDate,
		EndDate:       trip.EndDate,
		TotalBudget:   trip.TotalBudget,
		EstimatedCost: trip.EstimatedCost,
	}, expenses)
	if err != nil {
		return nil, err
	}
	report.TripID = tripID
	return report, nil
}
