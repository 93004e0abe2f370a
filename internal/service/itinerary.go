package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// ============================================================
// Itinerary sections
// ============================================================

func validSectionKind(kind string) bool {
	switch kind {
	case domain.SectionKindTravel, domain.SectionKindActivity, domain.SectionKindStay:
		return true
	}
	return false
}

// AddSection appends an itinerary section to an owned trip.
func (s *TripService) AddSection(ctx context.Context, userID, tripID string, section *domain.Section) (*domain.Section, error) {
	ctx, span := tracer.Start(ctx, "TripService.AddSection")
	defer span.End()
	span.SetAttributes(
		attribute.String("trip.id", tripID),
		attribute.String("section.kind", section.Kind),
	)

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}
	if !validSectionKind(section.Kind) {
		return nil, &domain.ErrValidation{Field: "kind", Message: "must be travel, activity or stay"}
	}
	if section.Title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if section.DayIndex < 0 {
		return nil, &domain.ErrValidation{Field: "day_index", Message: "must not be negative"}
	}

	section.TripID = tripID
	return s.store.CreateSection(ctx, section)
}

func (s *TripService) ListSections(ctx context.Context, userID, tripID string) ([]domain.Section, error) {
	ctx, span := tracer.Start(ctx, "TripService.ListSections")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return s.store.ListSections(ctx, tripID)
}

// UpdateSection applies a partial update after checking the section
// belongs to a trip the user owns.
func (s *TripService) UpdateSection(ctx context.Context, userID, tripID, sectionID string, fields map[string]any) (*domain.Section, error) {
	ctx, span := tracer.Start(ctx, "TripService.UpdateSection")
	defer span.End()
	span.SetAttributes(attribute.String("section.id", sectionID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}
	section, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section.TripID != tripID {
		return nil, &domain.ErrNotFound{Resource: "section", ID: sectionID}
	}
	if len(fields) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no updatable fields provided"}
	}
	if kind, ok := fields["kind"].(string); ok && !validSectionKind(kind) {
		return nil, &domain.ErrValidation{Field: "kind", Message: "must be travel, activity or stay"}
	}

	return s.store.UpdateSection(ctx, sectionID, fields)
}

func (s *TripService) DeleteSection(ctx context.Context, userID, tripID, sectionID string) error {
	ctx, span := tracer.Start(ctx, "TripService.DeleteSection")
	defer span.End()
	span.SetAttributes(attribute.String("section.id", sectionID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return err
	}
	section, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return err
	}
	if section.TripID != tripID {
		return &domain.ErrNotFound{Resource: "section", ID: sectionID}
	}
	return s.store.DeleteSection(ctx, sectionID)
}

// ============================================================
// Expenses
// ============================================================

// AddExpense records an expense against an owned trip. The amount is
// stored as received; coercion happens at report time so the API
// mirrors what the database will later return.
func (s *TripService) AddExpense(ctx context.Context, userID, tripID string, req *domain.ExpenseRequest) (*domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "TripService.AddExpense")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if req.Amount == nil {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount is required"}
	}

	expense := &domain.Expense{
		TripID:     tripID,
		Title:      req.Title,
		Amount:     req.Amount,
		Currency:   req.Currency,
		OccurredOn: req.OccurredOn,
	}
	if req.CategoryID != "" {
		category, err := s.store.GetCategory(ctx, req.CategoryID)
		if err != nil {
			return nil, err
		}
		expense.Category = category
	}

	return s.store.CreateExpense(ctx, expense)
}

func (s *TripService) ListExpenses(ctx context.Context, userID, tripID string) ([]domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "TripService.ListExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, tripID)
}

func (s *TripService) DeleteExpense(ctx context.Context, userID, tripID, expenseID string) error {
	ctx, span := tracer.Start(ctx, "TripService.DeleteExpense")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", expenseID))

	if _, err := s.getOwnedTrip(ctx, userID, tripID); err != nil {
		return err
	}
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if expense.TripID != tripID {
		return &domain.ErrNotFound{Resource: "expense", ID: expenseID}
	}
	return s.store.DeleteExpense(ctx, expenseID)
}
