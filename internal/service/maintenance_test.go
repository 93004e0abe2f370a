package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/service"

	"go.uber.org/zap"
)

func TestMaintenanceRun_CompletesPastTrips(t *testing.T) {
	store := newFakeTripStore()
	store.trips["trip-1"] = &domain.Trip{
		ID:      "trip-1",
		UserID:  "user-1",
		EndDate: time.Now().AddDate(0, 0, -7),
		Status:  domain.TripStatusOngoing,
	}

	job := service.NewMaintenanceJob(store, newFakeShareStore(), zap.NewNop())
	job.Run(context.Background())

	if store.updatedFields["status"] != domain.TripStatusCompleted {
		t.Errorf("expected past trip marked completed, got %v", store.updatedFields)
	}
}

func TestMaintenanceStart_RejectsBadSpec(t *testing.T) {
	job := service.NewMaintenanceJob(newFakeTripStore(), newFakeShareStore(), zap.NewNop())
	if err := job.Start("not a cron spec"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
