package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/port"
)

var maintenanceTracer = otel.Tracer("service/maintenance")

// MaintenanceJob runs scheduled housekeeping: marking past trips
// completed and purging expired share links.
type MaintenanceJob struct {
	trips  port.TripStore
	shares port.ShareStore
	logger *zap.Logger
	cron   *cron.Cron
}

// NewMaintenanceJob creates the job; call Start to schedule it.
func NewMaintenanceJob(trips port.TripStore, shares port.ShareStore, logger *zap.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		trips:  trips,
		shares: shares,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules the job with the given cron spec (standard 5-field
// syntax, e.g. "0 3 * * *" for 03:00 nightly).
func (j *MaintenanceJob) Start(spec string) error {
	_, err := j.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		j.Run(ctx)
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("maintenance job scheduled", zap.String("cron", spec))
	return nil
}

// Stop halts the scheduler and waits for a running invocation.
func (j *MaintenanceJob) Stop() {
	<-j.cron.Stop().Done()
}

// Run executes one maintenance pass. Exposed so tests and operators
// can trigger it outside the schedule.
func (j *MaintenanceJob) Run(ctx context.Context) {
	ctx, span := maintenanceTracer.Start(ctx, "MaintenanceJob.Run")
	defer span.End()

	j.completePastTrips(ctx)
	j.purgeExpiredShareLinks(ctx)
}

func (j *MaintenanceJob) completePastTrips(ctx context.Context) {
	today := time.Now().UTC().Format("2006-01-02")
	trips, err := j.trips.ListTripsEndedBefore(ctx, today)
	if err != nil {
		j.logger.Error("maintenance: failed to list past trips", zap.Error(err))
		return
	}

	completed := 0
	for _, trip := range trips {
		if _, err := j.trips.UpdateTrip(ctx, trip.ID, map[string]any{
			"status": domain.TripStatusCompleted,
		}); err != nil {
			j.logger.Warn("maintenance: failed to complete trip",
				zap.String("trip_id", trip.ID),
				zap.Error(err),
			)
			continue
		}
		completed++
	}
	if completed > 0 {
		j.logger.Info("maintenance: past trips completed", zap.Int("count", completed))
	}
}

func (j *MaintenanceJob) purgeExpiredShareLinks(ctx context.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	purged, err := j.shares.DeleteExpiredShareLinks(ctx, now)
	if err != nil {
		j.logger.Error("maintenance: failed to purge share links", zap.Error(err))
		return
	}
	if purged > 0 {
		j.logger.Info("maintenance: expired share links purged", zap.Int("count", purged))
	}
}
