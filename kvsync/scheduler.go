package kvsync

import (
	"context"
	"os"
	"time"

	"github.com/gaolamthuy/glt-backend/config"
	"github.com/gaolamthuy/glt-backend/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultSyncCron = "0 2 * * *"

// recentDays is how far back the scheduled invoice and purchase order
// sweeps look; long enough to pick up late edits to closed documents.
const recentDays = 3

// StartScheduler registers the nightly sweep and starts the cron loop.
// The returned cron can be stopped during shutdown.
func StartScheduler(orchestrator *Orchestrator, earliest time.Time, logger *logrus.Logger) *cron.Cron {
	spec := os.Getenv("SYNC_CRON")
	if spec == "" {
		spec = defaultSyncCron
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		runScheduledSweep(orchestrator, earliest, logger)
	})
	if err != nil {
		logger.WithError(err).WithField("cron", spec).Fatal("invalid SYNC_CRON expression")
	}
	c.Start()
	logger.WithField("cron", spec).Info("sync scheduler started")
	return c
}

// runScheduledSweep syncs every entity: full sweeps for the modified-date
// collections, a recent window for the date-ranged ones. Entities are
// independent, so one failing never skips the rest.
func runScheduledSweep(orchestrator *Orchestrator, earliest time.Time, logger *logrus.Logger) {
	ctx := context.Background()
	now := time.Now()
	from := now.AddDate(0, 0, -recentDays)

	for _, entity := range AllEntities() {
		opts := RunOptions{
			Entity:      entity,
			Earliest:    earliest,
			TriggeredBy: models.SyncTriggeredScheduled,
		}
		if entity.DateRanged() {
			f := from
			t := now
			opts.From = &f
			opts.To = &t
		}
		if _, err := orchestrator.Run(ctx, opts); err != nil {
			config.LogError(logger, "kvsync", "runScheduledSweep", string(entity), nil, err)
		}
	}
}
