package kvsync

import (
	"time"

	"github.com/gaolamthuy/glt-backend/models"
	"github.com/gaolamthuy/glt-backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaxErrorSamples bounds how many record errors one run keeps around.
const MaxErrorSamples = 10

// Reporter tracks one sync run: a sync_runs row plus bounded error
// samples. A nil db is tolerated so ad-hoc CLI runs can work against
// a database that has no bookkeeping tables.
type Reporter struct {
	db     *gorm.DB
	logger *logrus.Logger
	run    *models.SyncRun
	errors []RecordError
}

func NewReporter(db *gorm.DB, logger *logrus.Logger) *Reporter {
	return &Reporter{db: db, logger: logger}
}

// Start records the run as running and returns its id. Persistence
// failures are logged and swallowed so bookkeeping never blocks a sync.
func (r *Reporter) Start(entity Entity, triggeredBy string, from, to *time.Time) int {
	r.run = &models.SyncRun{
		Entity:      string(entity),
		Status:      models.SyncRunStatusRunning,
		TriggeredBy: triggeredBy,
		WindowFrom:  from,
		WindowTo:    to,
		StartedAt:   time.Now(),
	}
	if r.db != nil {
		if err := r.db.Create(r.run).Error; err != nil {
			r.logger.WithFields(logrus.Fields{
				"module": "kvsync",
				"entity": entity,
			}).WithError(err).Warn("could not persist sync run start")
		}
	}
	r.logger.WithFields(logrus.Fields{
		"module":       "kvsync",
		"entity":       entity,
		"triggered_by": triggeredBy,
		"sync_run_id":  r.run.ID,
	}).Info("sync run started")
	return r.run.ID
}

// Record accumulates record-level failures, keeping only the first
// MaxErrorSamples for persistence.
func (r *Reporter) Record(errs []RecordError) {
	for _, re := range errs {
		if len(r.errors) < MaxErrorSamples {
			r.errors = append(r.errors, re)
		}
		r.logger.WithFields(logrus.Fields{
			"module":      "kvsync",
			"entity":      re.Entity,
			"kiotviet_id": re.KiotvietID,
			"error_code":  re.Code,
		}).Warn(utils.Truncate(re.Message, 500))
	}
}

// Progress logs a page-level heartbeat with running totals.
func (r *Reporter) Progress(p Progress) {
	fields := logrus.Fields{
		"module":           "kvsync",
		"entity":           p.Entity,
		"page":             p.Page,
		"cursor":           p.Cursor,
		"total":            p.Total,
		"attempted_so_far": p.Attempted,
		"failed_so_far":    p.Failed,
	}
	if p.WindowFrom != nil {
		fields["window_from"] = p.WindowFrom.Format("2006-01-02")
	}
	if p.WindowTo != nil {
		fields["window_to"] = p.WindowTo.Format("2006-01-02")
	}
	r.logger.WithFields(fields).Info("page processed")
}

// Finish seals the run row with final counters and flushes error samples.
func (r *Reporter) Finish(s *Summary) {
	if r.run == nil {
		return
	}
	now := time.Now()
	r.run.Status = s.Status
	r.run.PagesFetched = s.PagesFetched
	r.run.RecordsAttempted = s.RecordsAttempted
	r.run.RecordsUpserted = s.RecordsUpserted
	r.run.RecordsFailed = s.RecordsFailed
	r.run.FinishedAt = &now
	r.run.DurationMs = now.Sub(r.run.StartedAt).Milliseconds()

	if r.db != nil {
		if err := r.db.Save(r.run).Error; err != nil {
			r.logger.WithError(err).Warn("could not persist sync run result")
		}
		for _, re := range r.errors {
			row := models.SyncRunError{
				SyncRunID:  r.run.ID,
				Entity:     string(re.Entity),
				KiotvietID: re.KiotvietID,
				ErrorCode:  re.Code,
				Message:    utils.Truncate(re.Message, 2000),
				Payload:    re.Payload,
			}
			if err := r.db.Create(&row).Error; err != nil {
				r.logger.WithError(err).Warn("could not persist sync run error sample")
				break
			}
		}
	}

	fields := logrus.Fields{
		"module":            "kvsync",
		"entity":            s.Entity,
		"sync_run_id":       r.run.ID,
		"status":            s.Status,
		"pages_fetched":     s.PagesFetched,
		"records_attempted": s.RecordsAttempted,
		"records_upserted":  s.RecordsUpserted,
		"records_failed":    s.RecordsFailed,
		"duration_ms":       r.run.DurationMs,
	}
	switch s.Status {
	case models.SyncRunStatusOk:
		r.logger.WithFields(fields).Info("sync run finished")
	case models.SyncRunStatusPartial:
		r.logger.WithFields(fields).Warn("sync run finished with record failures")
	default:
		r.logger.WithFields(fields).Error("sync run failed")
	}
}
