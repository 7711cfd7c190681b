package kvsync

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gaolamthuy/glt-backend/kiotviet"
	"github.com/gaolamthuy/glt-backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// clientFetcher adapts *kiotviet.Client to the Fetcher interface.
type clientFetcher struct {
	client *kiotviet.Client
}

func NewFetcher(c *kiotviet.Client) Fetcher {
	return clientFetcher{client: c}
}

func (f clientFetcher) Pages(collection string, params url.Values) PageSource {
	return f.client.Pages(collection, params)
}

// SinkFactory builds the sink for an entity. Split out so tests can
// substitute in-memory sinks.
type SinkFactory func(entity Entity) (Sink, error)

// DBSinkFactory wires NewSink against a live database handle.
func DBSinkFactory(db *gorm.DB) SinkFactory {
	return func(entity Entity) (Sink, error) {
		return NewSink(db, entity)
	}
}

// RunOptions select what one sync run covers.
type RunOptions struct {
	Entity       Entity
	From         *time.Time
	To           *time.Time
	Historical   bool
	WindowMonths int
	Earliest     time.Time
	TriggeredBy  string
}

// Orchestrator drives one entity sync end to end: open a traversal,
// feed every page to the sink, and seal a summary.
type Orchestrator struct {
	fetcher Fetcher
	sinks   SinkFactory
	db      *gorm.DB
	logger  *logrus.Logger
	now     func() time.Time
}

func NewOrchestrator(fetcher Fetcher, sinks SinkFactory, db *gorm.DB, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		sinks:   sinks,
		db:      db,
		logger:  logger,
		now:     time.Now,
	}
}

// window is one closed date interval of a historical backfill.
type window struct {
	from time.Time
	to   time.Time
}

// historicalWindows slices [earliest, now] into contiguous slices of
// months length, newest first, clamping the oldest one at earliest.
func historicalWindows(now, earliest time.Time, months int) []window {
	if months <= 0 {
		months = 3
	}
	var out []window
	to := now
	for to.After(earliest) {
		from := to.AddDate(0, -months, 0)
		if from.Before(earliest) {
			from = earliest
		}
		out = append(out, window{from: from, to: to})
		to = from
	}
	return out
}

// Run executes one sync run and always returns a sealed summary; the
// error mirrors Summary.FatalError for callers that prefer errors.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = models.SyncTriggeredManual
	}

	reporter := NewReporter(o.db, o.logger)
	start := o.now()
	summary := &Summary{
		Entity:     opts.Entity,
		WindowFrom: opts.From,
		WindowTo:   opts.To,
	}
	summary.RunID = reporter.Start(opts.Entity, opts.TriggeredBy, opts.From, opts.To)

	sink, err := o.sinks(opts.Entity)
	if err != nil {
		return o.seal(reporter, summary, start, err)
	}

	var windows []window
	switch {
	case opts.Historical && opts.Entity.DateRanged():
		windows = historicalWindows(o.now(), opts.Earliest, opts.WindowMonths)
	case opts.From != nil || opts.To != nil:
		w := window{to: o.now()}
		if opts.From != nil {
			w.from = *opts.From
		}
		if opts.To != nil {
			w.to = *opts.To
		}
		windows = []window{w}
	default:
		// Full sweep, no date filter.
		windows = []window{{}}
	}

	var fatal error
	for i, w := range windows {
		if i > 0 {
			if err := ctx.Err(); err != nil {
				fatal = err
				break
			}
		}
		if err := o.runWindow(ctx, sink, reporter, summary, opts.Entity, w); err != nil {
			fatal = err
			break
		}
	}
	return o.seal(reporter, summary, start, fatal)
}

// runWindow drains one traversal into the sink.
func (o *Orchestrator) runWindow(ctx context.Context, sink Sink, reporter *Reporter, summary *Summary, entity Entity, w window) error {
	var from, to *time.Time
	if !w.from.IsZero() {
		from = &w.from
	}
	if !w.to.IsZero() {
		to = &w.to
	}
	pages := o.fetcher.Pages(entity.Collection(), listParams(entity, from, to))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, ok, err := pages.Next(ctx)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", entity, err)
		}
		if !ok {
			return nil
		}
		summary.PagesFetched++

		res, err := sink.Upsert(ctx, batch)
		summary.RecordsAttempted += res.Attempted
		summary.RecordsUpserted += res.Upserted
		summary.RecordsFailed += res.Failed
		reporter.Record(res.Errors)
		for _, re := range res.Errors {
			if len(summary.ErrorSamples) < MaxErrorSamples {
				summary.ErrorSamples = append(summary.ErrorSamples, re)
			}
		}
		if err != nil {
			return fmt.Errorf("upsert %s: %w", entity, err)
		}
		reporter.Progress(Progress{
			Entity:     entity,
			Page:       summary.PagesFetched,
			WindowFrom: from,
			WindowTo:   to,
			Cursor:     pages.Cursor(),
			Total:      pages.Total(),
			Attempted:  summary.RecordsAttempted,
			Failed:     summary.RecordsFailed,
		})
	}
}

func (o *Orchestrator) seal(reporter *Reporter, summary *Summary, start time.Time, fatal error) (*Summary, error) {
	summary.Elapsed = o.now().Sub(start)
	summary.ElapsedMs = summary.Elapsed.Milliseconds()
	switch {
	case errors.Is(fatal, context.Canceled) || errors.Is(fatal, context.DeadlineExceeded):
		// Cooperative shutdown: everything committed so far stands,
		// the rest of the traversal was simply never attempted.
		summary.Status = models.SyncRunStatusPartial
		summary.FatalError = fatal.Error()
	case fatal != nil:
		summary.Status = models.SyncRunStatusFailed
		summary.FatalError = fatal.Error()
	case summary.RecordsFailed > 0:
		summary.Status = models.SyncRunStatusPartial
	default:
		summary.Status = models.SyncRunStatusOk
	}
	reporter.Finish(summary)
	if fatal != nil {
		return summary, fatal
	}
	if summary.RecordsFailed > 0 {
		return summary, errors.New("completed with record failures")
	}
	return summary, nil
}
