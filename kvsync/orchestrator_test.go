package kvsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakePages replays scripted batches and then an optional error.
type fakePages struct {
	batches [][]json.RawMessage
	err     error

	idx    int
	cursor int
}

func (p *fakePages) Next(ctx context.Context) ([]json.RawMessage, bool, error) {
	if p.idx >= len(p.batches) {
		if p.err != nil {
			err := p.err
			p.err = nil
			return nil, false, err
		}
		return nil, false, nil
	}
	batch := p.batches[p.idx]
	p.idx++
	p.cursor += len(batch)
	return batch, true, nil
}

func (p *fakePages) Total() int {
	total := 0
	for _, b := range p.batches {
		total += len(b)
	}
	return total
}

func (p *fakePages) Cursor() int { return p.cursor }

// fakeFetcher hands out one scripted traversal per Pages call and records
// the parameters of each.
type fakeFetcher struct {
	traversals []*fakePages
	calls      []url.Values
}

func (f *fakeFetcher) Pages(collection string, params url.Values) PageSource {
	f.calls = append(f.calls, params)
	if len(f.traversals) == 0 {
		return &fakePages{}
	}
	next := f.traversals[0]
	f.traversals = f.traversals[1:]
	return next
}

// fakeSink applies a configurable upsert outcome.
type fakeSink struct {
	upsert func(batch []json.RawMessage) (BatchResult, error)
}

func (s *fakeSink) Upsert(ctx context.Context, batch []json.RawMessage) (BatchResult, error) {
	if s.upsert == nil {
		return BatchResult{Attempted: len(batch), Upserted: len(batch)}, nil
	}
	return s.upsert(batch)
}

func sinkFactory(sink Sink) SinkFactory {
	return func(Entity) (Sink, error) { return sink, nil }
}

func rawBatch(n int) []json.RawMessage {
	batch := make([]json.RawMessage, n)
	for i := range batch {
		batch[i] = json.RawMessage(`{}`)
	}
	return batch
}

func TestRunCleanSweep(t *testing.T) {
	fetcher := &fakeFetcher{traversals: []*fakePages{
		{batches: [][]json.RawMessage{rawBatch(2), rawBatch(1)}},
	}}
	o := NewOrchestrator(fetcher, sinkFactory(&fakeSink{}), nil, quietLogger())

	summary, err := o.Run(context.Background(), RunOptions{Entity: EntityProducts})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Status != "ok" {
		t.Fatalf("status = %q", summary.Status)
	}
	if summary.PagesFetched != 2 {
		t.Fatalf("pages = %d, want 2", summary.PagesFetched)
	}
	if summary.RecordsAttempted != 3 || summary.RecordsUpserted != 3 || summary.RecordsFailed != 0 {
		t.Fatalf("counts = %d/%d/%d", summary.RecordsAttempted, summary.RecordsUpserted, summary.RecordsFailed)
	}
	if summary.ExitCode() != 0 {
		t.Fatalf("exit = %d, want 0", summary.ExitCode())
	}
	if summary.ElapsedMs != summary.Elapsed.Milliseconds() {
		t.Fatalf("elapsed_ms = %d, want %d", summary.ElapsedMs, summary.Elapsed.Milliseconds())
	}
}

func TestRunPartialOnRecordFailures(t *testing.T) {
	fetcher := &fakeFetcher{traversals: []*fakePages{
		{batches: [][]json.RawMessage{rawBatch(3)}},
	}}
	sink := &fakeSink{upsert: func(batch []json.RawMessage) (BatchResult, error) {
		res := BatchResult{Attempted: len(batch), Upserted: len(batch) - 1}
		res.fail(RecordError{Entity: EntityProducts, KiotvietID: 42, Code: "transform_failed", Message: "missing code"})
		return res, nil
	}}
	o := NewOrchestrator(fetcher, sinkFactory(sink), nil, quietLogger())

	summary, err := o.Run(context.Background(), RunOptions{Entity: EntityProducts})
	if err == nil {
		t.Fatal("Run returned nil error for a partial outcome")
	}
	if summary.Status != "partial" {
		t.Fatalf("status = %q", summary.Status)
	}
	if summary.RecordsUpserted != 2 || summary.RecordsFailed != 1 {
		t.Fatalf("counts = %d upserted, %d failed", summary.RecordsUpserted, summary.RecordsFailed)
	}
	if len(summary.ErrorSamples) != 1 || summary.ErrorSamples[0].KiotvietID != 42 {
		t.Fatalf("samples = %+v", summary.ErrorSamples)
	}
	if summary.ExitCode() != 2 {
		t.Fatalf("exit = %d, want 2", summary.ExitCode())
	}
}

func TestRunBoundsErrorSamples(t *testing.T) {
	fetcher := &fakeFetcher{traversals: []*fakePages{
		{batches: [][]json.RawMessage{rawBatch(30)}},
	}}
	sink := &fakeSink{upsert: func(batch []json.RawMessage) (BatchResult, error) {
		res := BatchResult{Attempted: len(batch)}
		for i := range batch {
			res.fail(RecordError{Entity: EntityProducts, KiotvietID: int64(i), Code: "transform_failed"})
		}
		return res, nil
	}}
	o := NewOrchestrator(fetcher, sinkFactory(sink), nil, quietLogger())

	summary, _ := o.Run(context.Background(), RunOptions{Entity: EntityProducts})
	if summary.RecordsFailed != 30 {
		t.Fatalf("failed = %d, want 30", summary.RecordsFailed)
	}
	if len(summary.ErrorSamples) != MaxErrorSamples {
		t.Fatalf("samples = %d, want %d", len(summary.ErrorSamples), MaxErrorSamples)
	}
}

func TestRunFatalOnFetchError(t *testing.T) {
	fetcher := &fakeFetcher{traversals: []*fakePages{
		{batches: [][]json.RawMessage{rawBatch(2)}, err: errors.New("unauthorized after token refresh")},
	}}
	o := NewOrchestrator(fetcher, sinkFactory(&fakeSink{}), nil, quietLogger())

	summary, err := o.Run(context.Background(), RunOptions{Entity: EntityInvoices})
	if err == nil {
		t.Fatal("Run returned nil error")
	}
	if summary.Status != "failed" {
		t.Fatalf("status = %q", summary.Status)
	}
	// The page before the failure still counts.
	if summary.PagesFetched != 1 || summary.RecordsUpserted != 2 {
		t.Fatalf("pages = %d, upserted = %d", summary.PagesFetched, summary.RecordsUpserted)
	}
	if summary.ExitCode() != 1 {
		t.Fatalf("exit = %d, want 1", summary.ExitCode())
	}
}

func TestRunFatalOnSinkError(t *testing.T) {
	fetcher := &fakeFetcher{traversals: []*fakePages{
		{batches: [][]json.RawMessage{rawBatch(2)}},
	}}
	sink := &fakeSink{upsert: func(batch []json.RawMessage) (BatchResult, error) {
		return BatchResult{Attempted: len(batch)}, errors.New("connection reset")
	}}
	o := NewOrchestrator(fetcher, sinkFactory(sink), nil, quietLogger())

	summary, err := o.Run(context.Background(), RunOptions{Entity: EntityProducts})
	if err == nil || summary.Status != "failed" {
		t.Fatalf("status = %q, err = %v", summary.Status, err)
	}
}

func TestRunCancelled(t *testing.T) {
	fetcher := &fakeFetcher{traversals: []*fakePages{
		{batches: [][]json.RawMessage{rawBatch(2)}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(fetcher, sinkFactory(&fakeSink{}), nil, quietLogger())
	summary, err := o.Run(ctx, RunOptions{Entity: EntityProducts})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// Interruption leaves a partial mirror, not a broken one.
	if summary.Status != "partial" {
		t.Fatalf("status = %q, want partial", summary.Status)
	}
	if summary.ExitCode() != 2 {
		t.Fatalf("exit = %d, want 2", summary.ExitCode())
	}
}

func TestRunCancelledMidTraversal(t *testing.T) {
	batches := make([][]json.RawMessage, 10)
	for i := range batches {
		batches[i] = rawBatch(1)
	}
	fetcher := &fakeFetcher{traversals: []*fakePages{{batches: batches}}}

	ctx, cancel := context.WithCancel(context.Background())
	committed := 0
	sink := &fakeSink{upsert: func(batch []json.RawMessage) (BatchResult, error) {
		committed++
		if committed == 3 {
			cancel()
		}
		return BatchResult{Attempted: len(batch), Upserted: len(batch)}, nil
	}}

	o := NewOrchestrator(fetcher, sinkFactory(sink), nil, quietLogger())
	summary, err := o.Run(ctx, RunOptions{Entity: EntityProducts})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// The in-flight batch completes; nothing after it starts.
	if committed != 3 {
		t.Fatalf("batches committed = %d, want 3", committed)
	}
	if summary.RecordsUpserted != 3 {
		t.Fatalf("upserted = %d, want 3", summary.RecordsUpserted)
	}
	if summary.Status != "partial" {
		t.Fatalf("status = %q, want partial", summary.Status)
	}
	if summary.ExitCode() != 2 {
		t.Fatalf("exit = %d, want 2", summary.ExitCode())
	}
}

func TestRunTimeoutSealsPartial(t *testing.T) {
	fetcher := &fakeFetcher{traversals: []*fakePages{
		{batches: [][]json.RawMessage{rawBatch(1), rawBatch(1)}},
	}}
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	o := NewOrchestrator(fetcher, sinkFactory(&fakeSink{}), nil, quietLogger())
	summary, err := o.Run(ctx, RunOptions{Entity: EntityProducts})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if summary.Status != "partial" || summary.ExitCode() != 2 {
		t.Fatalf("status = %q, exit = %d", summary.Status, summary.ExitCode())
	}
}

func TestHistoricalWindows(t *testing.T) {
	now := time.Date(2024, 7, 1, 2, 0, 0, 0, time.UTC)
	earliest := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	windows := historicalWindows(now, earliest, 3)
	if len(windows) != 10 {
		t.Fatalf("windows = %d, want 10", len(windows))
	}
	if !windows[0].to.Equal(now) {
		t.Fatalf("first window ends at %v, want %v", windows[0].to, now)
	}
	last := windows[len(windows)-1]
	if !last.from.Equal(earliest) {
		t.Fatalf("last window starts at %v, want %v", last.from, earliest)
	}
	for i := 0; i < len(windows)-1; i++ {
		if !windows[i].from.Equal(windows[i+1].to) {
			t.Fatalf("gap between window %d and %d: %v vs %v",
				i, i+1, windows[i].from, windows[i+1].to)
		}
	}
	for _, w := range windows {
		if !w.from.Before(w.to) {
			t.Fatalf("inverted window %v..%v", w.from, w.to)
		}
	}
}

func TestHistoricalWindowsClampsShortSpan(t *testing.T) {
	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	earliest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	windows := historicalWindows(now, earliest, 3)
	if len(windows) != 1 {
		t.Fatalf("windows = %d, want 1", len(windows))
	}
	if !windows[0].from.Equal(earliest) || !windows[0].to.Equal(now) {
		t.Fatalf("window = %v..%v", windows[0].from, windows[0].to)
	}
}

func TestRunHistoricalOpensEachWindow(t *testing.T) {
	fetcher := &fakeFetcher{traversals: []*fakePages{
		{batches: [][]json.RawMessage{rawBatch(1)}},
		{batches: [][]json.RawMessage{rawBatch(1)}},
	}}
	o := NewOrchestrator(fetcher, sinkFactory(&fakeSink{}), nil, quietLogger())
	o.now = func() time.Time {
		return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	}

	summary, err := o.Run(context.Background(), RunOptions{
		Entity:       EntityInvoices,
		Historical:   true,
		WindowMonths: 3,
		Earliest:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RecordsUpserted != 2 {
		t.Fatalf("upserted = %d, want one record per window", summary.RecordsUpserted)
	}
	if len(fetcher.calls) != 2 {
		t.Fatalf("traversals = %d, want 2", len(fetcher.calls))
	}
	if got := fetcher.calls[0].Get("fromPurchaseDate"); got != "2024-04-01" {
		t.Fatalf("window 0 from = %q", got)
	}
	if got := fetcher.calls[0].Get("toPurchaseDate"); got != "2024-07-01" {
		t.Fatalf("window 0 to = %q", got)
	}
	if got := fetcher.calls[1].Get("fromPurchaseDate"); got != "2024-01-01" {
		t.Fatalf("window 1 from = %q", got)
	}
	if got := fetcher.calls[1].Get("toPurchaseDate"); got != "2024-04-01" {
		t.Fatalf("window 1 to = %q", got)
	}
}
