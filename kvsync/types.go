package kvsync

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// RecordError is one record-level failure. It never aborts a run; the
// reporter keeps a bounded number as samples.
type RecordError struct {
	Entity     Entity `json:"entity"`
	KiotvietID int64  `json:"kiotviet_id"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Payload    []byte `json:"-"`
}

// BatchResult is the sink outcome for one batch.
type BatchResult struct {
	Attempted int
	Upserted  int
	Failed    int
	Errors    []RecordError
}

func (r *BatchResult) fail(err RecordError) {
	r.Failed++
	r.Errors = append(r.Errors, err)
}

// Progress is emitted through the reporter after every upserted batch.
// Attempted and Failed are running totals for the whole run.
type Progress struct {
	Entity     Entity
	Page       int
	WindowFrom *time.Time
	WindowTo   *time.Time
	Cursor     int
	Total      int
	Attempted  int
	Failed     int
}

// Summary is the sealed outcome of one run.
type Summary struct {
	RunID            int            `json:"run_id,omitempty"`
	Entity           Entity         `json:"entity"`
	Status           string         `json:"status"`
	WindowFrom       *time.Time     `json:"window_from,omitempty"`
	WindowTo         *time.Time     `json:"window_to,omitempty"`
	PagesFetched     int            `json:"pages_fetched"`
	RecordsAttempted int            `json:"records_attempted"`
	RecordsUpserted  int            `json:"records_upserted"`
	RecordsFailed    int            `json:"records_failed"`
	Elapsed          time.Duration  `json:"-"`
	ElapsedMs        int64          `json:"elapsed_ms"`
	ErrorSamples     []RecordError  `json:"error_samples,omitempty"`
	FatalError       string         `json:"fatal_error,omitempty"`
}

// ExitCode maps the terminal status to the CLI contract:
// 0 ok, 1 fatal, 2 partial.
func (s *Summary) ExitCode() int {
	switch s.Status {
	case "ok":
		return 0
	case "partial":
		return 2
	default:
		return 1
	}
}

// Sink maps one upstream batch to destination rows and upserts them.
// A returned error is fatal for the batch; record-level failures are
// carried in the result instead.
type Sink interface {
	Upsert(ctx context.Context, batch []json.RawMessage) (BatchResult, error)
}

// PageSource is one finite traversal of a list endpoint.
type PageSource interface {
	Next(ctx context.Context) (batch []json.RawMessage, ok bool, err error)
	Total() int
	Cursor() int
}

// Fetcher opens traversals. NewFetcher adapts *kiotviet.Client.
type Fetcher interface {
	Pages(collection string, params url.Values) PageSource
}
