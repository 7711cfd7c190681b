package kiotviet

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"
)

const (
	maxPageAttempts = 5
	maxBackoff      = 16 * time.Second
)

// backoffDelay is the wait before retry attempt n (zero-based):
// 1s, 2s, 4s, 8s, 16s.
func backoffDelay(attempt int) time.Duration {
	d := time.Second << attempt
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Pages opens a paged traversal over one list collection. The iterator is
// finite and not restartable; callers restart by calling Pages again.
// Traversal order is pinned to modifiedDate ascending so re-runs see a
// stable order.
func (c *Client) Pages(collection string, params url.Values) *PageIterator {
	merged := url.Values{}
	for key, values := range params {
		merged[key] = values
	}
	if merged.Get("pageSize") == "" {
		merged.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	}
	merged.Set("orderBy", "modifiedDate")
	merged.Set("orderDirection", "Asc")

	return &PageIterator{
		client:     c,
		collection: collection,
		params:     merged,
		total:      -1,
	}
}

// PageIterator walks one list endpoint by offset cursor, yielding one batch
// per Next call. Transient upstream failures (429/5xx/network) are retried
// with exponential backoff inside Next; a 401 invalidates the bearer and is
// retried once per traversal.
type PageIterator struct {
	client     *Client
	collection string
	params     url.Values

	cursor    int
	total     int
	pages     int
	done      bool
	refreshed bool
}

// Total reports the upstream record count; -1 until the first page arrives.
func (it *PageIterator) Total() int {
	return it.total
}

// Cursor reports the zero-based offset after the last yielded batch.
func (it *PageIterator) Cursor() int {
	return it.cursor
}

// Fetched reports how many pages have been yielded so far.
func (it *PageIterator) Fetched() int {
	return it.pages
}

// Next yields the next record batch. ok is false when the traversal is
// exhausted. A non-nil error is fatal for the traversal.
func (it *PageIterator) Next(ctx context.Context) (batch []json.RawMessage, ok bool, err error) {
	if it.done {
		return nil, false, nil
	}

	it.params.Set("currentItem", strconv.Itoa(it.cursor))

	resp, err := it.fetchWithRetry(ctx)
	if err != nil {
		it.done = true
		return nil, false, err
	}

	it.total = *resp.Total
	it.pages++
	it.cursor += len(resp.Data)
	if len(resp.Data) == 0 || it.cursor >= it.total {
		it.done = true
	}
	if len(resp.Data) == 0 {
		return nil, false, nil
	}
	return resp.Data, true, nil
}

func (it *PageIterator) fetchWithRetry(ctx context.Context) (*ListResponse, error) {
	var attempt int
	for {
		resp, err := it.client.getList(ctx, it.collection, it.params)
		if err == nil {
			return resp, nil
		}

		var status *statusError
		if errors.As(err, &status) {
			switch {
			case status.Status == 401:
				// One refresh per traversal; a second 401 is fatal.
				if it.refreshed {
					return nil, &AuthError{Status: status.Status}
				}
				it.refreshed = true
				it.client.tokens.Invalidate()
				continue
			case status.Status == 429 || status.Status >= 500:
				attempt++
				if attempt >= maxPageAttempts {
					return nil, err
				}
				if werr := sleepContext(ctx, backoffDelay(attempt-1)); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}

		var contract *ContractError
		if errors.As(err, &contract) {
			return nil, err
		}
		var token *TokenAcquisitionError
		if errors.As(err, &token) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Network-level failure: same transient policy as 5xx.
		attempt++
		if attempt >= maxPageAttempts {
			return nil, err
		}
		if werr := sleepContext(ctx, backoffDelay(attempt-1)); werr != nil {
			return nil, werr
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
