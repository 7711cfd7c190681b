package kiotviet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(baseURL string) *Client {
	store := &memStore{cred: &Credential{
		Token:     "stale",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	cfg := testConfig(baseURL)
	cfg.PageSize = 2
	return NewClient(cfg, store, quietLogger())
}

// listPage writes one list response holding ids [from, from+count).
func listPage(w http.ResponseWriter, total, from, count int) {
	data := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		data = append(data, map[string]any{"id": from + i + 1})
	}
	json.NewEncoder(w).Encode(map[string]any{
		"total":    total,
		"pageSize": count,
		"data":     data,
	})
}

func TestBackoffDelay(t *testing.T) {
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		16 * time.Second,
	}
	for attempt, expected := range want {
		if got := backoffDelay(attempt); got != expected {
			t.Errorf("backoffDelay(%d) = %v, want %v", attempt, got, expected)
		}
	}
	for attempt := 1; attempt < len(want); attempt++ {
		if backoffDelay(attempt) < backoffDelay(attempt-1) {
			t.Errorf("backoffDelay(%d) < backoffDelay(%d)", attempt, attempt-1)
		}
	}
}

func TestPagesTraversal(t *testing.T) {
	const total = 5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Retailer"); got != "shop" {
			t.Errorf("Retailer = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer stale" {
			t.Errorf("Authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("orderBy") != "modifiedDate" || q.Get("orderDirection") != "Asc" {
			t.Errorf("order params = %q/%q", q.Get("orderBy"), q.Get("orderDirection"))
		}
		if q.Get("pageSize") != "2" {
			t.Errorf("pageSize = %q", q.Get("pageSize"))
		}
		cursor := 0
		fmt.Sscanf(q.Get("currentItem"), "%d", &cursor)
		count := total - cursor
		if count > 2 {
			count = 2
		}
		listPage(w, total, cursor, count)
	}))
	defer srv.Close()

	it := newTestClient(srv.URL).Pages("products", nil)
	ctx := context.Background()

	var got []int64
	for {
		batch, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		for _, raw := range batch {
			var rec struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(raw, &rec); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got = append(got, rec.ID)
		}
	}

	if len(got) != total {
		t.Fatalf("records = %d, want %d", len(got), total)
	}
	for i, id := range got {
		if id != int64(i+1) {
			t.Fatalf("record %d = %d, duplicates or gaps in traversal", i, id)
		}
	}
	if it.Total() != total {
		t.Fatalf("Total = %d, want %d", it.Total(), total)
	}
	if it.Fetched() != 3 {
		t.Fatalf("Fetched = %d, want 3", it.Fetched())
	}

	// Exhausted iterators stay exhausted.
	if _, ok, err := it.Next(ctx); ok || err != nil {
		t.Fatalf("Next after done = (%v, %v)", ok, err)
	}
}

func TestPagesEmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listPage(w, 0, 0, 0)
	}))
	defer srv.Close()

	it := newTestClient(srv.URL).Pages("customers", nil)
	if _, ok, err := it.Next(context.Background()); ok || err != nil {
		t.Fatalf("Next = (%v, %v), want clean end", ok, err)
	}
}

func TestPagesRefreshOnceOn401(t *testing.T) {
	var tokenHits, listHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenHits, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/invoices", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&listHits, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		listPage(w, 1, 0, 1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	it := newTestClient(srv.URL).Pages("invoices", nil)
	batch, ok, err := it.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !ok || len(batch) != 1 {
		t.Fatalf("batch = %d records, ok = %v", len(batch), ok)
	}
	if tokenHits != 1 {
		t.Fatalf("token endpoint hits = %d, want 1", tokenHits)
	}
	if listHits != 2 {
		t.Fatalf("list endpoint hits = %d, want 2", listHits)
	}
}

func TestPagesPersistentUnauthorized(t *testing.T) {
	var listHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/invoices", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&listHits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	it := newTestClient(srv.URL).Pages("invoices", nil)
	_, _, err := it.Next(context.Background())
	var auth *AuthError
	if !errors.As(err, &auth) {
		t.Fatalf("err = %v, want AuthError", err)
	}
	if listHits != 2 {
		t.Fatalf("list endpoint hits = %d, want 2 (one refresh, then fatal)", listHits)
	}
}

func TestPagesRetriesTransient(t *testing.T) {
	var listHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&listHits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		listPage(w, 1, 0, 1)
	}))
	defer srv.Close()

	it := newTestClient(srv.URL).Pages("products", nil)
	start := time.Now()
	_, ok, err := it.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("Next = (%v, %v)", ok, err)
	}
	if listHits != 2 {
		t.Fatalf("list endpoint hits = %d, want 2", listHits)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("retry came after %v, want at least the first backoff step", elapsed)
	}
}

func TestPagesContractError(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "<html>maintenance</html>"},
		{"missing total", `{"pageSize":2,"data":[]}`},
		{"missing data", `{"total":10,"pageSize":2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			it := newTestClient(srv.URL).Pages("products", nil)
			_, _, err := it.Next(context.Background())
			var contract *ContractError
			if !errors.As(err, &contract) {
				t.Fatalf("err = %v, want ContractError", err)
			}
		})
	}
}

func TestPagesHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listPage(w, 10, 0, 2)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	it := newTestClient(srv.URL).Pages("products", nil)
	_, _, err := it.Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
