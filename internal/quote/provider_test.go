package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchQuotesParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "ABC,XYZ" {
			t.Errorf("symbols = %q, want ABC,XYZ", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"abc": {"price": "101.25", "observedAt": "2026-03-01T16:00:00Z"},
			"XYZ": {"price": "not-a-number"}
		}`))
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, time.Millisecond, 0)
	quotes, err := provider.FetchQuotes(context.Background(), []string{"ABC", "XYZ"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q, ok := quotes["ABC"]
	if !ok {
		t.Fatal("expected ABC quote, symbols are uppercased")
	}
	if got := q.Price.String(); got != "101.25" {
		t.Errorf("price = %s, want 101.25", got)
	}
	want := time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC)
	if !q.ObservedAt.Equal(want) {
		t.Errorf("observedAt = %v, want %v", q.ObservedAt, want)
	}
	// A malformed price drops that symbol, not the batch
	if _, ok := quotes["XYZ"]; ok {
		t.Error("unparseable price should be skipped")
	}
}

func TestFetchQuotesEmptySymbolList(t *testing.T) {
	provider := NewHTTPProvider("http://unused.invalid", time.Millisecond, 0)
	quotes, err := provider.FetchQuotes(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 0 {
		t.Errorf("quotes = %v, want empty", quotes)
	}
}

func TestFetchQuotesRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ABC": {"price": "100"}}`))
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, time.Millisecond, 3)
	quotes, err := provider.FetchQuotes(context.Background(), []string{"ABC"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if _, ok := quotes["ABC"]; !ok {
		t.Error("expected ABC quote after retries")
	}
}

func TestFetchQuotesExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, time.Millisecond, 2)
	if _, err := provider.FetchQuotes(context.Background(), []string{"ABC"}); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", got)
	}
}

func TestFetchQuotesContextCancelStopsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := NewHTTPProvider(srv.URL, time.Hour, 5)
	if _, err := provider.FetchQuotes(ctx, []string{"ABC"}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
