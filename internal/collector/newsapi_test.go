package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestFetcher(endpoint string) *NewsAPIFetcher {
	return NewNewsAPIFetcher(endpoint, "test-key", "en", "us", 50, 2*time.Second)
}

func TestNewsAPIFetchSuccessAndDropsURLLess(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{"title": "A", "description": "desc a", "url": "http://x/1", "publishedAt": "2024-01-01T00:00:00Z", "source": {"name": "X"}},
				{"title": "no url", "description": "should be dropped", "url": "", "source": {"name": "X"}},
				{"title": "B", "url": "http://x/2", "source": {}}
			]
		}`))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	items, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items after dropping url-less record, got %d", len(items))
	}
	if items[0].URL != "http://x/1" || items[0].SourceName != "X" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Title != "B" || items[1].SourceName != "" {
		t.Fatalf("unexpected second item: %+v", items[1])
	}

	// 请求参数应该带上配置项
	if gotQuery["apiKey"][0] != "test-key" {
		t.Fatalf("apiKey not sent: %v", gotQuery)
	}
	if gotQuery["pageSize"][0] != "50" || gotQuery["country"][0] != "us" || gotQuery["language"][0] != "en" {
		t.Fatalf("unexpected query params: %v", gotQuery)
	}
}

func TestNewsAPIFetchEmptyResultIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok", "articles": []}`))
	}))
	defer srv.Close()

	items, err := newTestFetcher(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("empty result should not be an error, got: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected 0 items, got %d", len(items))
	}
}

func TestNewsAPIFetchNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := newTestFetcher(srv.URL).Fetch(context.Background()); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}

func TestNewsAPIFetchMalformedBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok", "articles": [`))
	}))
	defer srv.Close()

	if _, err := newTestFetcher(srv.URL).Fetch(context.Background()); err == nil {
		t.Fatalf("expected error on malformed body")
	}
}

func TestNewsAPIFetchAPIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "error", "code": "apiKeyInvalid", "message": "bad key"}`))
	}))
	defer srv.Close()

	if _, err := newTestFetcher(srv.URL).Fetch(context.Background()); err == nil {
		t.Fatalf("expected error when body reports status=error")
	}
}

func TestNewsAPIFetchWithoutAPIKey(t *testing.T) {
	f := NewNewsAPIFetcher("http://unused", "", "en", "us", 50, time.Second)
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatalf("expected error when api key is missing")
	}
}
