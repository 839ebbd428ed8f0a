package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsdailyhq/NewsDaily/internal/query"
	"github.com/newsdailyhq/NewsDaily/internal/storage"
)

type stubStore struct {
	items     []storage.News
	err       error
	lastLimit int
}

func (s *stubStore) MostRecent(limit int) ([]storage.News, error) {
	s.lastLimit = limit
	return s.items, s.err
}

func (s *stubStore) Search(substring string, limit int) ([]storage.News, error) {
	s.lastLimit = limit
	return s.items, s.err
}

func newTestRouter(st query.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewServer(query.NewService(st)).RegisterRoutes(r)
	return r
}

func doGet(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListArticlesReturnsViews(t *testing.T) {
	st := &stubStore{items: []storage.News{
		{
			Identity:    "aaaa",
			Title:       "A",
			Description: "desc",
			URL:         "http://x/1",
			SourceName:  "X",
			PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}}
	r := newTestRouter(st)

	w := doGet(t, r, "/articles?q=a&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Code string `json:"code"`
		Data []struct {
			Title  string `json:"title"`
			URL    string `json:"url"`
			Source string `json:"source"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Code != "ok" || len(body.Data) != 1 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if body.Data[0].Title != "A" || body.Data[0].Source != "X" {
		t.Fatalf("unexpected view: %+v", body.Data[0])
	}
	// identity 不应出现在对外 JSON 里
	if jsonHas(w.Body.Bytes(), "identity") {
		t.Fatalf("internal identity leaked into response: %s", w.Body.String())
	}
}

func TestListArticlesDefaultsLimit(t *testing.T) {
	st := &stubStore{}
	r := newTestRouter(st)

	// limit 缺失 → 默认 20
	if w := doGet(t, r, "/articles"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if st.lastLimit != 20 {
		t.Fatalf("missing limit should default to 20, got %d", st.lastLimit)
	}

	// limit 非数字 → 同样用默认值，不报错
	if w := doGet(t, r, "/articles?limit=abc"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if st.lastLimit != 20 {
		t.Fatalf("invalid limit should default to 20, got %d", st.lastLimit)
	}
}

func TestListArticlesRejectsNegativeLimit(t *testing.T) {
	r := newTestRouter(&stubStore{})

	w := doGet(t, r, "/articles?limit=-1")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !jsonHas(w.Body.Bytes(), "invalid_request") {
		t.Fatalf("unexpected error body: %s", w.Body.String())
	}
}

func TestListArticlesStoreFailureIs503(t *testing.T) {
	r := newTestRouter(&stubStore{err: errors.New("db down")})

	w := doGet(t, r, "/articles")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if !jsonHas(w.Body.Bytes(), "store_unavailable") {
		t.Fatalf("unexpected error body: %s", w.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	// 存储故障不影响探活
	r := newTestRouter(&stubStore{err: errors.New("db down")})

	for _, path := range []string{"/health", "/healthz"} {
		if w := doGet(t, r, path); w.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, w.Code)
		}
	}
}

func jsonHas(body []byte, substr string) bool {
	return json.Valid(body) && strings.Contains(string(body), substr)
}
