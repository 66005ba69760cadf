package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/eitanMobb/marinus-sm/internal/domain"
	"github.com/eitanMobb/marinus-sm/internal/filter"
	"github.com/eitanMobb/marinus-sm/internal/records"
)

type stubStore struct {
	mu      sync.Mutex
	records []domain.IPRecord
	count   int64
	err     error
	pingErr error
	calls   []string
	pages   []filter.Page
}

func (s *stubStore) Find(_ context.Context, predicate filter.Predicate, page filter.Page) ([]domain.IPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "find "+predicate.Key())
	s.pages = append(s.pages, page)
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func (s *stubStore) Count(_ context.Context, predicate filter.Predicate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "count "+predicate.Key())
	if s.err != nil {
		return 0, s.err
	}
	return s.count, nil
}

func (s *stubStore) Ping(context.Context) error {
	return s.pingErr
}

func (s *stubStore) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newTestRouter(t *testing.T, store *stubStore) http.Handler {
	t.Helper()

	handler, err := NewRouter(Dependencies{
		Records: records.NewService(store),
		Store:   store,
	})
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}
	return handler
}

func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func sampleRecords() []domain.IPRecord {
	return []domain.IPRecord{
		{ID: "1", IP: "192.0.2.10", Version: 4, Zones: domain.StringList{"example.org"}},
	}
}

func TestQueryIPRecords_SelectsFilter(t *testing.T) {
	tests := map[string]struct {
		target   string
		wantCall string
	}{
		"list all":        {"/api/v1.0/ips", "find all"},
		"ip wins":         {"/api/v1.0/ips?zone=example.org&ip=192.0.2.10", `find ip:"192.0.2.10"`},
		"tracked":         {"/api/v1.0/ips?tracked=1&zone=example.org", "find tracked"},
		"tracked false":   {"/api/v1.0/ips?tracked=false&zone=example.org", `find zone:"example.org"`},
		"managed":         {"/api/v1.0/ips?managed=true", "find managed"},
		"domain":          {"/api/v1.0/ips?domain=www.example.org", `find domain:"www.example.org"`},
		"hosting partner": {"/api/v1.0/ips?hosting_partner=aws&limit=5&page=2", `find partner:"aws"`},
		"host cidr":       {"/api/v1.0/ips?host_cidr=10.0.0.0/8", `find cidr:"10.0.0.0/8"`},
		"version":         {"/api/v1.0/ips?version=6", "find version:6"},
		"count":           {"/api/v1.0/ips?zone=example.org&count=1", `count zone:"example.org"`},
		"operator key":    {"/api/v1.0/ips?zone[$ne]=x", "find all"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			store := &stubStore{records: sampleRecords(), count: 1}
			rec := serve(newTestRouter(t, store), http.MethodGet, tc.target, "")

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			calls := store.recorded()
			if len(calls) != 1 || calls[0] != tc.wantCall {
				t.Fatalf("store calls = %v, want [%s]", calls, tc.wantCall)
			}
		})
	}
}

func TestQueryIPRecords_ResponseShapes(t *testing.T) {
	store := &stubStore{records: sampleRecords(), count: 7}
	router := newTestRouter(t, store)

	rec := serve(router, http.MethodGet, "/api/v1.0/ips?zone=example.org", "")
	var found []domain.IPRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &found); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(found) != 1 || found[0].IP != "192.0.2.10" {
		t.Fatalf("unexpected records %#v", found)
	}

	rec = serve(router, http.MethodGet, "/api/v1.0/ips/count", "")
	var counted map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &counted); err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if counted["count"] != 7 {
		t.Fatalf("count = %d, want 7", counted["count"])
	}
}

func TestQueryIPRecords_RejectsBadParameters(t *testing.T) {
	targets := []string{
		"/api/v1.0/ips?version=four",
		"/api/v1.0/ips?limit=ten",
		"/api/v1.0/ips?page=abc",
		"/api/v1.0/ips?tracked=maybe",
		"/api/v1.0/ips?zone=",
	}

	for _, target := range targets {
		store := &stubStore{}
		rec := serve(newTestRouter(t, store), http.MethodGet, target, "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, rec.Code)
		}
		if calls := store.recorded(); len(calls) != 0 {
			t.Fatalf("%s: store should not be called, got %v", target, calls)
		}
	}
}

func TestQueryIPRecords_NegativeLimitIsUnpaged(t *testing.T) {
	targets := map[string]string{
		"query": "/api/v1.0/ips?limit=-1&page=3",
		"body":  `{"limit": -1, "page": 3}`,
	}

	for name, target := range targets {
		t.Run(name, func(t *testing.T) {
			store := &stubStore{records: sampleRecords()}
			var rec *httptest.ResponseRecorder
			if name == "body" {
				rec = serve(newTestRouter(t, store), http.MethodPost, "/api/v1.0/ips/search", target)
			} else {
				rec = serve(newTestRouter(t, store), http.MethodGet, target, "")
			}

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			store.mu.Lock()
			defer store.mu.Unlock()
			if len(store.pages) != 1 || store.pages[0].Paged() {
				t.Fatalf("store pages = %v, want one unpaged query", store.pages)
			}
		})
	}
}

func TestSearchIPRecords(t *testing.T) {
	tests := map[string]struct {
		body     string
		status   int
		wantCall string
	}{
		"plain ip":          {`{"ip": "192.0.2.10"}`, http.StatusOK, `find ip:"192.0.2.10"`},
		"version number":    {`{"version": 4, "limit": 10, "page": 1}`, http.StatusOK, "find version:4"},
		"count managed":     {`{"managed": true, "count": true}`, http.StatusOK, "count managed"},
		"operator stripped": {`{"$where": "sleep(1000)"}`, http.StatusOK, "find all"},
		"injection object":  {`{"ip": {"$where": "sleep(1000)"}}`, http.StatusBadRequest, ""},
		"injection array":   {`{"zone": ["a", "b"]}`, http.StatusBadRequest, ""},
		"null value":        {`{"domain": null}`, http.StatusBadRequest, ""},
		"numeric ip":        {`{"ip": 5}`, http.StatusBadRequest, ""},
		"fractional limit":  {`{"limit": 1.5}`, http.StatusBadRequest, ""},
		"malformed":         {`{"ip": `, http.StatusBadRequest, ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			store := &stubStore{records: sampleRecords(), count: 2}
			rec := serve(newTestRouter(t, store), http.MethodPost, "/api/v1.0/ips/search", tc.body)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tc.status, rec.Body.String())
			}

			calls := store.recorded()
			if tc.wantCall == "" {
				if len(calls) != 0 {
					t.Fatalf("store should not be called, got %v", calls)
				}
				return
			}
			if len(calls) != 1 || calls[0] != tc.wantCall {
				t.Fatalf("store calls = %v, want [%s]", calls, tc.wantCall)
			}
		})
	}
}

func TestIPRecords_StoreFailureIs500(t *testing.T) {
	store := &stubStore{err: errors.New("connection reset")}
	rec := serve(newTestRouter(t, store), http.MethodGet, "/api/v1.0/ips?tracked=1", "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Fatalf("driver error leaked to client: %s", rec.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	store := &stubStore{}
	router := newTestRouter(t, store)

	if rec := serve(router, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d", rec.Code)
	}

	store.pingErr = errors.New("no primary")
	if rec := serve(router, http.MethodGet, "/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d, want 503", rec.Code)
	}
}

func TestGraphQLRoute(t *testing.T) {
	store := &stubStore{records: sampleRecords(), count: 1}
	rec := serve(newTestRouter(t, store), http.MethodPost, "/graphql", `{"query": "{ ipRecordCount }"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Data struct {
			IPRecordCount int `json:"ipRecordCount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode graphql response: %v", err)
	}
	if payload.Data.IPRecordCount != 1 {
		t.Fatalf("ipRecordCount = %d, want 1", payload.Data.IPRecordCount)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := serve(newTestRouter(t, &stubStore{}), http.MethodOptions, "/api/v1.0/ips", "")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header: %v", rec.Header())
	}
}

func TestNewRouter_RequiresService(t *testing.T) {
	if _, err := NewRouter(Dependencies{}); err == nil {
		t.Fatal("expected an error without a records service")
	}
}
