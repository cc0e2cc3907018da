package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/serialyear/internal/config"
	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/history"
)

const webCSV = "Brand,Year,License\n" +
	"Acme,1900,100\n" +
	",1910,250\n" +
	",1910,400\n" +
	"Zeta,1980,500\n" +
	",1985,400\n" +
	"Old Co,1950,10\n"

type stringSource struct{ text string }

func (s stringSource) Name() string { return "test" }

func (s stringSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.text)), nil
}

type fakeLoads struct {
	recs []core.LoadRecord
	err  error
}

func (f *fakeLoads) RecentLoads(ctx context.Context, limit int) ([]core.LoadRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.recs) {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	vars := map[string]string{
		"SOURCE_PATH":        "table.csv",
		"RATE_LIMIT_ENABLED": "false",
	}
	for k, v := range env {
		vars[k] = v
	}
	cfg, err := config.LoadFrom(func(k string) string { return vars[k] })
	if err != nil {
		t.Fatalf("config.LoadFrom() error = %v", err)
	}
	return cfg
}

type testServer struct {
	*Server
	store *history.Memory
}

func newTestServer(t *testing.T, load bool, env map[string]string, opts ...ServerOption) *testServer {
	t.Helper()
	svc := core.NewService(stringSource{text: webCSV})
	if load {
		if _, err := svc.Reload(context.Background()); err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
	}
	store := history.NewMemory(history.DefaultMaxEntries)
	srv := NewServer(svc, store, testConfig(t, env), opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// =============================================================================
// Health
// =============================================================================

func TestHealthAndReady(t *testing.T) {
	cold := newTestServer(t, false, nil)
	if rec := cold.do(t, http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("cold /readyz status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if rec := cold.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("cold /healthz status = %d, want %d", rec.Code, http.StatusOK)
	}

	warm := newTestServer(t, true, nil)
	if rec := warm.do(t, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := decode[struct {
		Ready    bool          `json:"ready"`
		Snapshot *snapshotView `json:"snapshot"`
	}](t, warm.do(t, http.MethodGet, "/healthz", nil))
	if !body.Ready || body.Snapshot == nil {
		t.Fatalf("healthz = %+v, want ready with snapshot", body)
	}
	if body.Snapshot.Brands != 3 {
		t.Errorf("snapshot brands = %d, want 3", body.Snapshot.Brands)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	ts := newTestServer(t, true, nil)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

// =============================================================================
// Lookup
// =============================================================================

func TestHandleLookup(t *testing.T) {
	ts := newTestServer(t, true, nil)

	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantYear    int // 0 means nil
		wantIndex   int
		wantMatched bool
		wantCode    string
	}{
		{"inside range", "brand=Acme&serial=300", http.StatusOK, 1910, 1, true, ""},
		{"top open range", "brand=Acme&serial=1000", http.StatusOK, 1910, 2, true, ""},
		{"predates table", "brand=Acme&serial=50", http.StatusOK, 0, -1, false, ""},
		{"below first of disordered brand", "brand=Zeta&serial=450", http.StatusOK, 0, -1, false, ""},
		{"brand with space", "brand=Old+Co&serial=12", http.StatusOK, 1950, 0, true, ""},
		{"unknown brand", "brand=Acmee&serial=300", http.StatusNotFound, 0, 0, false, "LKP001"},
		{"bad serial", "brand=Acme&serial=abc", http.StatusBadRequest, 0, 0, false, "LKP002"},
		{"missing serial", "brand=Acme", http.StatusBadRequest, 0, 0, false, "REQ003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/api/lookup?"+tt.query, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantCode != "" {
				got := decode[ErrorResponse](t, rec)
				if got.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
				}
				return
			}

			got := decode[lookupResponse](t, rec)
			if got.Matched != tt.wantMatched {
				t.Errorf("matched = %v, want %v", got.Matched, tt.wantMatched)
			}
			if got.Index != tt.wantIndex {
				t.Errorf("index = %d, want %d", got.Index, tt.wantIndex)
			}
			switch {
			case tt.wantYear == 0 && got.Year != nil:
				t.Errorf("year = %d, want nil", *got.Year)
			case tt.wantYear != 0 && (got.Year == nil || *got.Year != tt.wantYear):
				t.Errorf("year = %v, want %d", got.Year, tt.wantYear)
			}
		})
	}
}

func TestHandleLookup_Suggestions(t *testing.T) {
	ts := newTestServer(t, true, nil)

	got := decode[ErrorResponse](t, ts.do(t, http.MethodGet, "/api/lookup?brand=Acmee&serial=1", nil))
	if len(got.Suggestions) == 0 || got.Suggestions[0] != "Acme" {
		t.Errorf("suggestions = %v, want [Acme ...]", got.Suggestions)
	}
}

func TestHandleLookup_NotLoaded(t *testing.T) {
	ts := newTestServer(t, false, nil)

	rec := ts.do(t, http.MethodGet, "/api/lookup?brand=Acme&serial=1", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "LKP003" {
		t.Errorf("code = %q, want LKP003", got.Code)
	}
}

func TestHandleLookup_RecordsHistory(t *testing.T) {
	ts := newTestServer(t, true, nil)

	ts.do(t, http.MethodGet, "/api/lookup?brand=Acme&serial=300", map[string]string{"User-Agent": "test-agent"})
	ts.do(t, http.MethodGet, "/api/lookup?brand=Acme&serial=300", nil)
	ts.do(t, http.MethodGet, "/api/lookup?brand=Nope&serial=300", nil)

	entries, err := ts.store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history len = %d, want 1", len(entries))
	}
	if entries[0].UserAgent != "test-agent" {
		t.Errorf("UserAgent = %q, want test-agent", entries[0].UserAgent)
	}
	if entries[0].IPAddress != "192.0.2.1" {
		t.Errorf("IPAddress = %q, want 192.0.2.1", entries[0].IPAddress)
	}
}

// =============================================================================
// Brands and breakpoints
// =============================================================================

func TestHandleListBrands(t *testing.T) {
	ts := newTestServer(t, true, nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Acme", "Zeta", "Old Co"}},
		{"?q=co", []string{"Old Co"}},
		{"?q=zzz", []string{}},
	}
	for _, tt := range tests {
		got := decode[struct {
			Brands []string `json:"brands"`
			Count  int      `json:"count"`
		}](t, ts.do(t, http.MethodGet, "/api/brands"+tt.query, nil))

		if strings.Join(got.Brands, "|") != strings.Join(tt.want, "|") {
			t.Errorf("brands%s = %v, want %v", tt.query, got.Brands, tt.want)
		}
		if got.Count != len(tt.want) {
			t.Errorf("count = %d, want %d", got.Count, len(tt.want))
		}
	}
}

func TestHandleBreakpoints(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(t, http.MethodGet, "/api/brands/Acme/breakpoints?serial=300", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	got := decode[core.BrandDetail](t, rec)

	if len(got.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(got.Rows))
	}
	if !got.Rows[1].Flags.DuplicateYear {
		t.Error("row 1 should be flagged duplicate year")
	}
	for i, want := range []bool{false, true, true} {
		if got.Rows[i].Highlight != want {
			t.Errorf("row %d highlight = %v, want %v", i, got.Rows[i].Highlight, want)
		}
	}

	encoded := ts.do(t, http.MethodGet, "/api/brands/Old%20Co/breakpoints", nil)
	if encoded.Code != http.StatusOK {
		t.Errorf("escaped brand status = %d, want 200", encoded.Code)
	}

	if missing := ts.do(t, http.MethodGet, "/api/brands/Nope/breakpoints", nil); missing.Code != http.StatusNotFound {
		t.Errorf("unknown brand status = %d, want 404", missing.Code)
	}
}

func TestHandleAnomalies(t *testing.T) {
	ts := newTestServer(t, true, nil)

	got := decode[struct {
		Brands  []core.BrandAnomalies `json:"brands"`
		Flagged int                   `json:"flagged"`
	}](t, ts.do(t, http.MethodGet, "/api/anomalies", nil))

	if got.Flagged != 2 {
		t.Errorf("flagged = %d, want 2", got.Flagged)
	}
	if len(got.Brands) != 2 || got.Brands[0].Brand != "Acme" || got.Brands[1].Brand != "Zeta" {
		t.Errorf("brands = %+v, want Acme then Zeta", got.Brands)
	}
}

// =============================================================================
// History
// =============================================================================

func TestHistoryEndpoints(t *testing.T) {
	ts := newTestServer(t, true, nil)

	ts.do(t, http.MethodGet, "/api/lookup?brand=Acme&serial=300", nil)
	ts.do(t, http.MethodGet, "/api/lookup?brand=Zeta&serial=600", nil)

	list := decode[struct {
		Entries []history.Entry `json:"entries"`
		Count   int             `json:"count"`
	}](t, ts.do(t, http.MethodGet, "/api/history", nil))
	if list.Count != 2 || list.Entries[0].Brand != "Zeta" {
		t.Fatalf("history = %+v, want Zeta first of 2", list.Entries)
	}

	if rec := ts.do(t, http.MethodDelete, "/api/history?brand=Acme", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("partial delete status = %d, want 400", rec.Code)
	}

	removed := decode[map[string]int](t, ts.do(t, http.MethodDelete, "/api/history?brand=Acme&serial=300", nil))
	if removed["removed"] != 1 {
		t.Errorf("removed = %d, want 1", removed["removed"])
	}

	ts.do(t, http.MethodDelete, "/api/history", nil)
	if n := ts.store.Len(); n != 0 {
		t.Errorf("history len after clear = %d, want 0", n)
	}
}

// =============================================================================
// Admin
// =============================================================================

func TestHandleReload(t *testing.T) {
	ts := newTestServer(t, false, nil)

	rec := ts.do(t, http.MethodPost, "/api/reload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if got := decode[snapshotView](t, rec); got.Brands != 3 || got.ID == "" {
		t.Errorf("snapshot = %+v, want 3 brands and an id", got)
	}
	if !ts.service.Ready() {
		t.Error("service should be ready after reload")
	}
}

func TestHandleReload_RequiresAPIKey(t *testing.T) {
	ts := newTestServer(t, true, map[string]string{
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "secret",
	})

	if rec := ts.do(t, http.MethodPost, "/api/reload", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/api/reload", map[string]string{"X-API-Key": "secret"}); rec.Code != http.StatusOK {
		t.Errorf("with key status = %d, want 200", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/lookup?brand=Acme&serial=300", nil); rec.Code != http.StatusOK {
		t.Errorf("public route status = %d, want 200", rec.Code)
	}
}

func TestHandleListLoads(t *testing.T) {
	without := newTestServer(t, true, nil)
	if rec := without.do(t, http.MethodGet, "/api/loads", nil); rec.Code != http.StatusNotFound {
		t.Errorf("no store status = %d, want 404", rec.Code)
	}

	loads := &fakeLoads{recs: []core.LoadRecord{
		{ID: "b", Source: "test", LoadedAt: time.Now(), Duration: 1500 * time.Millisecond, Brands: 3},
		{ID: "a", Source: "test", Err: "open: boom"},
	}}
	ts := newTestServer(t, true, nil, WithLoadLister(loads))

	got := decode[struct {
		Loads []loadView `json:"loads"`
		Count int        `json:"count"`
	}](t, ts.do(t, http.MethodGet, "/api/loads?limit=1", nil))
	if got.Count != 1 || got.Loads[0].ID != "b" || got.Loads[0].DurationMs != 1500 {
		t.Errorf("loads = %+v, want only b with 1500ms", got.Loads)
	}

	loads.err = errors.New("connection refused")
	rec := ts.do(t, http.MethodGet, "/api/loads", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("store error status = %d, want 500", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "DB004" {
		t.Errorf("code = %q, want DB004", got.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, true, map[string]string{
		"RATE_LIMIT_ENABLED":             "true",
		"RATE_LIMIT_REQUESTS_PER_MINUTE": "1",
	})

	if rec := ts.do(t, http.MethodGet, "/api/brands", nil); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", rec.Code)
	}
	rec := ts.do(t, http.MethodGet, "/api/brands", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "RATE001" {
		t.Errorf("code = %q, want RATE001", got.Code)
	}
}

// =============================================================================
// Pages
// =============================================================================

func TestIndexPage(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(t, http.MethodGet, "/?brand=Acme&serial=300", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Produced in <strong>1910</strong>", "Recent lookups", `href="/brands/Zeta"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}

	rec = ts.do(t, http.MethodGet, "/?brand=Acmee&serial=300", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown brand status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Did you mean") {
		t.Error("index should offer suggestions for an unknown brand")
	}
}

func TestBrandPage(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(t, http.MethodGet, "/brands/Zeta?serial=600", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "out of order") {
		t.Error("brand page should show the out of order flag")
	}

	rec = ts.do(t, http.MethodGet, "/brands/Nope", map[string]string{"HX-Request": "true"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("htmx status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `class="alert"`) {
		t.Errorf("htmx error should render the alert partial, got %q", rec.Body.String())
	}
}

// =============================================================================
// Error mapping
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid serial", core.ErrInvalidSerial, http.StatusBadRequest},
		{"unknown brand", core.ErrUnknownBrand, http.StatusNotFound},
		{"not loaded", core.ErrNotLoaded, http.StatusServiceUnavailable},
		{"busy", &core.LoadError{Source: "x", Err: core.ErrTooManyLoads}, http.StatusServiceUnavailable},
		{"load failure", &core.LoadError{Source: "x", Err: core.ErrEmptySource}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 20},
		{"5", 5},
		{"0", 20},
		{"x", 20},
		{"500", 100},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?limit="+tt.raw, nil)
		if got := parseIntParam(req, "limit", 20, 100); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
