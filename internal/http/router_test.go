package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-country-cache/internal/config"
	"github.com/tbourn/go-country-cache/internal/domain"
)

func newRouterDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("router_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Country{}, &domain.CacheStatus{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newRouterEnv spins up fake upstreams and a fully wired engine.
func newRouterEnv(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	countriesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"Ghana","capital":"Accra","region":"Africa","population":1000,
			 "currencies":[{"code":"GHS"}]},
			{"name":"Togo","region":"Africa","population":500,"currencies":[{"code":"XOF"}]}
		]`))
	}))
	ratesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates":{"GHS":2,"XOF":600}}`))
	}))
	t.Cleanup(countriesSrv.Close)
	t.Cleanup(ratesSrv.Close)

	cfg := config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     1000,
		RateBurst:   1000,
		Upstream: config.UpstreamConfig{
			CountriesURL: countriesSrv.URL,
			RatesURL:     ratesSrv.URL,
			Timeout:      5 * time.Second,
		},
		Summary: config.SummaryConfig{
			ImagePath: filepath.Join(t.TempDir(), "summary.png"),
			FlagFetch: time.Second,
		},
		Security: config.SecurityConfig{},
	}

	db := newRouterDB(t)
	r := gin.New()
	RegisterRoutes(r, db, cfg)
	return r, db
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r, _ := newRouterEnv(t)

	if w := get(t, r, "/health"); w.Code != http.StatusOK {
		t.Fatalf("/health status = %d", w.Code)
	}
	if w := get(t, r, "/metrics"); w.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", w.Code)
	}
}

func TestRouter_FullRefreshReadCycle(t *testing.T) {
	r, _ := newRouterEnv(t)

	// Refresh populates the cache from the fake upstreams.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/countries/refresh", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body=%s", w.Code, w.Body.String())
	}
	var refresh struct {
		Status             string `json:"status"`
		CountriesProcessed int    `json:"countries_processed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &refresh); err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if refresh.Status != "success" || refresh.CountriesProcessed != 2 {
		t.Fatalf("unexpected refresh payload: %+v", refresh)
	}

	// Listing returns both rows ordered by name.
	w = get(t, r, "/api/v1/countries")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []domain.Country
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Ghana" || list[1].Name != "Togo" {
		t.Fatalf("unexpected listing: %+v", list)
	}

	// Region and sort filters work end to end.
	w = get(t, r, "/api/v1/countries?region=africa&sort=gdp_desc")
	var sorted []domain.Country
	if err := json.Unmarshal(w.Body.Bytes(), &sorted); err != nil {
		t.Fatalf("decode sorted list: %v", err)
	}
	if len(sorted) != 2 || sorted[0].EstimatedGDP < sorted[1].EstimatedGDP {
		t.Fatalf("expected GDP-descending order: %+v", sorted)
	}

	// Case-insensitive single lookup.
	if w = get(t, r, "/api/v1/countries/gHaNa"); w.Code != http.StatusOK {
		t.Fatalf("get status = %d body=%s", w.Code, w.Body.String())
	}

	// Status endpoint reflects the refresh.
	w = get(t, r, "/api/v1/status")
	var st struct {
		TotalCountries  int64      `json:"total_countries"`
		LastRefreshedAt *time.Time `json:"last_refreshed_at"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.TotalCountries != 2 || st.LastRefreshedAt == nil {
		t.Fatalf("unexpected status: %+v", st)
	}

	// The refresh generated the summary image as a side effect.
	if w = get(t, r, "/api/v1/countries/image"); w.Code != http.StatusOK {
		t.Fatalf("image status = %d", w.Code)
	}

	// Delete, then the lookup 404s.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/countries/Ghana", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w = get(t, r, "/api/v1/countries/Ghana"); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", w.Code)
	}
}

func TestRouter_UpstreamDownYields503(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(broken.Close)

	cfg := config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     1000,
		RateBurst:   1000,
		Upstream: config.UpstreamConfig{
			CountriesURL: broken.URL,
			RatesURL:     broken.URL,
			Timeout:      time.Second,
		},
		Summary: config.SummaryConfig{
			ImagePath: filepath.Join(t.TempDir(), "summary.png"),
			FlagFetch: time.Second,
		},
	}
	r := gin.New()
	RegisterRoutes(r, newRouterDB(t), cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/countries/refresh", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var er struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != "upstream_unavailable" || er.Message == "" {
		t.Fatalf("unexpected error body: %+v", er)
	}
}

func TestRouter_NoRouteAndNoMethodEnvelopes(t *testing.T) {
	r, _ := newRouterEnv(t)

	w := get(t, r, "/nope")
	if w.Code != http.StatusNotFound {
		t.Fatalf("no-route status = %d", w.Code)
	}
	var er struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != "not_found" {
		t.Fatalf("unexpected no-route body: %s (%v)", w.Body.String(), err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/countries", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("no-method status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestRouter_RateLimitKicksIn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     0,
		RateBurst:   1,
		Upstream: config.UpstreamConfig{
			CountriesURL: "http://127.0.0.1:0",
			RatesURL:     "http://127.0.0.1:0",
			Timeout:      time.Second,
		},
		Summary: config.SummaryConfig{
			ImagePath: filepath.Join(t.TempDir(), "summary.png"),
			FlagFetch: time.Second,
		},
	}
	r := gin.New()
	RegisterRoutes(r, newRouterDB(t), cfg)

	if w := get(t, r, "/health"); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	if w := get(t, r, "/health"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d; want 429", w.Code)
	}
}

func TestRouter_RequestIDAndSecurityHeaders(t *testing.T) {
	r, _ := newRouterEnv(t)

	w := get(t, r, "/health")
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID missing")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("default CORS should allow all: %#v", w.Header())
	}
}
