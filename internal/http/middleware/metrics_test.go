package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetrics_CountsRequestsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/countries/:name", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Two requests to the same route with different params must share labels.
	for _, p := range []string{"/countries/Ghana", "/countries/Togo"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %s: status = %d", p, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics endpoint: status = %d", w.Code)
	}
	body := w.Body.String()
	// The route template keeps label cardinality bounded.
	if !strings.Contains(body, `path="/countries/:name"`) {
		t.Fatalf("expected route-template label in metrics output")
	}
	if strings.Contains(body, `path="/countries/Ghana"`) {
		t.Fatalf("raw URLs must not appear as label values")
	}
	if !strings.Contains(body, "http_requests_total") ||
		!strings.Contains(body, "http_request_duration_seconds") {
		t.Fatalf("expected core series in metrics output")
	}
}

func TestMetrics_UnmatchedRouteFallsBackToRawPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `path="/nope"`) {
		t.Fatalf("expected fallback raw-path label for unmatched route")
	}
}
