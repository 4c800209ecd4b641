package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/waxfeed-backend/internal/observability"
	"github.com/yungbote/waxfeed-backend/internal/platform/ctxutil"
)

func identityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIdentity())
	r.GET("/ping", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		if td == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, td.RequestID)
	})
	return r
}

func TestRequestIdentityKeepsPlainRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	identityRouter().ServeHTTP(rec, req)
	if rec.Body.String() != "req-123" || rec.Header().Get("X-Request-Id") != "req-123" {
		t.Fatalf("request id: body=%q header=%q", rec.Body.String(), rec.Header().Get("X-Request-Id"))
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("missing trace id header")
	}
}

func TestRequestIdentityReplacesUnsafeRequestID(t *testing.T) {
	for _, raw := range []string{`{"inject":1}`, strings.Repeat("a", maxRequestIDLen+1), "two words"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-Id", raw)
		rec := httptest.NewRecorder()
		identityRouter().ServeHTTP(rec, req)
		got := rec.Body.String()
		if got == raw || !validRequestID(got) {
			t.Fatalf("request id %q: want generated got=%q", raw, got)
		}
	}
}

func TestRequestObserverRecordsMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(RequestObserver(nil, m))
	r.GET("/api/albums/:id/rating", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		c.Status(http.StatusNoContent)
	})

	for _, path := range []string{"/api/albums/a/rating", "/api/albums/b/rating", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, line := range []string{
		`waxfeed_api_requests_total{method="GET",route="/api/albums/:id/rating",status="204"} 2`,
		`waxfeed_api_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`waxfeed_api_inflight_requests 0`,
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("metrics missing %q", line)
		}
	}
}
