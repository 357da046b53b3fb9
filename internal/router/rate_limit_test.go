package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLimitedEngine(rule RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(nil, rule, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func doPing(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitDisabledRulePassesThrough(t *testing.T) {
	r := newLimitedEngine(RateLimitRule{})
	for i := 0; i < 5; i++ {
		w := doPing(r, "1.2.3.4:5678")
		if !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("request %d should pass, got %s", i, w.Body.String())
		}
	}
}

func TestLocalRateLimitWithoutRedis(t *testing.T) {
	r := newLimitedEngine(RateLimitRule{Prefix: "bn:rate:qr", WindowSeconds: 60, MaxRequests: 2})

	for i := 0; i < 2; i++ {
		if w := doPing(r, "1.2.3.4:5678"); !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("request %d within burst should pass, got %s", i, w.Body.String())
		}
	}

	w := doPing(r, "1.2.3.4:5678")
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 429 {
		t.Fatalf("status_code want 429 got %d", resp.StatusCode)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After header should be set")
	}

	if w := doPing(r, "5.6.7.8:1234"); !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("other client should have its own bucket, got %s", w.Body.String())
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  int64
		ok    bool
	}{
		{name: "int64", input: int64(10), want: 10, ok: true},
		{name: "int", input: int(11), want: 11, ok: true},
		{name: "uint8", input: uint8(12), want: 12, ok: true},
		{name: "float64", input: float64(13.9), want: 13, ok: true},
		{name: "string", input: "bad", want: 0, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toInt64(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok want %v got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Fatalf("value want %d got %d", tc.want, got)
			}
		})
	}
}
