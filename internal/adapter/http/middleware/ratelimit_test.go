package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_LimitsPerClient(t *testing.T) {
	var limited int
	rl := NewRateLimiter(1, 1).OnLimit(func() { limited++ })
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("1.2.3.4:1000"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	// Same host, different port.
	if code := send("1.2.3.4:2000"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", code)
	}
	if code := send("5.6.7.8:1000"); code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", code)
	}
	if limited != 1 {
		t.Fatalf("expected one limit callback, got %d", limited)
	}
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "9.9.9.9:1", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.3"}, "9.9.9.9:1", "10.0.0.3"},
		{"remote addr", nil, "9.9.9.9:1", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getIP(req); got != tt.want {
				t.Fatalf("getIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanupLimitersDropsIdleClients(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.getLimiter("old")
	now = now.Add(time.Hour)
	rl.getLimiter("fresh")

	rl.CleanupLimiters(30 * time.Minute)

	if _, ok := rl.limiters["old"]; ok {
		t.Fatalf("expected idle limiter to be removed")
	}
	if _, ok := rl.limiters["fresh"]; !ok {
		t.Fatalf("expected recent limiter to be kept")
	}
}
