package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calmcare/calm-agent/internal/agent"
	"github.com/calmcare/calm-agent/internal/log"
)

func TestRateLimiterBurstExhaustion(t *testing.T) {
	rl := newRateLimiter(0.001, 3)

	for i := range 3 {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d rejected within burst", i)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request beyond burst allowed")
	}
	// A different IP has its own bucket.
	if !rl.allow("10.0.0.2") {
		t.Error("separate IP shares exhausted bucket")
	}
}

func TestRateLimitedAskReturns429(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:    log.NewNop(),
		Runner:    &fakeRunner{gen: agent.Generation{Answer: "ok"}},
		Defaults:  AskDefaults{Threshold: 0.65, MaxRetries: 2, DocNumber: 4},
		RateLimit: 0.001,
		RateBurst: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"user_query": "q"}`))
		req.RemoteAddr = "192.0.2.1:40000"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", code)
	}

	// Health probes bypass the limiter.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.1:40000"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "198.51.100.7:1234",
			want:       "198.51.100.7",
		},
		{
			name:       "proxy headers ignored when untrusted",
			remoteAddr: "198.51.100.7:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "198.51.100.7",
		},
		{
			name:       "x-real-ip honored when trusted",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "first forwarded-for entry",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"},
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "invalid header value rejected",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			trustProxy: true,
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
