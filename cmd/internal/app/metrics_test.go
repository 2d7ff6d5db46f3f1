package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithMetrics_CountsByPattern(t *testing.T) {
	m := NewMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/postsfeed/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := m.WithMetrics(mux, mux)

	req := httptest.NewRequest(http.MethodGet, "/api/postsfeed/abc123", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRR := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRR, metricsReq)

	body := metricsRR.Body.String()
	if !strings.Contains(body, `chitter_http_requests_total`) {
		t.Fatalf("requests_total missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, `pattern="GET /api/postsfeed/{id}"`) {
		t.Fatalf("pattern label missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, `class="2xx"`) {
		t.Fatalf("status class label missing from exposition:\n%s", body)
	}
}

func TestInteractionAction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pattern string
		want    string
		ok      bool
	}{
		{pattern: "POST /api/posts/{id}/likes", want: "like", ok: true},
		{pattern: "DELETE /api/posts/{id}/likes", want: "unlike", ok: true},
		{pattern: "PATCH /api/posts/{id}/bookmark", want: "bookmark", ok: true},
		{pattern: "POST /api/posts/{id}/comments", want: "comment", ok: true},
		{pattern: "POST /api/posts", want: "post", ok: true},
		{pattern: "PATCH /api/connect/{id}", want: "follow", ok: true},
		{pattern: "GET /api/posts", ok: false},
		{pattern: "POST /auth/login", ok: false},
	}

	for _, tc := range cases {
		got, ok := interactionAction(tc.pattern)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("interactionAction(%q)=(%q,%v) want (%q,%v)", tc.pattern, got, ok, tc.want, tc.ok)
		}
	}
}

func TestWithMetrics_AuthOutcome(t *testing.T) {
	m := NewMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	h := m.WithMetrics(mux, mux)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	metricsRR := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := metricsRR.Body.String()
	if !strings.Contains(body, `chitter_auth_outcomes_total{endpoint="login",result="client_error"} 1`) {
		t.Fatalf("auth outcome counter missing:\n%s", body)
	}
}

func TestWithMetrics_UnmatchedRoute(t *testing.T) {
	m := NewMetrics()

	mux := http.NewServeMux()
	h := m.WithMetrics(mux, mux)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRR := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRR, metricsReq)

	if !strings.Contains(metricsRR.Body.String(), `pattern="unmatched"`) {
		t.Fatalf("unmatched label missing:\n%s", metricsRR.Body.String())
	}
}
