package debughttp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logx "taskmill/pkg/logx"
)

func TestNormalizePrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", "/debug/pprof/"},
		{"debug/pprof", "/debug/pprof/"},
		{"/profiling", "/profiling/"},
		{"  /p/  ", "/p/"},
	}
	for _, tc := range cases {
		if got := normalizePrefix(tc.in); got != tc.want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:6060", true},
		{"localhost:6060", true},
		{"[::1]:6060", true},
		{":6060", false},
		{"0.0.0.0:6060", false},
		{"10.0.0.5:6060", false},
		{"garbage", false},
	}
	for _, tc := range cases {
		if got := isLoopbackAddr(tc.addr); got != tc.want {
			t.Errorf("isLoopbackAddr(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestWithAuth(t *testing.T) {
	t.Parallel()

	s := New(Config{}, logx.Nop(), nil)
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	// No token configured: pass-through.
	h := s.withAuth("", ok)
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("no-token request = %d, want 200", rr.Code)
	}

	h = s.withAuth("secret", ok)

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing credentials = %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer secret")
	h(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("bearer token = %d, want 200", rr.Code)
	}

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/healthz?token=secret", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("query token = %d, want 200", rr.Code)
	}

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/healthz?token=wrong", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong query token = %d, want 401", rr.Code)
	}
}

func TestHandleStats(t *testing.T) {
	t.Parallel()

	s := New(Config{}, logx.Nop(), func() any {
		return map[string]int{"workers": 4}
	})
	rr := httptest.NewRecorder()
	s.handleStats(rr, httptest.NewRequest(http.MethodGet, "/statsz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("statsz = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if body := rr.Body.String(); !strings.Contains(body, `"workers"`) || !strings.Contains(body, "4") {
		t.Fatalf("body = %q", body)
	}
}

func TestNeedsRestart(t *testing.T) {
	t.Parallel()

	base := Config{Addr: "127.0.0.1:6060", Prefix: "/debug/pprof/"}
	if needsRestart(base, base) {
		t.Fatal("identical config should not restart")
	}
	changed := base
	changed.Addr = "127.0.0.1:7070"
	if !needsRestart(base, changed) {
		t.Fatal("addr change should restart")
	}
	changed = base
	changed.Prefix = "debug/pprof"
	if needsRestart(base, changed) {
		t.Fatal("equivalent prefix spellings should not restart")
	}
}
