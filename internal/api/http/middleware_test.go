package apihttp

import (
	"net/http/httptest"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/healthz", "/healthz"},
		{"/metrics", "/metrics"},
		{"/ws", "/ws"},
		{"/history", "/history"},
		{"/stream/USUM71703861", "/stream/:id"},
		{"/stream/LINK:aGVsbG8", "/stream/:id"},
		{"/download/USUM71703861", "/download/:id"},
		{"/download/batch", "/download/batch"},
		{"/favicon.ico", "/other"},
	}
	for _, tc := range tests {
		if got := normalizeRoute(tc.path); got != tc.want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/stream/x", nil)
	r.RemoteAddr = "10.0.0.9:52431"
	if got := clientIP(r); got != "10.0.0.9" {
		t.Errorf("clientIP = %q", got)
	}

	r.Header.Set("X-Real-IP", "203.0.113.7")
	if got := clientIP(r); got != "203.0.113.7" {
		t.Errorf("clientIP = %q, want X-Real-IP honored", got)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.2, 203.0.113.7")
	if got := clientIP(r); got != "198.51.100.2" {
		t.Errorf("clientIP = %q, want first forwarded hop", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("0123456789", 8); got != "01234..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("0123456789", 2); got != "01" {
		t.Errorf("truncate = %q", got)
	}
}
