package pricing

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitKey_WindowBoundaries(t *testing.T) {
	base := time.Unix(1_700_000_020, 0) // 40s into a minute window

	sameWindow := rateLimitKey("10.0.0.1", base.Add(19*time.Second))
	if got := rateLimitKey("10.0.0.1", base); got != sameWindow {
		t.Errorf("keys within one window differ: %q vs %q", got, sameWindow)
	}

	nextWindow := rateLimitKey("10.0.0.1", base.Add(21*time.Second))
	if nextWindow == sameWindow {
		t.Errorf("key did not roll over to the next window: %q", nextWindow)
	}

	other := rateLimitKey("10.0.0.2", base)
	if other == rateLimitKey("10.0.0.1", base) {
		t.Error("different clients share a rate limit key")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/price", nil)
	r.RemoteAddr = "192.0.2.7:54321"
	if got := clientIP(r); got != "192.0.2.7" {
		t.Errorf("clientIP = %q, want 192.0.2.7", got)
	}

	// RealIP middleware may rewrite RemoteAddr without a port.
	r.RemoteAddr = "192.0.2.8"
	if got := clientIP(r); got != "192.0.2.8" {
		t.Errorf("clientIP = %q, want 192.0.2.8", got)
	}
}
