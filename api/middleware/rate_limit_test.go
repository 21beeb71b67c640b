package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/pkg/enums"
	pkgredis "github.com/casamarket/casa-backend/pkg/redis"
)

type fakeLimiter struct {
	counts  map[string]int64
	resetIn time.Duration
	err     error
}

func (f *fakeLimiter) Allow(_ context.Context, scope string, limit int64, _ time.Duration) (pkgredis.Decision, error) {
	if f.err != nil {
		return pkgredis.Decision{}, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	n := f.counts[scope]
	return pkgredis.Decision{Allowed: n <= limit, Count: n, ResetIn: f.resetIn}, nil
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimit(NewRateLimitPolicy("placement", time.Minute, 2), limiter, nil)(okHandler())
	actor := uuid.New()

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req = req.WithContext(WithActor(req.Context(), actor, enums.RoleCustomer))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
		if resp.Code == http.StatusTooManyRequests && resp.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After header, got %q", resp.Header().Get("Retry-After"))
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if _, ok := limiter.counts["placement:actor:"+actor.String()]; !ok {
		t.Fatalf("expected actor-scoped counter, got %v", limiter.counts)
	}
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimit(NewRateLimitPolicy("upload", time.Minute, 5), limiter, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if _, ok := limiter.counts["upload:ip:203.0.113.9"]; !ok {
		t.Fatalf("expected ip-scoped counter, got %v", limiter.counts)
	}
}

func TestRateLimitDependencyFailure(t *testing.T) {
	handler := RateLimit(NewRateLimitPolicy("placement", time.Minute, 2), &fakeLimiter{err: errors.New("down")}, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRateLimitDisabledPolicy(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimit(NewRateLimitPolicy("off", 0, 0), limiter, nil)(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	if len(limiter.counts) != 0 {
		t.Fatalf("disabled policy should not touch the limiter")
	}
}

func TestRateLimitRetryAfterUsesWindowRemainder(t *testing.T) {
	limiter := &fakeLimiter{resetIn: 12500 * time.Millisecond}
	handler := RateLimit(NewRateLimitPolicy("upload", time.Minute, 1), limiter, nil)(okHandler())

	var resp *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		resp = httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	}
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if got := resp.Header().Get("Retry-After"); got != "13" {
		t.Fatalf("expected Retry-After 13, got %q", got)
	}
}
