package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoginProtection_AccountLockout(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})

	email := "admin@cpbc.org"

	if locked, _ := lp.IsAccountLocked(email); locked {
		t.Fatal("account should not start locked")
	}

	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	if locked, _ := lp.IsAccountLocked(email); locked {
		t.Fatal("account locked before reaching the threshold")
	}

	locked, duration := lp.RecordFailedAttempt(email)
	if !locked {
		t.Fatal("third failure should lock the account")
	}
	if duration != time.Minute {
		t.Errorf("lock duration = %v, want %v", duration, time.Minute)
	}

	if locked, remaining := lp.IsAccountLocked(email); !locked || remaining <= 0 {
		t.Errorf("IsAccountLocked = (%v, %v), want locked with time remaining", locked, remaining)
	}
}

func TestLoginProtection_ExponentialBackoff(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 2,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Hour,
	})

	email := "admin@cpbc.org"

	lp.RecordFailedAttempt(email)
	if locked, d := lp.RecordFailedAttempt(email); !locked || d != time.Minute {
		t.Fatalf("first lockout = (%v, %v), want (true, 1m)", locked, d)
	}

	// A second lockout doubles the duration.
	lp.RecordFailedAttempt(email)
	if locked, d := lp.RecordFailedAttempt(email); !locked || d != 2*time.Minute {
		t.Fatalf("second lockout = (%v, %v), want (true, 2m)", locked, d)
	}
}

func TestLoginProtection_SuccessClearsAttempts(t *testing.T) {
	lp := NewLoginProtection(DefaultLoginProtectionConfig())

	email := "admin@cpbc.org"
	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)

	if got := lp.GetRemainingAttempts(email); got != 3 {
		t.Errorf("remaining = %d, want 3", got)
	}

	lp.RecordSuccessfulLogin(email)

	if got := lp.GetRemainingAttempts(email); got != 5 {
		t.Errorf("remaining after success = %d, want 5", got)
	}
}

func TestLoginProtection_Middleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 1,
		IPBurst:     2,
	})

	h := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.Header.Set("X-Real-IP", "203.0.113.7")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2 allowed, third is limited.
	if code := post(); code != http.StatusOK {
		t.Errorf("first request: status = %d, want 200", code)
	}
	if code := post(); code != http.StatusOK {
		t.Errorf("second request: status = %d, want 200", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want 429", code)
	}

	// Non-POST requests bypass the limiter.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET request: status = %d, want 200", rec.Code)
	}
}

func TestGlobalRateLimiter(t *testing.T) {
	rl := NewGlobalRateLimiter(1, 1)

	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	get := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/ministry-areas", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := get("203.0.113.1"); code != http.StatusOK {
		t.Errorf("first request: status = %d, want 200", code)
	}
	if code := get("203.0.113.1"); code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", code)
	}

	// Limits are tracked per IP.
	if code := get("203.0.113.2"); code != http.StatusOK {
		t.Errorf("other IP: status = %d, want 200", code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates an ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if seen == "" {
			t.Fatal("no request ID in context")
		}
		if got := rec.Header().Get("X-Request-ID"); got != seen {
			t.Errorf("response header = %q, context = %q", got, seen)
		}
	})

	t.Run("honors client-provided ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "client-supplied")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if seen != "client-supplied" {
			t.Errorf("request ID = %q, want client-supplied", seen)
		}
	})
}
