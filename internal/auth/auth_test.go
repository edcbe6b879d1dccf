package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testService(t *testing.T, password string, duration time.Duration) *Service {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return NewService("0123456789abcdef", hash, duration)
}

func TestLogin(t *testing.T) {
	svc := testService(t, "hunter2", time.Hour)

	token, err := svc.Login("hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("Login returned empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "owner" {
		t.Fatalf("Subject = %q, want owner", claims.Subject)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := testService(t, "hunter2", time.Hour)
	if _, err := svc.Login("letmein"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginDisabled(t *testing.T) {
	cases := []struct {
		name string
		svc  *Service
	}{
		{"nil service", nil},
		{"no password hash", NewService("0123456789abcdef", "", time.Hour)},
		{"no secret", NewService("", "$2a$10$notreallyahash", time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.svc.Enabled() {
				t.Fatal("Enabled = true, want false")
			}
			if _, err := tc.svc.Login("anything"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestValidateTokenExpired(t *testing.T) {
	svc := testService(t, "hunter2", -time.Minute)

	token, err := svc.Login("hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("error = %v, want ErrTokenExpired", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := testService(t, "hunter2", time.Hour)
	token, err := svc.Login("hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	other := NewService("fedcba9876543210", svc.passwordHash, time.Hour)
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestMiddleware(t *testing.T) {
	svc := testService(t, "hunter2", time.Hour)
	token, err := svc.Login("hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	var gotClaims *Claims
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = GetClaims(r.Context())
	}))

	cases := []struct {
		name       string
		header     string
		wantStatus int
		wantClaims bool
	}{
		{"valid token", "Bearer " + token, http.StatusOK, true},
		{"no header", "", http.StatusOK, false},
		{"wrong scheme", "Basic abc", http.StatusOK, false},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotClaims = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if (gotClaims != nil) != tc.wantClaims {
				t.Fatalf("claims present = %v, want %v", gotClaims != nil, tc.wantClaims)
			}
		})
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	called := false
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("disabled middleware blocked the request")
	}
}

func TestRequire(t *testing.T) {
	svc := testService(t, "hunter2", time.Hour)

	handler := Require(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// Disabled auth lets the request through.
	rec = httptest.NewRecorder()
	Require(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
