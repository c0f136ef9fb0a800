package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haasonsaas/parley/internal/observability"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testSecret, time.Minute, time.Hour,
		NewMemoryUserStore(), NewMemoryTokenStore(), observability.NopLogger())
}

func registerAndLogin(t *testing.T, svc *Service) *TokenPair {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ada@example.com", "correct-horse", "Ada"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return pair
}

func TestLoginIssuesValidTokenPair(t *testing.T) {
	svc := newTestService(t)
	pair := registerAndLogin(t, svc)

	if pair.TokenType != "bearer" {
		t.Errorf("token type = %q, want bearer", pair.TokenType)
	}
	if pair.RefreshToken == "" {
		t.Error("missing refresh token")
	}

	user, err := svc.UserFromToken(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("UserFromToken: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email = %q", user.Email)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc := newTestService(t)
	registerAndLogin(t, svc)

	if _, err := svc.Login(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	registerAndLogin(t, svc)

	if _, err := svc.Register(context.Background(), "ada@example.com", "another-pass", ""); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := newTestService(t)
	pair := registerAndLogin(t, svc)
	ctx := context.Background()

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if _, err := svc.UserFromToken(ctx, next.AccessToken); err != nil {
		t.Errorf("new access token invalid: %v", err)
	}

	// The used refresh token must not work twice.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused refresh token: err = %v, want ErrInvalidToken", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc := newTestService(t)
	pair := registerAndLogin(t, svc)
	ctx := context.Background()

	svc.Logout(ctx, pair.RefreshToken)
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	svc := newTestService(t)
	first := registerAndLogin(t, svc)
	ctx := context.Background()

	second, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	user, err := svc.UserFromToken(ctx, first.AccessToken)
	if err != nil {
		t.Fatalf("UserFromToken: %v", err)
	}
	if err := svc.LogoutAll(ctx, user.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		if _, err := svc.Refresh(ctx, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	}
}

func TestValidateRejectsForgedToken(t *testing.T) {
	svc := newTestService(t)
	pair := registerAndLogin(t, svc)

	other := NewJWTService("another-secret-another-secret-xx", time.Minute)
	if _, err := other.Validate(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.UserFromToken(context.Background(), "not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	jwtSvc := NewJWTService(testSecret, -time.Minute)
	svc := newTestService(t)
	pair := registerAndLogin(t, svc)

	user, err := svc.UserFromToken(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("UserFromToken: %v", err)
	}
	expired, err := jwtSvc.Generate(user)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := jwtSvc.Validate(expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestMiddleware_ValidBearer(t *testing.T) {
	svc := newTestService(t)
	pair := registerAndLogin(t, svc)

	var gotUserID string
	handler := Middleware(svc, observability.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/chat", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotUserID == "" {
		t.Error("user id not resolved into context")
	}
}

func TestMiddleware_MissingOrBadToken(t *testing.T) {
	svc := newTestService(t)
	handler := Middleware(svc, observability.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without credentials")
	}))

	for _, header := range []string{"", "Bearer garbage", "Basic dXNlcg=="} {
		req := httptest.NewRequest(http.MethodGet, "/v1/chat", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
		if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
			t.Errorf("header %q: WWW-Authenticate = %q", header, got)
		}
	}
}

func TestMiddleware_DisabledAuthUsesDefaultUser(t *testing.T) {
	svc := NewService("", time.Minute, time.Hour,
		NewMemoryUserStore(), NewMemoryTokenStore(), observability.NopLogger())

	var gotUserID string
	handler := Middleware(svc, observability.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotUserID != DefaultUserID {
		t.Errorf("user id = %q, want %q", gotUserID, DefaultUserID)
	}
}
