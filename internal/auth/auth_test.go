package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifier_VerifyUserID(t *testing.T) {
	secret := "test-secret"
	v := NewVerifier(secret)
	userID := uuid.New()

	t.Run("valid token returns the subject claim", func(t *testing.T) {
		token := signToken(t, secret, jwt.MapClaims{"sub": userID.String(), "exp": time.Now().Add(time.Hour).Unix()})
		got, err := v.VerifyUserID(token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != userID {
			t.Errorf("got %s, want %s", got, userID)
		}
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.MapClaims{"sub": userID.String()})
		if _, err := v.VerifyUserID(token); err == nil {
			t.Error("expected error for token signed with wrong secret")
		}
	})

	t.Run("missing subject claim is rejected", func(t *testing.T) {
		token := signToken(t, secret, jwt.MapClaims{})
		if _, err := v.VerifyUserID(token); err == nil {
			t.Error("expected error for missing sub claim")
		}
	})

	t.Run("non-uuid subject claim is rejected", func(t *testing.T) {
		token := signToken(t, secret, jwt.MapClaims{"sub": "not-a-uuid"})
		if _, err := v.VerifyUserID(token); err == nil {
			t.Error("expected error for non-uuid sub claim")
		}
	})

	t.Run("malformed token is rejected", func(t *testing.T) {
		if _, err := v.VerifyUserID("not.a.jwt"); err == nil {
			t.Error("expected error for malformed token")
		}
	})
}

func TestMiddleware(t *testing.T) {
	secret := "test-secret"
	v := NewVerifier(secret)
	userID := uuid.New()
	validToken := signToken(t, secret, jwt.MapClaims{"sub": userID.String()})

	var capturedUserID uuid.UUID
	var capturedOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, capturedOK = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(v)(next)

	t.Run("authorization header", func(t *testing.T) {
		capturedOK = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !capturedOK || capturedUserID != userID {
			t.Error("expected user id to be set in context")
		}
	})

	t.Run("session cookie fallback", func(t *testing.T) {
		capturedOK = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: validToken})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !capturedOK || capturedUserID != userID {
			t.Error("expected user id to be set in context from cookie")
		}
	})

	t.Run("missing credentials is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})
}

func TestOptionalMiddleware(t *testing.T) {
	secret := "test-secret"
	v := NewVerifier(secret)
	userID := uuid.New()
	validToken := signToken(t, secret, jwt.MapClaims{"sub": userID.String()})

	var capturedUserID uuid.UUID
	var capturedOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, capturedOK = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := OptionalMiddleware(v)(next)

	t.Run("valid token sets the caller id", func(t *testing.T) {
		capturedOK = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !capturedOK || capturedUserID != userID {
			t.Error("expected user id to be set in context")
		}
	})

	t.Run("missing credentials still proceeds, anonymously", func(t *testing.T) {
		capturedOK = true
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if capturedOK {
			t.Error("expected no user id in context for an anonymous request")
		}
	})

	t.Run("invalid token still proceeds, anonymously", func(t *testing.T) {
		capturedOK = true
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if capturedOK {
			t.Error("expected no user id in context for an invalid token")
		}
	})
}
