package controller_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codearena/internal/match/controller"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestParseToken(t *testing.T) {
	t.Parallel()
	identity := controller.NewIdentity(controller.IdentityConfig{JWTSecret: testSecret})

	t.Run("username-claim", func(t *testing.T) {
		t.Parallel()
		raw := signToken(t, testSecret, jwt.MapClaims{"username": "alice"})
		got, err := identity.Parse(raw)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if got != "alice" {
			t.Fatalf("expected alice, got %q", got)
		}
	})

	t.Run("subject-fallback", func(t *testing.T) {
		t.Parallel()
		raw := signToken(t, testSecret, jwt.MapClaims{"sub": "bob"})
		got, err := identity.Parse(raw)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if got != "bob" {
			t.Fatalf("expected bob, got %q", got)
		}
	})

	t.Run("wrong-secret", func(t *testing.T) {
		t.Parallel()
		raw := signToken(t, "other-secret", jwt.MapClaims{"username": "alice"})
		if _, err := identity.Parse(raw); err == nil {
			t.Fatal("expected rejection for wrong secret")
		}
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		raw := signToken(t, testSecret, jwt.MapClaims{
			"username": "alice",
			"exp":      time.Now().Add(-time.Hour).Unix(),
		})
		if _, err := identity.Parse(raw); err == nil {
			t.Fatal("expected rejection for expired token")
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		if _, err := identity.Parse(""); err == nil {
			t.Fatal("expected rejection for empty token")
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	identity := controller.NewIdentity(controller.IdentityConfig{JWTSecret: testSecret})

	router := gin.New()
	router.GET("/protected", identity.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("username"))
	})

	t.Run("bearer-header", func(t *testing.T) {
		t.Parallel()
		raw := signToken(t, testSecret, jwt.MapClaims{"username": "alice"})
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != "alice" {
			t.Fatalf("expected 200/alice, got %d/%q", rec.Code, rec.Body.String())
		}
	})

	t.Run("token-query", func(t *testing.T) {
		t.Parallel()
		raw := signToken(t, testSecret, jwt.MapClaims{"username": "bob"})
		req := httptest.NewRequest(http.MethodGet, "/protected?token="+raw, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != "bob" {
			t.Fatalf("expected 200/bob, got %d/%q", rec.Code, rec.Body.String())
		}
	})

	t.Run("missing-token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
