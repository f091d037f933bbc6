// Package controller exposes the coordinator over HTTP and websocket.
package controller

import (
	"context"
	"fmt"
	"strings"

	"codearena/pkg/contextkey"
	apperr "codearena/pkg/errors"
	"codearena/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityConfig configures claim verification. Token issuance lives in the
// surrounding platform; this service only verifies.
type IdentityConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
}

type identityClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Identity struct {
	secret []byte
	issuer string
}

func NewIdentity(cfg IdentityConfig) *Identity {
	return &Identity{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer}
}

// Parse verifies the token and returns the username claim, falling back to
// the subject.
func (i *Identity) Parse(raw string) (string, error) {
	if raw == "" || len(i.secret) == 0 {
		return "", apperr.New(apperr.Unauthorized)
	}
	parsed, err := jwt.ParseWithClaims(raw, &identityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", apperr.New(apperr.Unauthorized)
	}
	claims, ok := parsed.Claims.(*identityClaims)
	if !ok {
		return "", apperr.New(apperr.Unauthorized)
	}
	if i.issuer != "" && claims.Issuer != i.issuer {
		return "", apperr.New(apperr.Unauthorized)
	}
	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	if username == "" {
		return "", apperr.New(apperr.Unauthorized)
	}
	return username, nil
}

const usernameKey = "username"

// Middleware authenticates the request from the Authorization header or the
// token query parameter and stores the username for downstream handlers.
func (i *Identity) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			raw = c.Query("token")
		}
		username, err := i.Parse(raw)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		c.Set(usernameKey, username)
		ctx := context.WithValue(c.Request.Context(), contextkey.Username, username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func currentUsername(c *gin.Context) string {
	return c.GetString(usernameKey)
}
