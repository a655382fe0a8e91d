package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ruvnet/swimguard/internal/config"
	"github.com/ruvnet/swimguard/internal/errors"
)

// Claims is the JWT payload issued to admin API callers. There is only one
// role in this system (operator), so unlike a multi-tenant API there is no
// per-user identity to carry beyond the issuer-standard fields.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueToken mints a bearer token for the admin API, signed with cfg.Secret.
func IssueToken(cfg config.JWTConfig) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ExpirationTime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

func validateToken(cfg config.JWTConfig, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewUnauthorizedError("unexpected signing method")
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.NewUnauthorizedError("invalid token")
	}
	return claims, nil
}

var publicPaths = []string{"/health", "/metrics"}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Auth validates a bearer token against cfg on every admin API request
// except the public health and metrics endpoints.
func Auth(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, errors.NewUnauthorizedError("authorization header is required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, errors.NewUnauthorizedError("expected Bearer token"))
			c.Abort()
			return
		}

		if _, err := validateToken(cfg, parts[1]); err != nil {
			apiErr := errors.WrapError(err, errors.TokenInvalid, "invalid or expired token")
			c.JSON(http.StatusUnauthorized, apiErr)
			c.Abort()
			return
		}

		c.Next()
	}
}
