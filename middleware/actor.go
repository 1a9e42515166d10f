package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	actorKey     = "actor"
	defaultActor = "system"
)

// Claims is the part of the staff token the booking engine cares about.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Name picks the most readable identity the token carries.
func (c *Claims) Name() string {
	switch {
	case c.Username != "":
		return c.Username
	case c.Email != "":
		return c.Email
	default:
		return c.Subject
	}
}

func ParseToken(tokenStr, secret string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Actor records who is calling so bookings and their audit rows carry a name.
// With a secret, a bearer token must verify or the request is rejected; a
// missing token falls back to "system". Without a secret tokens are read
// unverified, which is only meant for local development.
func Actor(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.Set(actorKey, defaultActor)
			c.Next()
			return
		}
		tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

		var claims *Claims
		if secret != "" {
			parsed, err := ParseToken(tok, secret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{
						"code":    "error.invalidToken",
						"message": "bearer token is invalid or expired",
					},
				})
				return
			}
			claims = parsed
		} else {
			claims = &Claims{}
			if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
				claims = &Claims{}
			}
		}

		name := claims.Name()
		if name == "" {
			name = defaultActor
		}
		c.Set(actorKey, name)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// ActorFrom returns the caller name set by Actor, or "system".
func ActorFrom(c *gin.Context) string {
	if v, ok := c.Get(actorKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultActor
}
