package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by JWTAuth.
const (
	KeyEmail   = "user_email"
	KeyName    = "user_name"
	KeyIsAdmin = "is_admin"
	KeySID     = "sid"
)

const renewWindow = 24 * time.Hour

// AccountLookup reports whether the account behind email still exists and
// whether it currently holds the admin role.
type AccountLookup func(ctx context.Context, email string) (exists, admin bool, err error)

type Claims struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
	SID   string `json:"sid"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for email valid for ttl.
func IssueToken(secret []byte, email, name string, admin bool, sid string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  name,
		Admin: admin,
		SID:   sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// JWTAuth verifies the bearer token. When lookup is set, a token near expiry
// is renewed only for an account that still exists, carrying its current role.
func JWTAuth(secret []byte, ttl time.Duration, lookup AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claims, err := ParseToken(secret, auth[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// renew when less than a day is left
		if claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) < renewWindow {
			admin, renew := claims.Admin, true
			if lookup != nil {
				exists, current, err := lookup(c.Request.Context(), claims.Subject)
				switch {
				case err != nil:
					renew = false
				case !exists:
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
					return
				default:
					admin = current
				}
			}
			if renew {
				if fresh, err := IssueToken(secret, claims.Subject, claims.Name, admin, claims.SID, ttl); err == nil {
					c.Header("X-New-Token", fresh)
				}
			}
		}

		c.Set(KeyEmail, claims.Subject)
		c.Set(KeyName, claims.Name)
		c.Set(KeyIsAdmin, claims.Admin)
		c.Set(KeySID, claims.SID)
		c.Next()
	}
}

// RequireAdmin must run after JWTAuth. With a lookup the account's current
// role is checked on every request; without one the token claim is used.
func RequireAdmin(lookup AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := c.GetBool(KeyIsAdmin)
		if lookup != nil {
			exists, current, err := lookup(c.Request.Context(), c.GetString(KeyEmail))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "user store unavailable"})
				return
			}
			if !exists {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
				return
			}
			admin = current
			c.Set(KeyIsAdmin, current)
		}
		if !admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
