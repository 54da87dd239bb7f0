package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth.
const (
	KeySubject = "sub"
	KeyUserID  = "user_id"
	KeyRole    = "role"
	KeyEmail   = "email"
)

// Caller is the authenticated user behind a request.
type Caller struct {
	UserID int64
	Role   string
}

// CallerFrom returns the caller JWTAuth stored on c. ok is false when the
// route is not behind JWTAuth.
func CallerFrom(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(KeyUserID)
	if !ok {
		return Caller{}, false
	}
	id, ok := v.(int64)
	if !ok {
		return Caller{}, false
	}
	return Caller{UserID: id, Role: c.GetString(KeyRole)}, true
}

func JWTAuth(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := issuer.ParseValidate(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}
		c.Set(KeySubject, claims.Sub)
		c.Set(KeyUserID, userID)
		c.Set(KeyRole, claims.Role)
		c.Set(KeyEmail, claims.Email)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		v, _ := c.Get(KeyRole)
		role, _ := v.(string)
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
