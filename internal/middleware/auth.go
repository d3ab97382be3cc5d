package middleware

import (
	"net/http"
	"strings"

	"bitvote/internal/auth"

	"github.com/gin-gonic/gin"
)

// Context keys set by MemberAuth.
const (
	ContextUserID    = "userID"
	ContextSessionID = "sessionID"
	ContextUserRole  = "userRole"
)

// TokenValidator validates member tokens.
type TokenValidator interface {
	ValidateMemberToken(token string) (*auth.MemberClaims, error)
}

// MemberAuth accepts a member token from the Authorization header or, for
// websocket upgrades, the token query parameter. When sessionParam is set the
// token must belong to the session named by that route parameter.
func MemberAuth(validator TokenValidator, sessionParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed member token"})
			return
		}

		claims, err := validator.ValidateMemberToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if sessionParam != "" && !strings.EqualFold(c.Param(sessionParam), claims.SessionID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is not valid for this session"})
			return
		}

		c.Set(ContextUserID, claims.UserID())
		c.Set(ContextSessionID, claims.SessionID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}
