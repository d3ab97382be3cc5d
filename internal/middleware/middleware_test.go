package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitvote/internal/auth"
	"bitvote/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(config.JWTConfig{Secret: "test-secret-key-for-testing-only", TokenTTL: time.Hour})
	require.NoError(t, err)
	return issuer
}

func newRouter(issuer *auth.TokenIssuer, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	chain := append([]gin.HandlerFunc{MemberAuth(issuer, "code")}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userID":    c.GetString(ContextUserID),
			"sessionID": c.GetString(ContextSessionID),
			"role":      c.GetString(ContextUserRole),
		})
	})
	router.GET("/sessions/:code", chain...)
	return router
}

func serve(router *gin.Engine, url, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestMemberAuth_MissingAuthHeader tests the middleware with no token at all
func TestMemberAuth_MissingAuthHeader(t *testing.T) {
	w := serve(newRouter(newIssuer(t)), "/sessions/ABC123", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestMemberAuth_InvalidAuthFormat tests the middleware with invalid Bearer format
func TestMemberAuth_InvalidAuthFormat(t *testing.T) {
	w := serve(newRouter(newIssuer(t)), "/sessions/ABC123", "InvalidFormat")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestMemberAuth_InvalidToken tests the middleware with an invalid token
func TestMemberAuth_InvalidToken(t *testing.T) {
	w := serve(newRouter(newIssuer(t)), "/sessions/ABC123", "Bearer invalid_token_xyz")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMemberAuth_ValidHeaderToken(t *testing.T) {
	issuer := newIssuer(t)
	token, err := issuer.GenerateMemberToken("alice", "ABC123", auth.RoleHost)
	require.NoError(t, err)

	w := serve(newRouter(issuer), "/sessions/ABC123", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userID":"alice"`)
	assert.Contains(t, w.Body.String(), `"role":"host"`)
}

func TestMemberAuth_QueryToken(t *testing.T) {
	issuer := newIssuer(t)
	token, err := issuer.GenerateMemberToken("bob", "ABC123", auth.RoleMember)
	require.NoError(t, err)

	w := serve(newRouter(issuer), "/sessions/ABC123?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMemberAuth_OtherSessionRejected(t *testing.T) {
	issuer := newIssuer(t)
	token, err := issuer.GenerateMemberToken("alice", "ABC123", auth.RoleHost)
	require.NoError(t, err)

	w := serve(newRouter(issuer), "/sessions/XYZ789", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole(t *testing.T) {
	issuer := newIssuer(t)
	router := newRouter(issuer, RequireRole(auth.RoleHost))

	host, err := issuer.GenerateMemberToken("alice", "ABC123", auth.RoleHost)
	require.NoError(t, err)
	member, err := issuer.GenerateMemberToken("bob", "ABC123", auth.RoleMember)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(router, "/sessions/ABC123", "Bearer "+host).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "/sessions/ABC123", "Bearer "+member).Code)
}

func TestRequireRole_NoRoleInContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/x", RequireRole(auth.RoleHost), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(3)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))

	clock = clock.Add(20 * time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/calls", NewIPRateLimiter(1).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/calls", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
