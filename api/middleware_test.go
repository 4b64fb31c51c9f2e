package api

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leenicide/bread-made-easy/models"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, ed25519.PrivateKey) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	impl := &ServerImpl{config: ServerConfig{Auth: AuthConfig{PrivateKey: key}}}
	router := gin.New()
	authed := router.Group("", impl.RequireAuth())
	authed.GET("/me", func(c *gin.Context) {
		claims := CurrentClaims(c)
		c.JSON(http.StatusOK, gin.H{"username": claims.Username})
	})
	authed.GET("/admin", impl.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, key
}

func TestRequireAuth(t *testing.T) {
	router, key := setupAuthRouter(t)

	t.Run("rejects missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: COOKIE_ACCESS_TOKEN, Value: "garbage"})
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("accepts token from cookie", func(t *testing.T) {
		claims := testClaims(time.Hour)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: COOKIE_ACCESS_TOKEN, Value: signTestToken(t, key, claims)})
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "jordan")
	})

	t.Run("accepts token from bearer header", func(t *testing.T) {
		claims := testClaims(time.Hour)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, key, claims))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: COOKIE_ACCESS_TOKEN, Value: signTestToken(t, key, testClaims(-time.Hour))})
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	router, key := setupAuthRouter(t)

	t.Run("allows admins", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: COOKIE_ACCESS_TOKEN, Value: signTestToken(t, key, testClaims(time.Hour))})
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects plain users", func(t *testing.T) {
		claims := testClaims(time.Hour)
		claims.Role = models.RoleUser
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: COOKIE_ACCESS_TOKEN, Value: signTestToken(t, key, claims)})
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
