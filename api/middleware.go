package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leenicide/bread-made-easy/models"
)

const (
	COOKIE_ACCESS_TOKEN = "access_token"
	CONTEXT_KEY_CLAIMS  = "bme-auth-claims"
)

// accessToken pulls the token from the cookie, falling back to an
// Authorization bearer header for non-browser clients.
func accessToken(c *gin.Context) string {
	if token, err := c.Cookie(COOKIE_ACCESS_TOKEN); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return rest
	}
	return ""
}

// ResolveAuth parses the access token when one is present and stores
// the claims for handlers that adapt their response to the caller.
// Missing or invalid tokens pass through anonymously.
func (impl *ServerImpl) ResolveAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := accessToken(c); token != "" {
			if claims, err := ParseAndValidateJWT(token, impl.config.Auth.PrivateKey); err == nil {
				c.Set(CONTEXT_KEY_CLAIMS, claims)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid access token and stores
// the parsed claims on the request context.
func (impl *ServerImpl) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "RequireAuth"
		if CurrentClaims(c) != nil {
			c.Next()
			return
		}
		token := accessToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims, err := ParseAndValidateJWT(token, impl.config.Auth.PrivateKey)
		if err != nil {
			slog.Error("Fail to parse and validate JWT", slog.String("op", op), slog.Any("error", err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(CONTEXT_KEY_CLAIMS, claims)
		c.Next()
	}
}

// RequireAdmin runs after RequireAuth and rejects non-admin users.
func (impl *ServerImpl) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil || claims.Role != models.RoleAdmin {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// CurrentClaims returns the claims stored by RequireAuth, or nil.
func CurrentClaims(c *gin.Context) *JWT {
	value, ok := c.Get(CONTEXT_KEY_CLAIMS)
	if !ok {
		return nil
	}
	claims, ok := value.(*JWT)
	if !ok {
		return nil
	}
	return claims
}

// currentUserID parses the subject of the authenticated claims.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	claims := CurrentClaims(c)
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
