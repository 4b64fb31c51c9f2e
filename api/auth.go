package api

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/leenicide/bread-made-easy/adapters/oidc"
	"github.com/leenicide/bread-made-easy/adapters/session"
)

const COOKIE_USERNAME = "username"

// ssoIdentity extracts the display name and email address from a
// verified ID token. Providers that omit the profile scope leave Name
// empty, so the email doubles as the username.
func ssoIdentity(token *oidc.IDToken) (username, email string) {
	email = token.Email.Email
	username = token.Name
	if username == "" {
		username = email
	}
	return username, email
}

// SSOLogin redirects the browser to the provider's login page. The
// state and nonce live in the server side session until the callback.
func (impl *ServerImpl) SSOLogin(c *gin.Context) {
	const op = "SSOLogin"
	provider, ok := impl.oidcProviders[c.Param("provider")]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	redirectURL := c.Query("redirectUrl")
	if redirectURL == "" {
		abortBadRequest(c, "redirectUrl is required")
		return
	}
	state, err := generateID("st")
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	nonce, err := generateID("n")
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	sess, err := session.GetSession(c)
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	sess.Set(SESSION_KEY_REQUEST_STATE, state)
	sess.Set(SESSION_KEY_REQUEST_NONCE, nonce)
	sess.Set(SESSION_KEY_REDIRECT_URL, redirectURL)
	sess.Set(SESSION_KEY_URL_BEFORE_LOGIN, c.Query("from"))
	if err := sess.Save(); err != nil {
		abortInternal(c, op, err)
		return
	}
	c.Redirect(http.StatusFound, provider.AuthURL(state, nonce, redirectURL, []string{"email", "openid", "profile"}))
}

// SSOCallback exchanges the authorization code, links or creates the
// local account and sets the signed access token cookie.
func (impl *ServerImpl) SSOCallback(c *gin.Context) {
	const op = "SSOCallback"
	providerName := c.Param("provider")
	provider, ok := impl.oidcProviders[providerName]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	sess, err := session.GetSession(c)
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	verifier := provider.NewExchangeVerifier(sess.Get(SESSION_KEY_REQUEST_STATE), sess.Get(SESSION_KEY_REQUEST_NONCE))
	token, err := provider.Exchange(c.Request.Context(), verifier, c.Query("code"), c.Query("state"), sess.Get(SESSION_KEY_REDIRECT_URL))
	if errors.Is(err, oidc.ErrStateMismatch) || errors.Is(err, oidc.ErrNonceMismatch) {
		c.Status(http.StatusBadRequest)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	username, email := ssoIdentity(&token.IDToken)
	user, err := impl.store.FindOrCreateBySSOIdentity(c.Request.Context(), providerName, token.IDToken.Sub, username, email)
	if err != nil {
		abortInternal(c, op, err)
		return
	}

	accessToken := jwt.NewWithClaims(&jwt.SigningMethodEd25519{}, JWT{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(impl.config.Auth.ExpireDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    impl.config.Auth.Issuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			Audience:  []string{impl.config.Auth.Audience},
		},
	})
	accessTokenString, err := accessToken.SignedString(impl.config.Auth.PrivateKey)
	if err != nil {
		abortInternal(c, op, err)
		return
	}

	urlBeforeLogin := sess.Get(SESSION_KEY_URL_BEFORE_LOGIN)
	sess.Delete(SESSION_KEY_REQUEST_STATE)
	sess.Delete(SESSION_KEY_REQUEST_NONCE)
	sess.Delete(SESSION_KEY_REDIRECT_URL)
	sess.Delete(SESSION_KEY_URL_BEFORE_LOGIN)
	if err := sess.Save(); err != nil {
		slog.Warn("Fail to clear login session", slog.String("op", op), slog.Any("error", err))
	}

	maxAge := int(impl.config.Auth.ExpireDuration / time.Second)
	c.SetCookie(COOKIE_ACCESS_TOKEN, accessTokenString, maxAge, "/", "", true, true)
	c.SetCookie(COOKIE_USERNAME, base64.StdEncoding.EncodeToString([]byte(user.Username)), maxAge, "/", "", true, false)
	if urlBeforeLogin != "" {
		c.Redirect(http.StatusFound, urlBeforeLogin)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "role": user.Role})
}

// Logout only clears the cookies without revoking the token.
func (impl *ServerImpl) Logout(c *gin.Context) {
	c.SetCookie(COOKIE_ACCESS_TOKEN, "", -1, "/", "", true, true)
	c.SetCookie(COOKIE_USERNAME, "", -1, "/", "", true, false)
	c.Status(http.StatusOK)
}
