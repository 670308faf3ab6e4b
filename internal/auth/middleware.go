package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "user_id"
	usernameKey = "username"
)

// Middleware identifies the user from the auth cookie or a Bearer header.
// Anonymous requests pass through.
func Middleware(tokens *Tokens, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(cookieName)
		}

		if token != "" {
			if claims, err := tokens.Parse(token); err == nil {
				c.Set(userIDKey, claims.UserID)
				c.Set(usernameKey, claims.Username)
			}
		}

		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// UserID returns the signed-in user's id, if any.
func UserID(c *gin.Context) (int64, bool) {
	id := c.GetInt64(userIDKey)
	return id, id > 0
}

func Username(c *gin.Context) string {
	return c.GetString(usernameKey)
}

// RequireUser redirects anonymous visitors to loginPath, remembering where
// they were going.
func RequireUser(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetCookie stores the token in an HttpOnly cookie.
func SetCookie(c *gin.Context, name, token string, tokens *Tokens, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, token, int(tokens.TTL().Seconds()), "/", "", secure, true)
}

func ClearCookie(c *gin.Context, name string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", secure, true)
}
