// Package session identifies browser sessions and carries flash messages
// between requests.
package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CookieName = "sid"
	contextKey = "session_id"
)

// Middleware makes sure every request has a session id, issuing a new
// cookie when the browser sent none or an invalid one.
func Middleware(ttl time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(CookieName)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, sid, int(ttl/time.Second), "/", "", secure, true)
		c.Set(contextKey, sid)
		c.Next()
	}
}

// ID returns the session id set by Middleware.
func ID(c *gin.Context) string {
	return c.GetString(contextKey)
}
