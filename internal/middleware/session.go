package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionCookie     = "checkout_session"
	sessionContextKey = "checkout_session_id"
	sessionMaxAge     = 48 * 60 * 60
)

// SessionMiddleware returns middleware that assigns every browser a session
// id cookie. Server-to-server callers can pass the id in the X-Session-ID
// header instead.
func SessionMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Session-ID")
		if id == "" {
			if cookie, err := c.Cookie(sessionCookie); err == nil {
				id = cookie
			}
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, id, sessionMaxAge, "/", "", secure, true)
		c.Set(sessionContextKey, id)
		c.Next()
	}
}

// SessionID returns the session id assigned by SessionMiddleware.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}
