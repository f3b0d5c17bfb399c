// Package auth holds the shared-key request authentication used by
// both the brain and edge APIs.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const headerName = "X-API-Key"

// presentedKey pulls the key from the header, falling back to the
// api_key query parameter. Browsers cannot set headers on a WebSocket
// upgrade, so the event stream authenticates via the query string.
func presentedKey(c *gin.Context) string {
	if key := c.GetHeader(headerName); key != "" {
		return key
	}
	return c.Query("api_key")
}

// APIKeyMiddleware rejects requests that do not carry the configured
// key. An empty configured key disables authentication; the brain and
// edge talk over a trusted link in that mode.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		key := presentedKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			slog.Warn("rejected API key", "ip", c.ClientIP(), "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Next()
	}
}
