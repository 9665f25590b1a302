// middleware.go - CORS and request id middleware

package api

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/expense_ai_gateway/internal/common"
)

// RequestIDHeader carries the id of every request in the response.
const RequestIDHeader = "X-Request-ID"

// CORS allows the configured origins. A "*" entry allows any origin.
func CORS(allowed []string) gin.HandlerFunc {
	allowAll := slices.Contains(allowed, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(allowed, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID attaches a fresh request context to every request. Ids sent by
// the client are ignored.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := common.NewRequestContext(c.FullPath())
		c.Writer.Header().Set(RequestIDHeader, rc.RequestID)
		c.Request = c.Request.WithContext(common.WithRequestContext(c.Request.Context(), rc))
		c.Next()

		rc.Logger().Debug().
			Str("method", c.Request.Method).
			Int("status", c.Writer.Status()).
			Msg("request served")
	}
}
