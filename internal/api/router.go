// router.go - Route table of the HTTP API

package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), CORS(allowedOrigins), RequestID())

	// Root endpoint for SSL verification
	router.GET("/", func(c *gin.Context) {
		c.String(200, "ok")
	})
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze-receipt", h.AnalyzeReceipt)
		v1.POST("/categorize", h.Categorize)
		v1.POST("/chat", h.Chat)
		v1.POST("/parse-command", h.ParseCommand)
		v1.GET("/usage", h.Usage)
		v1.GET("/audit", h.Audit)
	}
	return router
}
