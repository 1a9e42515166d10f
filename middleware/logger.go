package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger writes one line per request. Server errors are flagged so they stand
// out next to the service logs.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		prefix := ""
		if status >= 500 {
			prefix = "❌ "
		}
		actor := ActorFrom(c)
		log.Printf("%s%s %s %d %s ip=%s actor=%q",
			prefix, c.Request.Method, c.Request.URL.Path, status, latency.String(), c.ClientIP(), actor)
	}
}
