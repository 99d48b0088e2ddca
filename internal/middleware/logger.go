package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger middleware logs HTTP requests
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		user := c.GetString("user")
		if user == "" {
			user = "-"
		}

		log.Printf("[HTTP] %s %s %s %s %d %v %s",
			c.Request.Method,
			path,
			c.ClientIP(),
			user,
			c.Writer.Status(),
			time.Since(start),
			c.Errors.String(),
		)
	}
}
