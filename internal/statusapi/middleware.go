package statusapi

import "github.com/gin-gonic/gin"

// securityHeaders mirrors the teacher's SecurityHeadersMiddleware: this is
// a read-only observability surface, but it still sits on the open
// internet in most deployments.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Next()
	}
}
