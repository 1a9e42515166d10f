package utils

import "github.com/gin-gonic/gin"

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

// JSONError writes {"error": {"code", "message", ...details}}.
func JSONError(c *gin.Context, status int, code, message string, details gin.H) {
	body := gin.H{"code": code, "message": message}
	for k, v := range details {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
