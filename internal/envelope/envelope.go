// Package envelope defines the uniform wire envelope every API endpoint uses:
// {"success": bool, "data": ..., "error": "..."}. HTTP-level failures carry a
// separate {"detail": "..."} body, which clients read as a fallback message.
package envelope

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the generic response wrapper. Data stays raw so callers decode
// it into whatever payload type the endpoint returns.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ErrorBody is the body shape of non-2xx responses.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// OK writes a 200 success envelope around data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// Fail writes a success:false envelope with a business error message.
func Fail(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": false,
		"error":   message,
	})
}

// Abort writes an HTTP error with a detail body and stops the handler chain.
func Abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
