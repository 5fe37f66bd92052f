package httperr

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status    int       `json:"-"`
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Detail    any       `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := ErrorResponse(status, msg)
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

func ErrorResponse(status int, msg string) Response {
	return Response{
		Status:    status,
		Success:   false,
		Error:     msg,
		Timestamp: time.Now().UTC(),
	}
}

func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Response{
		Status:    status,
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}
