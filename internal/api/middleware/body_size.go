package middleware

import (
	"net/http"

	"catering-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BodySizeLimit 限制請求體大小的中間件；maxSize <= 0 時不限制
func BodySizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxSize <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxSize {
			common.LogWarn("Request body too large",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("max_size", maxSize),
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			abortWithError(c, common.ErrRequestTooLarge)
			return
		}

		// 未帶 Content-Length 的請求在讀取時才會被截斷
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// abortWithError 以統一的錯誤格式中止請求
func abortWithError(c *gin.Context, e *common.CustomError) {
	c.AbortWithStatusJSON(e.Status, common.ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
	})
}
