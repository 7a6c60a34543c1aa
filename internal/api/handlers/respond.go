package handlers

import (
	"errors"
	"io"
	"net/http"

	"catering-planner/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WriteError 將錯誤轉為 API 錯誤響應；5xx 才記錄為 error
func WriteError(c *gin.Context, err error) {
	ce := common.ToCustomError(err)
	resp := common.ErrorResponse{
		Code:    ce.Code,
		Message: ce.Message,
	}
	if ce.Err != nil && ce.Status < http.StatusInternalServerError {
		resp.Details = ce.Err.Error()
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.String("code", ce.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
	}
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogDebug("請求被拒絕", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, resp)
}

// BindJSON 解析請求 JSON；失敗時已寫入 400 並回傳 false
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(c, common.NewError(common.ErrCodeRequestTooLarge, "請求內容過大", http.StatusRequestEntityTooLarge, err))
			return false
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		WriteError(c, common.NewError(common.ErrCodeInvalidRequest, "請求格式無效", http.StatusBadRequest, err))
		return false
	}
	return true
}
