package handler

import (
	"errors"
	"net/http"

	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// HandleError 按错误分类返回对应状态码
func HandleError(c *gin.Context, err error) {
	kind := model.KindOf(err)
	status := StatusForKind(kind)
	if status == http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		ErrorResponse(c, status, "internal error")
		return
	}
	c.JSON(status, Response{
		Success: false,
		Message: err.Error(),
		Kind:    string(kind),
	})
}

// StatusForKind 错误分类到 HTTP 状态码
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindConfiguration:
		return http.StatusBadRequest
	case model.KindAuthorization:
		return http.StatusForbidden
	case model.KindState:
		return http.StatusConflict
	case model.KindCapacity:
		return http.StatusTooManyRequests
	case model.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var errMissingCaller = errors.New("missing or invalid " + CallerHeader + " header")
