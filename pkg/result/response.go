package result

import (
	"net/http"

	"StatusServer/consts"
	"StatusServer/pkg/ctxmeta"

	"github.com/gin-gonic/gin"
)

// Response 响应结构体
type Response struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	TraceId string `json:"trace_id"`
}

func build(c *gin.Context, data any, message string, code int32) Response {
	if message == "" {
		message = consts.GetMessage(code)
	}
	return Response{
		Code:    code,
		Message: message,
		Data:    data,
		TraceId: c.GetString(ctxmeta.GinTraceID),
	}
}

// Result 返回响应（业务错误统一 HTTP 200，由 code 区分）
func Result(c *gin.Context, data any, message string, code int32) {
	c.JSON(http.StatusOK, build(c, data, message, code))
}

// Success 返回成功响应
func Success(c *gin.Context, data any) {
	Result(c, data, "", consts.CodeSuccess)
}

// Fail 返回失败响应
func Fail(c *gin.Context, data any, code int32) {
	Result(c, data, "", code)
}

// FailWithMessage 返回失败响应并自定义消息
func FailWithMessage(c *gin.Context, data any, message string, code int32) {
	Result(c, data, message, code)
}

// Abort 中断请求并以指定 HTTP 状态返回（用于鉴权、限流等中间件）
func Abort(c *gin.Context, httpStatus int, code int32) {
	c.AbortWithStatusJSON(httpStatus, build(c, nil, "", code))
}
