package middleware

import (
	"net/http"
	"runtime/debug"

	"StatusServer/consts"
	"StatusServer/pkg/ctxmeta"
	"StatusServer/pkg/logger"
	"StatusServer/pkg/result"

	"github.com/gin-gonic/gin"
)

// GinRecovery 捕获 handler panic，记录日志并返回 500
func GinRecovery(stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				fields := []logger.Field{
					logger.Any("panic", r),
					logger.String("method", c.Request.Method),
					logger.String("path", c.Request.URL.Path),
				}
				if stack {
					fields = append(fields, logger.String("stack", string(debug.Stack())))
				}
				logger.Error(ctxmeta.FromGin(c), "请求处理 panic", fields...)
				result.Abort(c, http.StatusInternalServerError, consts.CodeInternalError)
			}
		}()
		c.Next()
	}
}
