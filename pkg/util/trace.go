package util

import (
	"StatusServer/pkg/ctxmeta"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderXRequestID = "X-Request-ID"

// TraceLogger 追踪中间件，生成或获取 trace_id 并存入 Gin 上下文
func TraceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 优先使用上游（Nginx/调用方）透传的请求 ID
		traceID := c.GetHeader(HeaderXRequestID)
		if traceID == "" {
			traceID = NewUUID()
		}

		c.Set(ctxmeta.GinTraceID, traceID)
		// 回写响应头，方便客户端拿着 ID 排查问题
		c.Header(HeaderXRequestID, traceID)

		c.Next()
	}
}

// NewUUID 生成新的 UUID
func NewUUID() string {
	return uuid.New().String()
}
