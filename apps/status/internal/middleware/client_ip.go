package middleware

import (
	"net"
	"strings"

	"StatusServer/pkg/ctxmeta"

	"github.com/gin-gonic/gin"
)

const (
	headerXRealIP       = "X-Real-IP"
	headerXForwardedFor = "X-Forwarded-For"
)

// GetClientIP 客户端真实 IP
// 优先级：X-Real-IP > X-Forwarded-For 首个地址 > RemoteAddr
func GetClientIP(c *gin.Context) string {
	if ip := strings.TrimSpace(c.GetHeader(headerXRealIP)); net.ParseIP(ip) != nil {
		return ip
	}

	if xff := c.GetHeader(headerXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}

	return c.ClientIP()
}

// ClientIPMiddleware 把客户端 IP 写入 gin.Context，供日志与限流使用
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxmeta.GinClientIP, GetClientIP(c))
		c.Next()
	}
}
