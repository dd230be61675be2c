// Package ctxmeta 统一管理请求/连接级别的上下文元数据（trace_id、用户、设备、连接）。
package ctxmeta

import (
	"context"

	"github.com/gin-gonic/gin"
)

type ctxKey string

const (
	traceIDKey  ctxKey = "trace_id"
	userNameKey ctxKey = "user_name"
	deviceIDKey ctxKey = "device_id"
	clientIPKey ctxKey = "client_ip"
	connIDKey   ctxKey = "connection_id"
)

// Gin 上下文中使用的 key，与中间件保持一致。
const (
	GinTraceID  = "trace_id"
	GinUserName = "user_name"
	GinDeviceID = "device_id"
	GinClientIP = "client_ip"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func WithUserName(ctx context.Context, userName string) context.Context {
	return context.WithValue(ctx, userNameKey, userName)
}

func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey, deviceID)
}

func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, clientIPKey, clientIP)
}

func WithConnectionID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connIDKey, connID)
}

func TraceID(ctx context.Context) string      { return stringValue(ctx, traceIDKey) }
func UserName(ctx context.Context) string     { return stringValue(ctx, userNameKey) }
func DeviceID(ctx context.Context) string     { return stringValue(ctx, deviceIDKey) }
func ClientIP(ctx context.Context) string     { return stringValue(ctx, clientIPKey) }
func ConnectionID(ctx context.Context) string { return stringValue(ctx, connIDKey) }

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// TraceIDFromGin 读取 TraceLogger 中间件写入的 trace_id。
func TraceIDFromGin(c *gin.Context) string {
	return c.GetString(GinTraceID)
}

// FromGin 从 gin.Context 构造业务层使用的 context.Context。
// 会把 trace_id、user_name、device_id、client_ip 一并带上，便于日志串联。
func FromGin(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if v := c.GetString(GinTraceID); v != "" {
		ctx = WithTraceID(ctx, v)
	}
	if v := c.GetString(GinUserName); v != "" {
		ctx = WithUserName(ctx, v)
	}
	if v := c.GetString(GinDeviceID); v != "" {
		ctx = WithDeviceID(ctx, v)
	}
	if v := c.GetString(GinClientIP); v != "" {
		ctx = WithClientIP(ctx, v)
	}
	return ctx
}

// Detach 复制 parent 中的元数据到新的根 context。
// 用于异步任务：父请求结束被取消后，子任务仍能携带 trace_id 输出日志。
func Detach(parent context.Context) context.Context {
	ctx := context.Background()
	if parent == nil {
		return ctx
	}
	for _, key := range []ctxKey{traceIDKey, userNameKey, deviceIDKey, clientIPKey, connIDKey} {
		if v := stringValue(parent, key); v != "" {
			ctx = context.WithValue(ctx, key, v)
		}
	}
	return ctx
}
