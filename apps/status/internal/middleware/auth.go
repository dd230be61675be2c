package middleware

import (
	"net/http"
	"strings"

	"StatusServer/consts"
	"StatusServer/pkg/ctxmeta"
	"StatusServer/pkg/result"
	"StatusServer/pkg/util"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware JWT 认证中间件
// 从 Authorization: Bearer <token> 解析身份，通过后写入 user_name / device_id
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// 客户端请求错误，属于正常业务流程，不记录日志
			result.Abort(c, http.StatusUnauthorized, consts.CodeUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			result.Abort(c, http.StatusUnauthorized, consts.CodeUnauthorized)
			return
		}

		claims, err := util.ParseToken(parts[1])
		if err != nil {
			result.Abort(c, http.StatusUnauthorized, consts.CodeInvalidToken)
			return
		}

		c.Set(ctxmeta.GinUserName, claims.UserName)
		c.Set(ctxmeta.GinDeviceID, claims.DeviceID)

		c.Next()
	}
}

// GetUserName 当前登录用户
func GetUserName(c *gin.Context) (string, bool) {
	userName := c.GetString(ctxmeta.GinUserName)
	return userName, userName != ""
}

// GetDeviceID 当前设备
func GetDeviceID(c *gin.Context) (string, bool) {
	deviceID := c.GetString(ctxmeta.GinDeviceID)
	return deviceID, deviceID != ""
}
