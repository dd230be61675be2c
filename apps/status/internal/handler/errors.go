package handler

import (
	"context"
	"errors"

	"StatusServer/apps/status/internal/service"
	"StatusServer/consts"
	"StatusServer/pkg/logger"
	"StatusServer/pkg/result"

	"github.com/gin-gonic/gin"
)

// errorCode 业务错误映射为响应码；非业务错误统一为内部错误
func errorCode(err error) int32 {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return consts.CodeUserNotFound
	case errors.Is(err, service.ErrAlreadyExists):
		return consts.CodeFriendshipExists
	case errors.Is(err, service.ErrConflict):
		return consts.CodeFriendshipConflict
	case errors.Is(err, service.ErrInvalidState):
		return consts.CodeFriendshipInvalidState
	case errors.Is(err, service.ErrUnavailable):
		return consts.CodeServiceUnavailable
	default:
		return consts.CodeInternalError
	}
}

// failWithError 写失败响应，只有服务端错误记录日志
func failWithError(ctx context.Context, c *gin.Context, msg string, err error) {
	code := errorCode(err)
	if code == consts.CodeInternalError || code == consts.CodeServiceUnavailable {
		logger.Error(ctx, msg, logger.ErrorField("error", err))
	}
	result.Fail(c, nil, code)
}
