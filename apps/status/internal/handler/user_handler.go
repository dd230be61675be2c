package handler

import (
	"context"
	"errors"

	"StatusServer/apps/status/internal/dto"
	"StatusServer/apps/status/internal/middleware"
	"StatusServer/apps/status/internal/service"
	"StatusServer/consts"
	"StatusServer/model"
	"StatusServer/pkg/ctxmeta"
	"StatusServer/pkg/logger"
	"StatusServer/pkg/result"
	"StatusServer/pkg/util"

	"github.com/gin-gonic/gin"
)

// ProfileService 注册与资料读取
type ProfileService interface {
	Register(ctx context.Context, userName, firstName, lastName string) (*model.Profile, error)
	GetCurrentProfile(ctx context.Context, userName string) (*model.Profile, error)
}

// ProfileOrchestrator 需要通知好友的资料写操作
type ProfileOrchestrator interface {
	UpdateProfile(ctx context.Context, userName string, patch model.ProfilePatch) (*model.Profile, error)
	DeleteUser(ctx context.Context, userName string) error
}

// UserHandler 用户资料处理器
type UserHandler struct {
	profiles ProfileService
	orch     ProfileOrchestrator
}

// NewUserHandler 创建用户资料处理器
func NewUserHandler(profiles ProfileService, orch ProfileOrchestrator) *UserHandler {
	return &UserHandler{
		profiles: profiles,
		orch:     orch,
	}
}

// Register 注册资料并签发绑定设备的 token
// @Router /api/v1/public/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	profile, err := h.profiles.Register(ctx, req.UserName, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			result.Fail(c, nil, consts.CodeUserAlreadyExist)
			return
		}
		if errors.Is(err, service.ErrInvalidState) {
			result.Fail(c, nil, consts.CodeParamError)
			return
		}
		failWithError(ctx, c, "注册用户失败", err)
		return
	}

	token, err := util.GenerateToken(profile.UserName, req.DeviceID)
	if err != nil {
		logger.Error(ctx, "签发 token 失败",
			logger.String("user_name", profile.UserName),
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, &dto.RegisterResponse{
		Profile: profile,
		Token:   token,
	})
}

// GetProfile 当前用户资料
// @Router /api/v1/auth/user [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userName, _ := middleware.GetUserName(c)

	profile, err := h.profiles.GetCurrentProfile(ctx, userName)
	if err != nil {
		failWithError(ctx, c, "查询用户资料失败", err)
		return
	}
	result.Success(c, profile)
}

// UpdateProfile 局部更新资料，成功后推送给在线好友
// @Router /api/v1/auth/user [patch]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userName, _ := middleware.GetUserName(c)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	profile, err := h.orch.UpdateProfile(ctx, userName, req.ToPatch())
	if err != nil {
		failWithError(ctx, c, "更新用户资料失败", err)
		return
	}
	result.Success(c, profile)
}

// DeleteUser 注销当前用户，解除全部关系
// @Router /api/v1/auth/user [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userName, _ := middleware.GetUserName(c)

	if err := h.orch.DeleteUser(ctx, userName); err != nil {
		failWithError(ctx, c, "注销用户失败", err)
		return
	}
	result.Success(c, nil)
}
