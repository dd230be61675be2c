package dto

import "StatusServer/model"

// ==================== 用户资料相关 DTO ====================

// RegisterRequest 注册请求 DTO
type RegisterRequest struct {
	UserName  string `json:"userName" binding:"required,min=1,max=64"`  // 用户名
	FirstName string `json:"firstName" binding:"omitempty,max=64"`      // 名
	LastName  string `json:"lastName" binding:"omitempty,max=64"`       // 姓
	DeviceID  string `json:"deviceId" binding:"required,min=1,max=128"` // 设备ID，签发 token 时绑定
}

// RegisterResponse 注册响应 DTO
type RegisterResponse struct {
	Profile *model.Profile `json:"profile"` // 资料
	Token   string         `json:"token"`   // 访问令牌（同时用于 /ws 握手）
}

// UpdateProfileRequest 资料局部更新请求 DTO，未传字段保持不变
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,max=64"` // 名
	LastName  *string `json:"lastName" binding:"omitempty,max=64"`  // 姓
	Status    *string `json:"status" binding:"omitempty,max=256"`   // 个性状态
}

// ToPatch 转换为模型层的局部更新
func (r *UpdateProfileRequest) ToPatch() model.ProfilePatch {
	return model.ProfilePatch{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Status:    r.Status,
	}
}
