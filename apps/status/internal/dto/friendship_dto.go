package dto

// ==================== 好友关系相关 DTO ====================

// FriendRequestRequest 发起好友申请请求 DTO
type FriendRequestRequest struct {
	FriendUserName string `json:"friendUserName" binding:"required,min=1,max=64"` // 目标用户名
}

// FriendRespondRequest 处理好友申请请求 DTO
type FriendRespondRequest struct {
	FriendUserName string `json:"friendUserName" binding:"required,min=1,max=64"` // 申请发起方用户名
	Accept         *bool  `json:"accept" binding:"required"`                      // true 同意，false 拒绝
}

// ListMessagesRequest 消息记录查询参数 DTO
type ListMessagesRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"` // 不传时默认 50 条
}

// ListRelationshipsRequest 关系列表查询参数 DTO
type ListRelationshipsRequest struct {
	AreFriends *bool `form:"areFriends"` // 不传时返回全部关系
}
