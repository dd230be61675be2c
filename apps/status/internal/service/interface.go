package service

import (
	"context"

	"StatusServer/model"
)

// ==================== 身份查询 ====================

// UserLookup 身份查询，建立关系前校验目标用户存在。
type UserLookup interface {
	// FindByName 不存在时返回 ErrNotFound
	FindByName(ctx context.Context, userName string) (*model.User, error)
}

// ==================== 好友关系状态机 ====================

// IFriendshipService 好友关系状态机
// 状态：NonExistent -> Pending(发起方 Accepted=true / 接收方 Accepted=false) -> Mutual，
// 或 Pending -> NonExistent（拒绝/删除）。
type IFriendshipService interface {
	// CreatePair 建立待确认关系，返回发起方一侧的行
	CreatePair(ctx context.Context, requester, target string) (*model.Friendship, error)

	// GetPair 查询两侧行，任一侧缺失返回 nil
	GetPair(ctx context.Context, userName, friendUserName string) (mine, theirs *model.Friendship, err error)

	// Accept 同意对端的申请；提交失败返回 false，两侧数据保持不变
	Accept(ctx context.Context, mine, theirs *model.Friendship) (bool, error)

	// Reject 拒绝对端的申请（删除两侧），提交语义同 Accept
	Reject(ctx context.Context, mine, theirs *model.Friendship) (bool, error)

	// RemovePair 删除关系（任意状态），提交语义同 Accept
	RemovePair(ctx context.Context, mine, theirs *model.Friendship) (bool, error)

	// ListFriendUserNames 互为好友的对端用户名
	ListFriendUserNames(ctx context.Context, userName string) ([]string, error)

	// ListRelationships 全部关系行，mutual 为 nil 时不过滤
	ListRelationships(ctx context.Context, userName string, mutual *bool) ([]*model.Friendship, error)

	// AreFriends 两人是否互为好友
	AreFriends(ctx context.Context, a, b string) (bool, error)

	// RefreshPeerNames 资料变更后刷新其他人关系行上的冗余姓名
	RefreshPeerNames(ctx context.Context, profile *model.Profile) error
}

// ==================== 用户资料 ====================

// IUserService 用户资料服务：身份查询 + 资料快照 + 在线状态
type IUserService interface {
	UserLookup

	// GetCurrentProfile 当前资料快照，用于 ProfileUpdated 推送
	GetCurrentProfile(ctx context.Context, userName string) (*model.Profile, error)

	// GetProfiles 批量资料，顺序与入参一致，不存在的用户被跳过
	GetProfiles(ctx context.Context, userNames []string) ([]*model.Profile, error)

	// Register 创建资料，用户名已存在返回 ErrConflict
	Register(ctx context.Context, userName, firstName, lastName string) (*model.Profile, error)

	// UpdateProfile 局部更新资料
	UpdateProfile(ctx context.Context, userName string, patch model.ProfilePatch) (*model.Profile, error)

	// SetOnline 更新在线状态，changed 表示是否发生变化
	SetOnline(ctx context.Context, userName string, online bool) (changed bool, err error)

	// Delete 删除资料及其全部关系（同一事务），返回受影响的对端
	Delete(ctx context.Context, userName string) (peers []string, err error)
}
