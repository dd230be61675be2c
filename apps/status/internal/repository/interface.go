package repository

import (
	"context"
	"time"

	"StatusServer/model"
)

// ==================== 好友关系 Repository ====================

// IFriendshipRepository 好友关系数据访问接口。
// 所有写操作都以"成对"为单位在同一事务内完成，任一侧失败整体回滚。
type IFriendshipRepository interface {
	// GetPair 查询 (userName, friendUserName) 与 (friendUserName, userName) 两侧行。
	// 任一侧不存在时对应返回 nil，不视为错误。
	GetPair(ctx context.Context, userName, friendUserName string) (mine, theirs *model.Friendship, err error)

	// CreatePair 插入两侧行；任一方向已存在时返回 ErrDuplicateKey。
	CreatePair(ctx context.Context, mine, theirs *model.Friendship) error

	// AcceptPair 以版本号 CAS 把两侧置为好友，并写入同一个 becameAt。
	// 任一侧版本不匹配时回滚并返回 ErrVersionConflict。
	AcceptPair(ctx context.Context, mine, theirs *model.Friendship, becameAt time.Time) error

	// DeletePair 以版本号 CAS 删除两侧行，语义同 AcceptPair。
	DeletePair(ctx context.Context, mine, theirs *model.Friendship) error

	// ListByUser 查询用户的全部关系行，areFriends 为 nil 时不过滤。
	ListByUser(ctx context.Context, userName string, areFriends *bool) ([]*model.Friendship, error)

	// ListFriendUserNames 查询互为好友的对端用户名（读主库，保证看到刚提交的状态）。
	ListFriendUserNames(ctx context.Context, userName string) ([]string, error)

	// RefreshPeerNames 刷新所有指向 userName 的行上的冗余姓名，返回影响行数。
	RefreshPeerNames(ctx context.Context, userName, firstName, lastName string) (int64, error)
}

// ==================== 用户资料 Repository ====================

// IUserRepository 用户资料数据访问接口
type IUserRepository interface {
	// GetByName 根据用户名查询，不存在返回 ErrRecordNotFound
	GetByName(ctx context.Context, userName string) (*model.User, error)

	// BatchGetByNames 批量查询，结果按入参顺序返回，不存在的用户被跳过
	BatchGetByNames(ctx context.Context, userNames []string) ([]*model.User, error)

	// Create 创建用户，用户名重复返回 ErrDuplicateKey
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile 局部更新资料并返回更新后的行
	UpdateProfile(ctx context.Context, userName string, patch model.ProfilePatch) (*model.User, error)

	// SetOnline 更新在线状态，changed 表示状态是否真的发生了变化
	SetOnline(ctx context.Context, userName string, online bool) (changed bool, err error)

	// Delete 在一个事务内删除用户资料及其双向的全部关系行，返回受影响的对端用户名。
	// 不存在返回 ErrRecordNotFound，此时不删除任何数据。
	Delete(ctx context.Context, userName string) (peers []string, err error)
}

// ==================== 消息 Repository ====================

// IMessageRepository 消息数据访问接口
type IMessageRepository interface {
	// Create 保存消息（ID 由调用方生成）
	Create(ctx context.Context, msg *model.Message) error

	// ListBetween 查询两人之间最近的消息，按时间倒序
	ListBetween(ctx context.Context, a, b string, limit int) ([]*model.Message, error)
}
