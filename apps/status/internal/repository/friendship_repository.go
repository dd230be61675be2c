package repository

import (
	"context"
	"errors"
	"time"

	"StatusServer/model"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// friendshipRepositoryImpl 好友关系数据访问层实现
type friendshipRepositoryImpl struct {
	db *gorm.DB
}

// NewFriendshipRepository 创建好友关系仓储实例
func NewFriendshipRepository(db *gorm.DB) IFriendshipRepository {
	return &friendshipRepositoryImpl{db: db}
}

// GetPair 查询两侧关系行（走主库，后续的 CAS 需要最新版本号）
func (r *friendshipRepositoryImpl) GetPair(ctx context.Context, userName, friendUserName string) (*model.Friendship, *model.Friendship, error) {
	var rows []*model.Friendship
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("(user_name = ? AND friend_user_name = ?) OR (user_name = ? AND friend_user_name = ?)",
			userName, friendUserName, friendUserName, userName).
		Find(&rows).Error
	if err != nil {
		return nil, nil, WrapDBError(err)
	}

	var mine, theirs *model.Friendship
	for _, row := range rows {
		if row.UserName == userName {
			mine = row
		} else {
			theirs = row
		}
	}
	return mine, theirs, nil
}

// CreatePair 同一事务内插入两侧行，唯一索引 uidx_user_friend 兜底并发重复申请
func (r *friendshipRepositoryImpl) CreatePair(ctx context.Context, mine, theirs *model.Friendship) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(mine).Error; err != nil {
			return err
		}
		return tx.Create(theirs).Error
	})
	return WrapDBError(err)
}

// AcceptPair CAS 更新两侧行
// WHERE version = ? 作为守门员：RowsAffected != 1 说明该行已被其他请求接受/删除
func (r *friendshipRepositoryImpl) AcceptPair(ctx context.Context, mine, theirs *model.Friendship, becameAt time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range []*model.Friendship{mine, theirs} {
			result := tx.Model(&model.Friendship{}).
				Where("user_name = ? AND friend_user_name = ? AND version = ?", row.UserName, row.FriendUserName, row.Version).
				Updates(map[string]any{
					"accepted":          true,
					"are_friends":       true,
					"became_friends_at": becameAt,
					"version":           gorm.Expr("version + 1"),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected != 1 {
				return ErrVersionConflict
			}
		}
		return nil
	})
	return WrapDBError(err)
}

// DeletePair CAS 删除两侧行
func (r *friendshipRepositoryImpl) DeletePair(ctx context.Context, mine, theirs *model.Friendship) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range []*model.Friendship{mine, theirs} {
			result := tx.
				Where("user_name = ? AND friend_user_name = ? AND version = ?", row.UserName, row.FriendUserName, row.Version).
				Delete(&model.Friendship{})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected != 1 {
				return ErrVersionConflict
			}
		}
		return nil
	})
	return WrapDBError(err)
}

// ListByUser 查询用户的关系列表（读请求，配置从库时走从库）
func (r *friendshipRepositoryImpl) ListByUser(ctx context.Context, userName string, areFriends *bool) ([]*model.Friendship, error) {
	query := r.db.WithContext(ctx).Where("user_name = ?", userName)
	if areFriends != nil {
		query = query.Where("are_friends = ?", *areFriends)
	}

	var rows []*model.Friendship
	if err := query.Order("friend_user_name ASC").Find(&rows).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return rows, nil
}

// ListFriendUserNames 查询好友用户名（主库读，作为一次扇出的一致快照）
func (r *friendshipRepositoryImpl) ListFriendUserNames(ctx context.Context, userName string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Model(&model.Friendship{}).
		Where("user_name = ? AND are_friends = ?", userName, true).
		Order("friend_user_name ASC").
		Pluck("friend_user_name", &names).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return names, nil
}

// RefreshPeerNames 刷新冗余姓名
// 不递增 version：姓名快照不参与状态机，避免与并发的接受/删除互相冲突
func (r *friendshipRepositoryImpl) RefreshPeerNames(ctx context.Context, userName, firstName, lastName string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Friendship{}).
		Where("friend_user_name = ?", userName).
		Updates(map[string]any{
			"friend_first_name": firstName,
			"friend_last_name":  lastName,
		})
	if result.Error != nil {
		return 0, WrapDBError(result.Error)
	}
	return result.RowsAffected, nil
}

// IsNotFound 判断仓储层错误是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
