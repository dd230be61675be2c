package repository

import (
	"context"
	"sort"

	"StatusServer/model"

	"gorm.io/gorm"
)

// userRepositoryImpl 用户资料数据访问层实现
type userRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository 创建用户资料仓储实例
func NewUserRepository(db *gorm.DB) IUserRepository {
	return &userRepositoryImpl{db: db}
}

func (r *userRepositoryImpl) GetByName(ctx context.Context, userName string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("user_name = ?", userName).First(&user).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return &user, nil
}

func (r *userRepositoryImpl) BatchGetByNames(ctx context.Context, userNames []string) ([]*model.User, error) {
	if len(userNames) == 0 {
		return []*model.User{}, nil
	}
	var users []*model.User
	if err := r.db.WithContext(ctx).Where("user_name IN ?", userNames).Find(&users).Error; err != nil {
		return nil, WrapDBError(err)
	}

	byName := make(map[string]*model.User, len(users))
	for _, u := range users {
		byName[u.UserName] = u
	}
	ordered := make([]*model.User, 0, len(users))
	for _, name := range userNames {
		if u, ok := byName[name]; ok {
			ordered = append(ordered, u)
			delete(byName, name)
		}
	}
	return ordered, nil
}

func (r *userRepositoryImpl) Create(ctx context.Context, user *model.User) error {
	return WrapDBError(r.db.WithContext(ctx).Create(user).Error)
}

// UpdateProfile 局部更新后回读，回读与更新在同一事务内保证返回值一致
func (r *userRepositoryImpl) UpdateProfile(ctx context.Context, userName string, patch model.ProfilePatch) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !patch.IsEmpty() {
			result := tx.Model(&model.User{}).Where("user_name = ?", userName).Updates(patch.Columns())
			if result.Error != nil {
				return result.Error
			}
		}
		return tx.Where("user_name = ?", userName).First(&user).Error
	})
	if err != nil {
		return nil, WrapDBError(err)
	}
	return &user, nil
}

// SetOnline 条件更新：只有状态不同才写，RowsAffected 即是否发生变化
func (r *userRepositoryImpl) SetOnline(ctx context.Context, userName string, online bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_name = ? AND online = ?", userName, !online).
		Update("online", online)
	if result.Error != nil {
		return false, WrapDBError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete 删除用户及其双向的全部关系行（同一事务），返回受影响的对端用户名。
// 用户不存在时整体回滚，关系行保持不变。
func (r *userRepositoryImpl) Delete(ctx context.Context, userName string) ([]string, error) {
	var peers []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_name = ?", userName).Delete(&model.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}

		var outgoing, incoming []string
		if err := tx.Model(&model.Friendship{}).
			Where("user_name = ?", userName).
			Pluck("friend_user_name", &outgoing).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Friendship{}).
			Where("friend_user_name = ?", userName).
			Pluck("user_name", &incoming).Error; err != nil {
			return err
		}
		if err := tx.
			Where("user_name = ? OR friend_user_name = ?", userName, userName).
			Delete(&model.Friendship{}).Error; err != nil {
			return err
		}
		peers = mergeNames(outgoing, incoming)
		return nil
	})
	if err != nil {
		return nil, WrapDBError(err)
	}
	return peers, nil
}

// mergeNames 合并去重并排序
func mergeNames(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
