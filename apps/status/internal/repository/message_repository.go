package repository

import (
	"context"

	"StatusServer/model"

	"gorm.io/gorm"
)

// messageRepositoryImpl 消息数据访问层实现
type messageRepositoryImpl struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息仓储实例
func NewMessageRepository(db *gorm.DB) IMessageRepository {
	return &messageRepositoryImpl{db: db}
}

func (r *messageRepositoryImpl) Create(ctx context.Context, msg *model.Message) error {
	return WrapDBError(r.db.WithContext(ctx).Create(msg).Error)
}

func (r *messageRepositoryImpl) ListBetween(ctx context.Context, a, b string, limit int) ([]*model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var msgs []*model.Message
	err := r.db.WithContext(ctx).
		Where("(author = ? AND recipient = ?) OR (author = ? AND recipient = ?)", a, b, b, a).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return msgs, nil
}
